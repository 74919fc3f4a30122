// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package testutil

import (
	"time"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
)

// CheckCondition defines a func type that checks whether a condition is met
type CheckCondition func() (bool, error)

// WaitUntil periodically checks the condition until it is met or the deadline expires
func WaitUntil(interval time.Duration, expiration time.Duration, f CheckCondition) error {
	deadline := time.After(expiration)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-deadline:
			return errors.New("timeout waiting for condition")
		case <-ticker.C:
			ok, err := f()
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		}
	}
}

// TimestampNowFromClock get now timestamp from specific clock
func TimestampNowFromClock(c clock.Clock) uint64 {
	return uint64(c.Now().Unix())
}
