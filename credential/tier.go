// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package credential

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Tier is the graduation tier attached to a credential
type Tier uint8

// tiers in the order committed by allowlist leaves
const (
	TierHonors Tier = iota
	TierEngineers
	TierFounders
	TierOG
	TierAlum
	tierCount
)

var _tierNames = [tierCount]string{"HONORS", "ENGINEERS", "FOUNDERS", "OG", "ALUM"}

// IsValid returns true if the tier is one of the enumerated values
func (t Tier) IsValid() bool {
	return t < tierCount
}

func (t Tier) String() string {
	if !t.IsValid() {
		return "UNKNOWN(" + strconv.Itoa(int(t)) + ")"
	}
	return _tierNames[t]
}

// ParseTier accepts a tier name (case-insensitive) or its numeric value
func ParseTier(s string) (Tier, error) {
	s = strings.TrimSpace(s)
	for i, name := range _tierNames {
		if strings.EqualFold(s, name) {
			return Tier(i), nil
		}
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidTier, "tier %q", s)
	}
	if t := Tier(v); t.IsValid() {
		return t, nil
	}
	return 0, errors.Wrapf(ErrInvalidTier, "tier %d", v)
}
