// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package access

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	// ErrUnauthorized indicates the caller is not the administrator
	ErrUnauthorized = errors.New("caller is not the owner")
	// ErrZeroOwner indicates an attempt to hand ownership to the zero address
	ErrZeroOwner = errors.New("new owner is the zero address")
)

// Ownable gates operations behind a single administrator identity
type Ownable struct {
	mutex sync.RWMutex
	owner common.Address
}

// NewOwnable creates a gate owned by owner
func NewOwnable(owner common.Address) *Ownable {
	return &Ownable{owner: owner}
}

// Owner returns the administrator
func (o *Ownable) Owner() common.Address {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.owner
}

// OnlyOwner returns ErrUnauthorized unless caller is the administrator
func (o *Ownable) OnlyOwner(caller common.Address) error {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	if caller != o.owner {
		return errors.Wrapf(ErrUnauthorized, "caller %s", caller.Hex())
	}
	return nil
}

// CheckTransfer validates a hand-over of ownership without applying it
func (o *Ownable) CheckTransfer(caller, newOwner common.Address) error {
	if err := o.OnlyOwner(caller); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return ErrZeroOwner
	}
	return nil
}

// SetOwner replaces the administrator
func (o *Ownable) SetOwner(newOwner common.Address) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.owner = newOwner
}
