// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package erc721

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	// ErrNonexistentToken indicates the token has not been minted or was burned
	ErrNonexistentToken = errors.New("nonexistent token")
	// ErrTokenExists indicates the token id is already minted
	ErrTokenExists = errors.New("token already minted")
	// ErrNotOwner indicates the token is not owned by the sender of a transfer
	ErrNotOwner = errors.New("transfer from incorrect owner")
	// ErrZeroAddress indicates a mint or transfer to the zero address
	ErrZeroAddress = errors.New("zero address")
)

// Ledger is the ownership ledger of non-fungible tokens
type Ledger interface {
	// OwnerOf returns the owner of the token
	OwnerOf(uint64) (common.Address, error)
	// BalanceOf returns the number of tokens held by owner
	BalanceOf(common.Address) uint64
	// Mint creates the token and assigns it to owner
	Mint(common.Address, uint64) error
	// Burn destroys the token
	Burn(uint64) error
	// Transfer moves the token from one owner to another
	Transfer(common.Address, common.Address, uint64) error
}

// Book is an in-memory Ledger
type Book struct {
	mutex    sync.RWMutex
	owners   map[uint64]common.Address
	balances map[common.Address]uint64
}

// NewBook creates an empty ledger
func NewBook() *Book {
	return &Book{
		owners:   make(map[uint64]common.Address),
		balances: make(map[common.Address]uint64),
	}
}

// OwnerOf returns the owner of the token
func (b *Book) OwnerOf(id uint64) (common.Address, error) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	owner, ok := b.owners[id]
	if !ok {
		return common.Address{}, errors.Wrapf(ErrNonexistentToken, "token %d", id)
	}
	return owner, nil
}

// BalanceOf returns the number of tokens held by owner
func (b *Book) BalanceOf(owner common.Address) uint64 {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.balances[owner]
}

// Mint creates the token and assigns it to owner
func (b *Book) Mint(to common.Address, id uint64) error {
	if to == (common.Address{}) {
		return errors.Wrap(ErrZeroAddress, "mint to the zero address")
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if _, ok := b.owners[id]; ok {
		return errors.Wrapf(ErrTokenExists, "token %d", id)
	}
	b.owners[id] = to
	b.balances[to]++
	return nil
}

// Burn destroys the token
func (b *Book) Burn(id uint64) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	owner, ok := b.owners[id]
	if !ok {
		return errors.Wrapf(ErrNonexistentToken, "token %d", id)
	}
	delete(b.owners, id)
	b.decrease(owner)
	return nil
}

// Transfer moves the token from one owner to another
func (b *Book) Transfer(from, to common.Address, id uint64) error {
	if to == (common.Address{}) {
		return errors.Wrap(ErrZeroAddress, "transfer to the zero address")
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	owner, ok := b.owners[id]
	if !ok {
		return errors.Wrapf(ErrNonexistentToken, "token %d", id)
	}
	if owner != from {
		return errors.Wrapf(ErrNotOwner, "token %d is owned by %s", id, owner.Hex())
	}
	b.owners[id] = to
	b.decrease(from)
	b.balances[to]++
	return nil
}

// Size returns the number of tokens in existence
func (b *Book) Size() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.owners)
}

func (b *Book) decrease(owner common.Address) {
	if b.balances[owner] <= 1 {
		delete(b.balances, owner)
		return
	}
	b.balances[owner]--
}
