// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package credential

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/iotexproject/go-pkgs/hash"
)

// event signatures
var (
	TransferEvent             = hash.BytesToHash256(crypto.Keccak256([]byte("Transfer(address,address,uint256)")))
	LockedEvent               = hash.BytesToHash256(crypto.Keccak256([]byte("Locked(uint256)")))
	OwnershipTransferredEvent = hash.BytesToHash256(crypto.Keccak256([]byte("OwnershipTransferred(address,address)")))
)

type (
	// Log is an event emitted by a successful operation
	Log struct {
		Topics []hash.Hash256
		Data   []byte
	}

	// Receipt is the result of a successful operation
	Receipt struct {
		Status        ReceiptStatus
		CredentialIDs []uint64
		Logs          []*Log
	}

	receiptLog struct {
		topics []hash.Hash256
		data   []byte
	}
)

func newReceiptLog(event hash.Hash256) *receiptLog {
	return &receiptLog{
		topics: []hash.Hash256{event},
	}
}

func (r *receiptLog) AddAddressTopic(addr common.Address) {
	r.topics = append(r.topics, hash.Hash256(common.BytesToHash(addr.Bytes())))
}

func (r *receiptLog) AddUint256Topic(v uint64) {
	r.topics = append(r.topics, hash.Hash256(uint256.NewInt(v).Bytes32()))
}

func (r *receiptLog) SetUint256Data(v uint64) {
	b := uint256.NewInt(v).Bytes32()
	r.data = b[:]
}

func (r *receiptLog) Build() *Log {
	return &Log{
		Topics: r.topics,
		Data:   r.data,
	}
}

func transferLog(from, to common.Address, id uint64) *Log {
	l := newReceiptLog(TransferEvent)
	l.AddAddressTopic(from)
	l.AddAddressTopic(to)
	l.AddUint256Topic(id)
	return l.Build()
}

func lockedLog(id uint64) *Log {
	l := newReceiptLog(LockedEvent)
	l.SetUint256Data(id)
	return l.Build()
}

func ownershipTransferredLog(previous, next common.Address) *Log {
	l := newReceiptLog(OwnershipTransferredEvent)
	l.AddAddressTopic(previous)
	l.AddAddressTopic(next)
	return l.Build()
}

func newReceipt() *Receipt {
	return &Receipt{
		Status: ReceiptStatusSuccess,
	}
}

func (r *Receipt) addMint(to common.Address, id uint64) {
	r.CredentialIDs = append(r.CredentialIDs, id)
	r.Logs = append(r.Logs, transferLog(common.Address{}, to, id), lockedLog(id))
}

func (r *Receipt) addLogs(logs ...*Log) {
	r.Logs = append(r.Logs, logs...)
}
