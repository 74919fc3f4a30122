// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package allowlist

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/iotexproject/go-pkgs/hash"
)

// leafLength is the packed length of (address, uint16, uint8)
const leafLength = common.AddressLength + 2 + 1

// Leaf returns the eligibility leaf of an (identity, blockNumber, tier) triple,
// keccak256 over the tightly packed encoding of address, uint16 and uint8
func Leaf(identity common.Address, blockNumber uint16, tier uint8) hash.Hash256 {
	b := make([]byte, 0, leafLength)
	b = append(b, identity.Bytes()...)
	b = append(b, byte(blockNumber>>8), byte(blockNumber))
	b = append(b, tier)
	return hash.BytesToHash256(crypto.Keccak256(b))
}

// HashPair combines two nodes, smaller digest first
func HashPair(a, b hash.Hash256) hash.Hash256 {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return hash.BytesToHash256(crypto.Keccak256(a[:], b[:]))
}

// Verify checks that the triple is a member of the tree committed to by root
func Verify(root hash.Hash256, identity common.Address, blockNumber uint16, tier uint8, proof []hash.Hash256) bool {
	return VerifyLeaf(root, Leaf(identity, blockNumber, tier), proof)
}

// VerifyLeaf folds the proof over leaf and compares the result with root
func VerifyLeaf(root, leaf hash.Hash256, proof []hash.Hash256) bool {
	computed := leaf
	for _, p := range proof {
		computed = HashPair(computed, p)
	}
	return computed == root
}
