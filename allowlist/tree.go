// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package allowlist

import (
	"github.com/iotexproject/go-pkgs/hash"
	"github.com/pkg/errors"
)

var (
	// ErrEmptyTree indicates a tree built without leaves
	ErrEmptyTree = errors.New("empty tree")
	// ErrLeafNotFound indicates the leaf is not part of the tree
	ErrLeafNotFound = errors.New("leaf not found")
)

// Tree is a sorted-pair merkle tree. Leaves keep their given order and an
// unpaired node at the end of a level is promoted to the next level unchanged.
type Tree struct {
	layers [][]hash.Hash256
}

// NewTree builds the tree over hashed leaves
func NewTree(leaves []hash.Hash256) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}
	layer := make([]hash.Hash256, len(leaves))
	copy(layer, leaves)
	layers := [][]hash.Hash256{layer}
	for len(layer) > 1 {
		next := make([]hash.Hash256, 0, (len(layer)+1)>>1)
		for i := 0; i < len(layer); i += 2 {
			if i+1 == len(layer) {
				next = append(next, layer[i])
				continue
			}
			next = append(next, HashPair(layer[i], layer[i+1]))
		}
		layers = append(layers, next)
		layer = next
	}
	return &Tree{layers: layers}, nil
}

// Root returns the root of the tree
func (t *Tree) Root() hash.Hash256 {
	top := t.layers[len(t.layers)-1]
	return top[0]
}

// Size returns the number of leaves
func (t *Tree) Size() int {
	return len(t.layers[0])
}

// Leaves returns a copy of the leaves
func (t *Tree) Leaves() []hash.Hash256 {
	leaves := make([]hash.Hash256, len(t.layers[0]))
	copy(leaves, t.layers[0])
	return leaves
}

// Proof returns the sibling path of the first occurrence of leaf
func (t *Tree) Proof(leaf hash.Hash256) ([]hash.Hash256, error) {
	index := -1
	for i, l := range t.layers[0] {
		if l == leaf {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, errors.Wrapf(ErrLeafNotFound, "leaf %x", leaf[:])
	}
	return t.ProofAt(index)
}

// ProofAt returns the sibling path of the leaf at index
func (t *Tree) ProofAt(index int) ([]hash.Hash256, error) {
	if index < 0 || index >= t.Size() {
		return nil, errors.Wrapf(ErrLeafNotFound, "index %d out of range %d", index, t.Size())
	}
	proof := make([]hash.Hash256, 0, len(t.layers)-1)
	for _, layer := range t.layers[:len(t.layers)-1] {
		pair := index ^ 1
		if pair < len(layer) {
			proof = append(proof, layer[pair])
		}
		index >>= 1
	}
	return proof, nil
}
