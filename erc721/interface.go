// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package erc721

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"
)

// function signatures of the published interfaces
var (
	_erc165Functions = []string{
		"supportsInterface(bytes4)",
	}
	_erc721Functions = []string{
		"balanceOf(address)",
		"ownerOf(uint256)",
		"safeTransferFrom(address,address,uint256,bytes)",
		"safeTransferFrom(address,address,uint256)",
		"transferFrom(address,address,uint256)",
		"approve(address,uint256)",
		"setApprovalForAll(address,bool)",
		"getApproved(uint256)",
		"isApprovedForAll(address,address)",
	}
	_erc721MetadataFunctions = []string{
		"name()",
		"symbol()",
		"tokenURI(uint256)",
	}
	_erc5192Functions = []string{
		"locked(uint256)",
	}
)

// interface identifiers
var (
	InterfaceIDERC165         = InterfaceID(_erc165Functions...)
	InterfaceIDERC721         = InterfaceID(_erc721Functions...)
	InterfaceIDERC721Metadata = InterfaceID(_erc721MetadataFunctions...)
	InterfaceIDERC5192        = InterfaceID(_erc5192Functions...)

	_capabilities = map[[4]byte]struct{}{
		InterfaceIDERC165:         {},
		InterfaceIDERC721:         {},
		InterfaceIDERC721Metadata: {},
		InterfaceIDERC5192:        {},
	}
)

// Selector returns the 4-byte function selector of a signature
func Selector(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

// InterfaceID xors the selectors of the interface's functions
func InterfaceID(signatures ...string) [4]byte {
	var id uint32
	for _, sig := range signatures {
		sel := Selector(sig)
		id ^= binary.BigEndian.Uint32(sel[:])
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], id)
	return b
}

// SupportsInterface reports whether the registry implements the interface
func SupportsInterface(id [4]byte) bool {
	_, ok := _capabilities[id]
	return ok
}
