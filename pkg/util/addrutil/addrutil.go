// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package addrutil

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iotexproject/iotex-address/address"
	"github.com/pkg/errors"
)

// ErrInvalidAddress indicates a string that is neither an io1 nor a 0x address
var ErrInvalidAddress = errors.New("invalid address")

// IoAddrToEvmAddr converts IoTeX address into evm address
func IoAddrToEvmAddr(ioAddr string) (common.Address, error) {
	addr, err := address.FromString(ioAddr)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(addr.Bytes()), nil
}

// EvmAddrToIoAddr converts evm address into IoTeX address
func EvmAddrToIoAddr(evmAddr common.Address) (address.Address, error) {
	return address.FromBytes(evmAddr.Bytes())
}

// ParseAddress accepts either an io1 or a 0x-prefixed hex address
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, address.MainnetPrefix) || strings.HasPrefix(s, address.TestnetPrefix) {
		addr, err := IoAddrToEvmAddr(s)
		if err != nil {
			return common.Address{}, errors.Wrapf(ErrInvalidAddress, "%s: %v", s, err)
		}
		return addr, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Wrap(ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}
