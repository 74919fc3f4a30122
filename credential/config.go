// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package credential

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/iotexproject/go-pkgs/hash"
	"github.com/pkg/errors"

	"github.com/iotexproject/iotex-sbt/pkg/util/addrutil"
)

// Config is the registry config
type Config struct {
	// AdminAddress is the initial administrator, io1 or 0x form
	AdminAddress string `yaml:"adminAddress"`
	// MerkleRoot is the initial committed root, 0x-prefixed hex
	MerkleRoot string `yaml:"merkleRoot"`
	// BaseURI is the initial metadata uri prefix
	BaseURI string `yaml:"baseURI"`
	Name    string `yaml:"name"`
	Symbol  string `yaml:"symbol"`
}

// DefaultConfig is the default registry config
var DefaultConfig = Config{
	Name:   "IoTeX Soulbound Credential",
	Symbol: "SBT",
}

// Genesis parses the config into the initial registry state
func (cfg Config) Genesis() (Genesis, error) {
	var g Genesis
	owner, err := addrutil.ParseAddress(cfg.AdminAddress)
	if err != nil {
		return g, errors.Wrap(err, "invalid admin address")
	}
	if owner == (common.Address{}) {
		return g, errors.New("admin address cannot be the zero address")
	}
	g.Owner = owner
	if cfg.MerkleRoot != "" {
		if g.Root, err = ParseRoot(cfg.MerkleRoot); err != nil {
			return g, err
		}
	}
	g.BaseURI = cfg.BaseURI
	return g, nil
}

// ParseRoot decodes a 0x-prefixed 32-byte digest
func ParseRoot(s string) (hash.Hash256, error) {
	b, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil {
		return hash.ZeroHash256, errors.Wrapf(err, "invalid merkle root %s", s)
	}
	if len(b) != 32 {
		return hash.ZeroHash256, errors.Errorf("invalid merkle root length %d", len(b))
	}
	return hash.BytesToHash256(b), nil
}
