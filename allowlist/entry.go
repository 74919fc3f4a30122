// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package allowlist

import (
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iotexproject/go-pkgs/hash"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/iotexproject/iotex-sbt/pkg/util/addrutil"
)

type (
	// Entry is one eligible (identity, blockNumber, tier) triple
	Entry struct {
		Address     common.Address
		BlockNumber uint16
		Tier        uint8
	}

	entryYAML struct {
		Address     string `yaml:"address"`
		BlockNumber uint16 `yaml:"blockNumber"`
		Tier        uint8  `yaml:"tier"`
	}

	fileYAML struct {
		Entries []entryYAML `yaml:"entries"`
	}
)

// Leaf returns the eligibility leaf of the entry
func (e Entry) Leaf() hash.Hash256 {
	return Leaf(e.Address, e.BlockNumber, e.Tier)
}

// LoadEntries reads an allowlist yaml file
func LoadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read allowlist %s", path)
	}
	return ParseEntries(data)
}

// ParseEntries decodes allowlist yaml content
//
//	entries:
//	  - address: io1...
//	    blockNumber: 1
//	    tier: 0
func ParseEntries(data []byte) ([]Entry, error) {
	var f fileYAML
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to decode allowlist")
	}
	entries := make([]Entry, 0, len(f.Entries))
	for i, e := range f.Entries {
		addr, err := addrutil.ParseAddress(e.Address)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}
		entries = append(entries, Entry{
			Address:     addr,
			BlockNumber: e.BlockNumber,
			Tier:        e.Tier,
		})
	}
	return entries, nil
}

// BuildTree builds the allowlist tree with leaves in entry order
func BuildTree(entries []Entry) (*Tree, error) {
	leaves := make([]hash.Hash256, len(entries))
	for i, e := range entries {
		leaves[i] = e.Leaf()
	}
	return NewTree(leaves)
}
