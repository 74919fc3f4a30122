// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/iotexproject/iotex-sbt/allowlist"
	"github.com/iotexproject/iotex-sbt/credential"
	"github.com/iotexproject/iotex-sbt/pkg/util/fileutil"
)

type (
	// claimProof is the claim material of one allowlist entry
	claimProof struct {
		Address     string   `json:"address"`
		BlockNumber uint16   `json:"blockNumber"`
		Tier        uint8    `json:"tier"`
		Leaf        string   `json:"leaf"`
		Proof       []string `json:"proof"`
	}

	// proofFile is the output of allowlist build
	proofFile struct {
		Root   string       `json:"root"`
		Claims []claimProof `json:"claims"`
	}
)

var (
	_proofOut string
	_force    bool
)

var allowlistCmd = &cobra.Command{
	Use:   "allowlist",
	Short: "Build and inspect allowlist trees",
}

var allowlistBuildCmd = &cobra.Command{
	Use:   "build ALLOWLIST_YAML",
	Short: "Build the allowlist tree, print its root and write every entry's proof",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := allowlist.LoadEntries(args[0])
		if err != nil {
			return err
		}
		pf, err := buildProofs(entries)
		if err != nil {
			return err
		}
		printProofs(cmd.OutOrStdout(), pf)
		if _proofOut == "" {
			return nil
		}
		return writeProofs(_proofOut, pf, _force)
	},
}

func init() {
	allowlistBuildCmd.Flags().StringVarP(&_proofOut, "out", "o", "", "write root and proofs as json to this file")
	allowlistBuildCmd.Flags().BoolVarP(&_force, "force", "f", false, "overwrite an existing output file")
	allowlistCmd.AddCommand(allowlistBuildCmd)
	rootCmd.AddCommand(allowlistCmd)
}

func buildProofs(entries []allowlist.Entry) (*proofFile, error) {
	if len(entries) == 0 {
		return nil, errors.New("allowlist has no entries")
	}
	tree, err := allowlist.BuildTree(entries)
	if err != nil {
		return nil, err
	}
	root := tree.Root()
	pf := &proofFile{
		Root:   hexutil.Encode(root[:]),
		Claims: make([]claimProof, 0, len(entries)),
	}
	for i, e := range entries {
		if !credential.Tier(e.Tier).IsValid() {
			return nil, errors.Errorf("entry %d has invalid tier %d", i, e.Tier)
		}
		proof, err := tree.ProofAt(i)
		if err != nil {
			return nil, err
		}
		leaf := e.Leaf()
		cp := claimProof{
			Address:     e.Address.Hex(),
			BlockNumber: e.BlockNumber,
			Tier:        e.Tier,
			Leaf:        hexutil.Encode(leaf[:]),
			Proof:       make([]string, len(proof)),
		}
		for j := range proof {
			cp.Proof[j] = hexutil.Encode(proof[j][:])
		}
		pf.Claims = append(pf.Claims, cp)
	}
	return pf, nil
}

func printProofs(w io.Writer, pf *proofFile) {
	fmt.Fprintf(w, "root: %s\n", pf.Root)
	tb := table.New("Address", "BlockNumber", "Tier", "Leaf", "ProofLength").WithWriter(w)
	for _, c := range pf.Claims {
		tb.AddRow(c.Address, c.BlockNumber, credential.Tier(c.Tier), c.Leaf, len(c.Proof))
	}
	tb.Print()
}

func writeProofs(path string, pf *proofFile, force bool) error {
	if fileutil.FileExists(path) && !force {
		return errors.Errorf("%s already exists, use --force to overwrite", path)
	}
	b, err := json.MarshalIndent(pf, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode proofs")
	}
	return errors.Wrapf(os.WriteFile(path, b, 0600), "failed to write %s", path)
}

func readProofs(path string) (*proofFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	pf := &proofFile{}
	if err := json.Unmarshal(b, pf); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return pf, nil
}

// find returns the claim of identity
func (pf *proofFile) find(identity common.Address) (*claimProof, error) {
	for i := range pf.Claims {
		if common.HexToAddress(pf.Claims[i].Address) == identity {
			return &pf.Claims[i], nil
		}
	}
	return nil, errors.Errorf("%s is not in the allowlist", identity.Hex())
}
