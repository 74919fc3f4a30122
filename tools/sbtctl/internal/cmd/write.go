// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package cmd

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/iotexproject/iotex-sbt/allowlist"
	"github.com/iotexproject/iotex-sbt/credential"
	"github.com/iotexproject/iotex-sbt/pkg/util/addrutil"
	"github.com/iotexproject/iotex-sbt/tools/sbtctl/internal/client"
)

type (
	claimPayload struct {
		Recipient   string   `json:"recipient"`
		BlockNumber uint16   `json:"blockNumber"`
		Tier        uint8    `json:"tier"`
		Proof       []string `json:"proof"`
	}

	batchIssuePayload struct {
		Addresses    []string `json:"addresses"`
		BlockNumbers []uint16 `json:"blockNumbers"`
		Tiers        []uint8  `json:"tiers"`
	}

	correctTierPayload struct {
		Holder string `json:"holder"`
		Tier   uint8  `json:"tier"`
	}

	correctBlockNumberPayload struct {
		Holder      string `json:"holder"`
		BlockNumber uint16 `json:"blockNumber"`
	}

	transferPayload struct {
		From string `json:"from"`
		To   string `json:"to"`
		ID   uint64 `json:"id"`
	}

	revokePayload struct {
		ID uint64 `json:"id"`
	}

	rootPayload struct {
		Root string `json:"root"`
	}

	baseURIPayload struct {
		URI string `json:"uri"`
	}

	ownerPayload struct {
		Owner string `json:"owner"`
	}
)

var (
	_proofs    string
	_recipient string
	_allowlist string
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim the signer's credential with its allowlist proof",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sk, err := signer()
		if err != nil {
			return err
		}
		pf, err := readProofs(_proofs)
		if err != nil {
			return err
		}
		payload, err := newClaimPayload(pf, client.Caller(sk), _recipient)
		if err != nil {
			return err
		}
		return send(cmd, "sbt_claim", payload)
	},
}

var airdropCmd = &cobra.Command{
	Use:   "airdrop ALLOWLIST_YAML",
	Short: "Issue a credential to every allowlist entry in one batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := allowlist.LoadEntries(args[0])
		if err != nil {
			return err
		}
		return send(cmd, "sbt_batchIssue", newBatchIssuePayload(entries))
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke ID",
	Short: "Revoke (burn) a credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return send(cmd, "sbt_revoke", &revokePayload{ID: id})
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer FROM TO ID",
	Short: "Move a credential to another custodian",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := addrutil.ParseAddress(args[0])
		if err != nil {
			return err
		}
		to, err := addrutil.ParseAddress(args[1])
		if err != nil {
			return err
		}
		id, err := parseID(args[2])
		if err != nil {
			return err
		}
		return send(cmd, "sbt_transferFrom", &transferPayload{From: from.Hex(), To: to.Hex(), ID: id})
	},
}

var correctCmd = &cobra.Command{
	Use:   "correct",
	Short: "Correct the attributes of a holder's credential",
}

var correctTierCmd = &cobra.Command{
	Use:   "tier HOLDER TIER",
	Short: "Correct the tier, by name or number",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		holder, err := addrutil.ParseAddress(args[0])
		if err != nil {
			return err
		}
		tier, err := credential.ParseTier(args[1])
		if err != nil {
			return err
		}
		return send(cmd, "sbt_correctTier", &correctTierPayload{Holder: holder.Hex(), Tier: uint8(tier)})
	},
}

var correctBlockCmd = &cobra.Command{
	Use:   "block HOLDER BLOCK_NUMBER",
	Short: "Correct the block number",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		holder, err := addrutil.ParseAddress(args[0])
		if err != nil {
			return err
		}
		bn, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			return errors.Wrapf(err, "invalid block number %s", args[1])
		}
		return send(cmd, "sbt_correctBlockNumber", &correctBlockNumberPayload{Holder: holder.Hex(), BlockNumber: uint16(bn)})
	},
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrator settings",
}

var setRootCmd = &cobra.Command{
	Use:   "set-root [ROOT]",
	Short: "Replace the committed merkle root, given directly or built from --allowlist",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := rootArg(args, _allowlist)
		if err != nil {
			return err
		}
		return send(cmd, "sbt_setMerkleRoot", &rootPayload{Root: root})
	},
}

var setBaseURICmd = &cobra.Command{
	Use:   "set-base-uri URI",
	Short: "Replace the metadata uri prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(cmd, "sbt_setBaseURI", &baseURIPayload{URI: args[0]})
	},
}

var transferOwnershipCmd = &cobra.Command{
	Use:   "transfer-ownership NEW_OWNER",
	Short: "Hand the administrator role to another address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := addrutil.ParseAddress(args[0])
		if err != nil {
			return err
		}
		return send(cmd, "sbt_transferOwnership", &ownerPayload{Owner: owner.Hex()})
	},
}

func init() {
	claimCmd.Flags().StringVar(&_proofs, "proofs", "proofs.json", "proof file written by allowlist build")
	claimCmd.Flags().StringVar(&_recipient, "recipient", "", "address receiving the credential, defaults to the signer")
	setRootCmd.Flags().StringVar(&_allowlist, "allowlist", "", "allowlist yaml to build the root from")

	correctCmd.AddCommand(correctTierCmd, correctBlockCmd)
	adminCmd.AddCommand(setRootCmd, setBaseURICmd, transferOwnershipCmd)
	rootCmd.AddCommand(claimCmd, airdropCmd, revokeCmd, transferCmd, correctCmd, adminCmd)
}

func newClaimPayload(pf *proofFile, caller common.Address, recipient string) (*claimPayload, error) {
	c, err := pf.find(caller)
	if err != nil {
		return nil, err
	}
	to := caller
	if recipient != "" {
		if to, err = addrutil.ParseAddress(recipient); err != nil {
			return nil, err
		}
	}
	return &claimPayload{
		Recipient:   to.Hex(),
		BlockNumber: c.BlockNumber,
		Tier:        c.Tier,
		Proof:       c.Proof,
	}, nil
}

func newBatchIssuePayload(entries []allowlist.Entry) *batchIssuePayload {
	p := &batchIssuePayload{
		Addresses:    make([]string, len(entries)),
		BlockNumbers: make([]uint16, len(entries)),
		Tiers:        make([]uint8, len(entries)),
	}
	for i, e := range entries {
		p.Addresses[i] = e.Address.Hex()
		p.BlockNumbers[i] = e.BlockNumber
		p.Tiers[i] = e.Tier
	}
	return p
}

func rootArg(args []string, allowlistPath string) (string, error) {
	switch {
	case len(args) == 1 && allowlistPath != "":
		return "", errors.New("give either a root or --allowlist, not both")
	case len(args) == 1:
		root, err := credential.ParseRoot(args[0])
		if err != nil {
			return "", err
		}
		return hexutil.Encode(root[:]), nil
	case allowlistPath != "":
		entries, err := allowlist.LoadEntries(allowlistPath)
		if err != nil {
			return "", err
		}
		pf, err := buildProofs(entries)
		if err != nil {
			return "", err
		}
		return pf.Root, nil
	default:
		return "", errors.New("missing root")
	}
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid credential id %s", s)
	}
	return id, nil
}
