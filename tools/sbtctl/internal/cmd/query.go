// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v2"

	"github.com/iotexproject/iotex-sbt/pkg/util/addrutil"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Read registry state",
}

// idQuery and addressQuery build commands taking one credential id or one address
func idQuery(use, short, method string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return query(cmd, method, id)
		},
	}
}

func addressQuery(use, short, method string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ADDRESS",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := addrutil.ParseAddress(args[0])
			if err != nil {
				return err
			}
			return query(cmd, method, addr.Hex())
		},
	}
}

var queryRootCmd = &cobra.Command{
	Use:   "root",
	Short: "Show the committed merkle root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return query(cmd, "sbt_merkleRoot")
	},
}

var queryInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show registry metadata and settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), _timeout)
		defer cancel()
		c := newClient()
		tb := table.New("Field", "Value").WithWriter(cmd.OutOrStdout())
		for _, f := range []struct{ name, method string }{
			{"name", "sbt_name"},
			{"symbol", "sbt_symbol"},
			{"totalSupply", "sbt_totalSupply"},
			{"owner", "sbt_owner"},
			{"merkleRoot", "sbt_merkleRoot"},
			{"baseURI", "sbt_baseURI"},
		} {
			res, err := c.Call(ctx, f.method)
			if err != nil {
				return err
			}
			tb.AddRow(f.name, res.String())
		}
		tb.Print()
		return nil
	},
}

func init() {
	queryCmd.AddCommand(
		queryInfoCmd,
		queryRootCmd,
		idQuery("owner", "Show the custodian of a credential", "sbt_ownerOf"),
		idQuery("locked", "Show whether a credential is locked", "sbt_locked"),
		idQuery("uri", "Show the metadata uri of a credential", "sbt_tokenURI"),
		idQuery("credential", "Show a credential", "sbt_credential"),
		addressQuery("balance", "Show how many credentials an address custodies", "sbt_balanceOf"),
		addressQuery("holder", "Show the record of a holder", "sbt_holder"),
		addressQuery("claimed", "Show whether an identity has spent its claim", "sbt_isClaimed"),
	)
	rootCmd.AddCommand(queryCmd)
}

func query(cmd *cobra.Command, method string, params ...interface{}) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), _timeout)
	defer cancel()
	res, err := newClient().Call(ctx, method, params...)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), res)
}

// printResult prints objects as yaml and scalars as is
func printResult(w io.Writer, res gjson.Result) error {
	if !res.IsObject() {
		_, err := fmt.Fprintln(w, res.String())
		return err
	}
	var obj yaml.MapSlice
	if err := yaml.Unmarshal([]byte(res.Raw), &obj); err != nil {
		return errors.Wrap(err, "failed to decode result")
	}
	out, err := yaml.Marshal(obj)
	if err != nil {
		return errors.Wrap(err, "failed to encode result")
	}
	_, err = w.Write(out)
	return err
}

