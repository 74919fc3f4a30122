// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/iotexproject/go-pkgs/crypto"
	"github.com/pkg/errors"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/iotexproject/iotex-sbt/pkg/log"
	"github.com/iotexproject/iotex-sbt/tools/sbtctl/internal/client"
)

const _privateKeyEnv = "SBT_PRIVATE_KEY"

var (
	_endpoint   string
	_privateKey string
	_validity   time.Duration
	_timeout    time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sbtctl [command] [flags]",
	Short: "Command-line interface for the IoTeX soulbound credential registry",
	Long: "sbtctl builds allowlists, signs registry requests and queries credentials.\n" +
		"Signed commands read the hex private key from --private-key or $" + _privateKeyEnv + ".",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&_endpoint, "endpoint", "http://127.0.0.1:15015", "registry json-rpc endpoint")
	rootCmd.PersistentFlags().StringVar(&_privateKey, "private-key", "", "hex private key signing write requests")
	rootCmd.PersistentFlags().DurationVar(&_validity, "validity", 5*time.Minute, "how long a signed request stays valid")
	rootCmd.PersistentFlags().DurationVar(&_timeout, "timeout", 30*time.Second, "request timeout")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.S().Fatal(err)
	}
}

func newClient() *client.Client {
	return client.New(_endpoint, client.WithValidity(_validity), client.WithTimeout(_timeout))
}

func signer() (crypto.PrivateKey, error) {
	key := _privateKey
	if key == "" {
		key = os.Getenv(_privateKeyEnv)
	}
	if key == "" {
		return nil, errors.Errorf("no private key, set --private-key or $%s", _privateKeyEnv)
	}
	sk, err := crypto.HexStringToPrivateKey(strings.TrimPrefix(key, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}
	return sk, nil
}

// send signs payload and prints the receipt
func send(cmd *cobra.Command, method string, payload interface{}) error {
	sk, err := signer()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), _timeout)
	defer cancel()
	r, err := newClient().Send(ctx, sk, method, payload)
	if err != nil {
		return err
	}
	printReceipt(cmd.OutOrStdout(), r)
	return nil
}

func printReceipt(w io.Writer, r *client.Receipt) {
	fmt.Fprintf(w, "status: %s\n", r.Status)
	if len(r.CredentialIDs) > 0 {
		ids := make([]string, len(r.CredentialIDs))
		for i, id := range r.CredentialIDs {
			ids[i] = fmt.Sprint(id)
		}
		fmt.Fprintf(w, "credential ids: %s\n", strings.Join(ids, ","))
	}
	if len(r.Logs) == 0 {
		return
	}
	tb := table.New("#", "Topics", "Data").WithWriter(w)
	for i, l := range r.Logs {
		tb.AddRow(i, strings.Join(l.Topics, " "), l.Data)
	}
	tb.Print()
}
