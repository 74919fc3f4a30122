// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/iotexproject/iotex-sbt/db"
	"github.com/iotexproject/iotex-sbt/test/identityset"
	"github.com/iotexproject/iotex-sbt/testutil"
)

func writeConfig(t *testing.T, content string) string {
	dir, err := testutil.PathOfTempDir("sbt-config")
	require.NoError(t, err)
	t.Cleanup(func() { testutil.CleanupPath(t, dir) })
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	// Default config doesn't have an administrator
	_, err := New(nil)
	require.Equal(t, ErrInvalidCfg, errors.Cause(err))
}

func TestNewConfigWithoutValidation(t *testing.T) {
	require := require.New(t)
	cfg, err := New(nil, DoNotValidate)
	require.NoError(err)
	require.Equal(Default.DB, cfg.DB)
	require.Equal(Default.API, cfg.API)
	require.Equal(Default.Registry, cfg.Registry)
}

func TestNewConfigWithWrongConfigPath(t *testing.T) {
	_, err := New([]string{"wrong_path"}, DoNotValidate)
	require.Error(t, err)
}

func TestNewConfigWithOverride(t *testing.T) {
	require := require.New(t)
	t.Setenv("_SBT_ROOT", "0x5608ee425159f11f325a6c241830b81151647dc30ff800b674d4068dc17b18f6")
	path := writeConfig(t, `
registry:
    adminAddress: `+identityset.IoAddress(0).String()+`
    merkleRoot: "${_SBT_ROOT}"
    baseURI: ipfs://sbt/
db:
    backend: pebble
    dbPath: /tmp/sbt
api:
    port: 16000
    requestWindow: 90s
`)
	cfg, err := New([]string{path})
	require.NoError(err)
	require.Equal(identityset.IoAddress(0).String(), cfg.Registry.AdminAddress)
	require.Equal("ipfs://sbt/", cfg.Registry.BaseURI)
	require.Equal(db.BackendPebble, cfg.DB.Backend)
	require.Equal(uint8(3), cfg.DB.NumRetries)
	require.Equal(16000, cfg.API.Port)
	require.Equal(90*time.Second, cfg.API.RequestWindow)
	require.Equal(Default.API.RateBurst, cfg.API.RateBurst)

	g, err := cfg.Registry.Genesis()
	require.NoError(err)
	require.Equal(identityset.Address(0), g.Owner)
	require.Equal(byte(0x56), g.Root[0])
}

func TestValidateRegistry(t *testing.T) {
	require := require.New(t)
	cfg := Default
	cfg.Registry.AdminAddress = identityset.Address(1).Hex()
	require.NoError(ValidateRegistry(cfg))
	cfg.Registry.MerkleRoot = "0x1234"
	require.Equal(ErrInvalidCfg, errors.Cause(ValidateRegistry(cfg)))
	cfg.Registry.MerkleRoot = ""
	cfg.Registry.AdminAddress = "0x0000000000000000000000000000000000000000"
	require.Equal(ErrInvalidCfg, errors.Cause(ValidateRegistry(cfg)))
}

func TestValidateDB(t *testing.T) {
	require := require.New(t)
	cfg := Default
	require.NoError(ValidateDB(cfg))
	cfg.DB.DbPath = ""
	require.Equal(ErrInvalidCfg, errors.Cause(ValidateDB(cfg)))
	cfg.DB.Backend = db.BackendMemory
	require.NoError(ValidateDB(cfg))
	cfg.DB.Backend = "leveldb"
	require.Equal(ErrInvalidCfg, errors.Cause(ValidateDB(cfg)))
}

func TestValidateAPI(t *testing.T) {
	require := require.New(t)
	cfg := Default
	require.NoError(ValidateAPI(cfg))
	cfg.API.RequestWindow = 0
	require.Equal(ErrInvalidCfg, errors.Cause(ValidateAPI(cfg)))
	cfg.API.Port = 0
	require.NoError(ValidateAPI(cfg))
	cfg.API.Port = -1
	require.Equal(ErrInvalidCfg, errors.Cause(ValidateAPI(cfg)))
	cfg = Default
	cfg.API.RateBurst = 0
	require.Equal(ErrInvalidCfg, errors.Cause(ValidateAPI(cfg)))
}
