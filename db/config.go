// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package db

// backend names accepted in Config.Backend
const (
	BackendBolt   = "bolt"
	BackendPebble = "pebble"
	BackendMemory = "memory"
)

// Config is the config for database
type Config struct {
	DbPath string `yaml:"dbPath"`
	// Backend is the storage engine, one of bolt, pebble or memory
	Backend string `yaml:"backend"`
	// NumRetries is the number of retries
	NumRetries uint8 `yaml:"numRetries"`
	// ReadOnly is set db to be opened in read only mode
	ReadOnly bool `yaml:"readOnly"`
}

// DefaultConfig returns the default config
var DefaultConfig = Config{
	DbPath:     "./sbt.db",
	Backend:    BackendBolt,
	NumRetries: 3,
	ReadOnly:   false,
}
