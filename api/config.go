// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package api

import (
	"time"
)

// Config is the api service config
type Config struct {
	// Port is the json-rpc http port, 0 disables the server
	Port int `yaml:"port"`
	// BatchRequestLimit is the maximum number of requests in a batch.
	BatchRequestLimit int `yaml:"batchRequestLimit"`
	// MaxConcurrency is the maximum number of requests served at once
	MaxConcurrency int64 `yaml:"maxConcurrency"`
	// RateLimit is the number of requests per second accepted across all clients
	RateLimit float64 `yaml:"rateLimit"`
	RateBurst int     `yaml:"rateBurst"`
	// RequestWindow is how far in the future a signed request deadline may be
	RequestWindow  time.Duration `yaml:"requestWindow"`
	AcquireTimeout time.Duration `yaml:"acquireTimeout"`
}

// DefaultConfig is the default config
var DefaultConfig = Config{
	Port:              15015,
	BatchRequestLimit: 100,
	MaxConcurrency:    1000,
	RateLimit:         200,
	RateBurst:         400,
	RequestWindow:     10 * time.Minute,
	AcquireTimeout:    10 * time.Second,
}
