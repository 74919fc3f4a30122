// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	uconfig "go.uber.org/config"

	"github.com/iotexproject/iotex-sbt/api"
	"github.com/iotexproject/iotex-sbt/credential"
	"github.com/iotexproject/iotex-sbt/db"
	"github.com/iotexproject/iotex-sbt/pkg/log"
)

// IMPORTANT: to define a config, add a field or a new config type to the existing config types. In addition, provide
// the default value in Default var.

var (
	// Default is the default config
	Default = Config{
		Registry: credential.DefaultConfig,
		DB:       db.DefaultConfig,
		API:      api.DefaultConfig,
		System: System{
			HTTPStatsPort:     8080,
			HeartbeatInterval: 10 * time.Second,
		},
		Tracer: Tracer{
			ServiceName:   "iotex-sbt",
			SamplingRatio: "1.0",
		},
		SubLogs: make(map[string]log.GlobalConfig),
	}

	// ErrInvalidCfg indicates the invalid config value
	ErrInvalidCfg = errors.New("invalid config value")

	// Validates is the collection config validation functions
	Validates = []Validate{
		ValidateRegistry,
		ValidateDB,
		ValidateAPI,
	}
)

type (
	// System is the system config
	System struct {
		// HTTPStatsPort is the port serving metrics and log level, 0 disables it
		HTTPStatsPort     int           `yaml:"httpStatsPort"`
		HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`
	}

	// Tracer is the tracing config, disabled without an endpoint
	Tracer struct {
		ServiceName   string `yaml:"serviceName"`
		EndPoint      string `yaml:"endpoint"`
		InstanceID    string `yaml:"instanceID"`
		SamplingRatio string `yaml:"samplingRatio"`
	}

	// Config is the root config struct, each package's config should be put as its sub struct
	Config struct {
		Registry credential.Config           `yaml:"registry"`
		DB       db.Config                   `yaml:"db"`
		API      api.Config                  `yaml:"api"`
		System   System                      `yaml:"system"`
		Tracer   Tracer                      `yaml:"tracer"`
		Log      log.GlobalConfig            `yaml:"log"`
		SubLogs  map[string]log.GlobalConfig `yaml:"subLogs"`
	}

	// Validate is the interface of validating the config
	Validate func(Config) error
)

// New creates a config instance. It first loads the default configs. If the config path is not empty, it will read from
// the file and override the default configs. By default, it will apply all validation functions. To bypass validation,
// use DoNotValidate instead.
func New(configPaths []string, validates ...Validate) (Config, error) {
	opts := make([]uconfig.YAMLOption, 0)
	opts = append(opts, uconfig.Static(Default))
	opts = append(opts, uconfig.Expand(os.LookupEnv))
	for _, path := range configPaths {
		if path != "" {
			opts = append(opts, uconfig.File(path))
		}
	}
	yaml, err := uconfig.NewYAML(opts...)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to init config")
	}

	var cfg Config
	if err := yaml.Get(uconfig.Root).Populate(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to unmarshal YAML config to struct")
	}

	// By default, the config needs to pass all the validation
	if len(validates) == 0 {
		validates = Validates
	}
	for _, validate := range validates {
		if err := validate(cfg); err != nil {
			return Config{}, errors.Wrap(err, "failed to validate config")
		}
	}
	return cfg, nil
}

// ValidateRegistry validates the registry genesis
func ValidateRegistry(cfg Config) error {
	if _, err := cfg.Registry.Genesis(); err != nil {
		return errors.Wrap(ErrInvalidCfg, err.Error())
	}
	return nil
}

// ValidateDB validates the db configs
func ValidateDB(cfg Config) error {
	switch cfg.DB.Backend {
	case db.BackendMemory:
		return nil
	case db.BackendBolt, db.BackendPebble:
	default:
		return errors.Wrapf(ErrInvalidCfg, "unknown db backend %s", cfg.DB.Backend)
	}
	if cfg.DB.DbPath == "" {
		return errors.Wrap(ErrInvalidCfg, "db path is empty")
	}
	return nil
}

// ValidateAPI validates the api configs
func ValidateAPI(cfg Config) error {
	if cfg.API.Port < 0 {
		return errors.Wrap(ErrInvalidCfg, "api port is negative")
	}
	if cfg.API.Port == 0 {
		return nil
	}
	if cfg.API.RequestWindow <= 0 {
		return errors.Wrap(ErrInvalidCfg, "request window is not positive when the api is enabled")
	}
	if cfg.API.MaxConcurrency <= 0 || cfg.API.BatchRequestLimit <= 0 {
		return errors.Wrap(ErrInvalidCfg, "request limits are not positive when the api is enabled")
	}
	if cfg.API.RateLimit <= 0 || cfg.API.RateBurst <= 0 {
		return errors.Wrap(ErrInvalidCfg, "rate limit is not positive when the api is enabled")
	}
	return nil
}

// DoNotValidate validates the given config
func DoNotValidate(cfg Config) error { return nil }
