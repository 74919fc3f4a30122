// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package itx

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-sbt/api"
	"github.com/iotexproject/iotex-sbt/config"
	"github.com/iotexproject/iotex-sbt/credential"
	"github.com/iotexproject/iotex-sbt/db"
	"github.com/iotexproject/iotex-sbt/pkg/lifecycle"
	"github.com/iotexproject/iotex-sbt/pkg/log"
	"github.com/iotexproject/iotex-sbt/pkg/nodestats"
	"github.com/iotexproject/iotex-sbt/pkg/probe"
	"github.com/iotexproject/iotex-sbt/pkg/routine"
)

// Server is the registry daemon containing all components.
type Server struct {
	cfg       config.Config
	kv        db.KVStore
	registry  *credential.Controller
	apiServer *api.HTTPServer
	apiStats  *nodestats.APILocalStats
	lifecycle lifecycle.Lifecycle
}

// NewServer creates a new server
func NewServer(cfg config.Config) (*Server, error) {
	kv, err := db.CreateKVStore(cfg.DB)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create kv store")
	}
	return newServer(cfg, kv)
}

// NewInMemTestServer creates a test server in memory
func NewInMemTestServer(cfg config.Config) (*Server, error) {
	return newServer(cfg, db.NewMemKVStore())
}

func newServer(cfg config.Config, kv db.KVStore) (*Server, error) {
	genesis, err := cfg.Registry.Genesis()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load registry genesis")
	}
	registry := credential.NewController(
		kv,
		genesis,
		credential.WithMetadata(cfg.Registry.Name, cfg.Registry.Symbol),
	)
	svr := &Server{
		cfg:      cfg,
		kv:       kv,
		registry: registry,
		apiStats: nodestats.NewAPILocalStats(),
	}
	// the controller starts and stops the kv store
	svr.lifecycle.Add(registry)
	if apiServer := api.NewHTTPServer(cfg.API, registry, api.WithStats(svr.apiStats)); apiServer != nil {
		svr.apiServer = apiServer
		svr.lifecycle.Add(apiServer)
	}
	return svr, nil
}

// Start starts the server
func (s *Server) Start(ctx context.Context) error {
	if err := s.lifecycle.OnStartSequentially(ctx); err != nil {
		return errors.Wrap(err, "error when starting registry server")
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	if err := s.lifecycle.OnStop(ctx); err != nil {
		return errors.Wrap(err, "error when stopping registry server")
	}
	return nil
}

// Registry returns the credential controller
func (s *Server) Registry() *credential.Controller {
	return s.registry
}

// APIServer returns the json-rpc server, nil if disabled
func (s *Server) APIServer() *api.HTTPServer {
	return s.apiServer
}

// APIStats returns the json-rpc call stats
func (s *Server) APIStats() *nodestats.APILocalStats {
	return s.apiStats
}

// NewProbeServer creates the stats server answering probes, metrics and log level requests
func NewProbeServer(cfg config.Config) *probe.Server {
	return probe.New(cfg.System.HTTPStatsPort, probe.WithMux(log.RegisterLevelConfigMux))
}

// StartServer starts a registry server, blocks until ctx is done and then stops it
func StartServer(ctx context.Context, svr *Server, probeSvr *probe.Server, cfg config.Config) {
	if err := svr.Start(ctx); err != nil {
		log.L().Fatal("Failed to start server.", zap.Error(err))
		return
	}
	probeSvr.Ready()

	if cfg.System.HeartbeatInterval > 0 {
		task := routine.NewRecurringTask(NewHeartbeatHandler(svr).Log, cfg.System.HeartbeatInterval)
		if err := task.Start(ctx); err != nil {
			log.L().Panic("Failed to start heartbeat routine.", zap.Error(err))
		}
		defer func() {
			if err := task.Stop(context.Background()); err != nil {
				log.L().Panic("Failed to stop heartbeat routine.", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	probeSvr.NotReady()
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := svr.Stop(stopCtx); err != nil {
		log.L().Panic("Failed to stop server.", zap.Error(err))
	}
}
