// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Usage:
//
//	make build
//	./bin/sbtd -config-path=./config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-sbt/config"
	"github.com/iotexproject/iotex-sbt/pkg/log"
	"github.com/iotexproject/iotex-sbt/pkg/tracer"
	"github.com/iotexproject/iotex-sbt/server/itx"
)

// configPaths accepts a comma separated list, later files override earlier ones
var configPaths string

func init() {
	flag.StringVar(&configPaths, "config-path", "", "Config file paths, comma separated")
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr,
			"usage: sbtd -config-path=[string]\n")
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()
}

func main() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-stop
		cancel()
	}()

	cfg, err := config.New(strings.Split(configPaths, ","))
	if err != nil {
		glogger := zap.NewExample()
		glogger.Fatal("Failed to new config.", zap.Error(err))
	}
	if err := log.InitLoggers(cfg.Log, cfg.SubLogs); err != nil {
		glogger := zap.NewExample()
		glogger.Fatal("Failed to init loggers.", zap.Error(err))
	}
	log.S().Infof("Config in use: %+v", cfg)

	tp, err := tracer.NewProvider(
		tracer.WithServiceName(cfg.Tracer.ServiceName),
		tracer.WithEndpoint(cfg.Tracer.EndPoint),
		tracer.WithInstanceID(cfg.Tracer.InstanceID),
		tracer.WithSamplingRatio(cfg.Tracer.SamplingRatio),
	)
	if err != nil {
		log.L().Fatal("Cannot config tracer provider.", zap.Error(err))
	}
	if tp != nil {
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.L().Error("Failed to shutdown tracer provider.", zap.Error(err))
			}
		}()
	}

	probeSvr := itx.NewProbeServer(cfg)
	if err := probeSvr.Start(ctx); err != nil {
		log.L().Fatal("Failed to start probe server.", zap.Error(err))
	}

	svr, err := itx.NewServer(cfg)
	if err != nil {
		log.L().Fatal("Failed to create server.", zap.Error(err))
	}
	itx.StartServer(ctx, svr, probeSvr, cfg)

	livenessCtx, livenessCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer livenessCancel()
	if err := probeSvr.Stop(livenessCtx); err != nil {
		log.L().Error("Error when stopping probe server.", zap.Error(err))
	}
}
