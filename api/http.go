// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/iotexproject/iotex-sbt/pkg/log"
	"github.com/iotexproject/iotex-sbt/pkg/nodestats"
	"github.com/iotexproject/iotex-sbt/pkg/tracer"
	"github.com/iotexproject/iotex-sbt/pkg/util/httputil"
)

type (
	// HTTPServer serves the registry over json-rpc
	HTTPServer struct {
		svr  *http.Server
		addr string
	}

	// hTTPHandler handles requests from http protocol
	hTTPHandler struct {
		msgHandler     *rpcHandler
		sem            *semaphore.Weighted
		limiter        *rate.Limiter
		acquireTimeout time.Duration
	}

	// Option is the option to create a server
	Option func(*options)

	options struct {
		clock clock.Clock
		stats nodestats.RPCLocalStats
	}
)

// WithClock sets the clock checking request deadlines
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

// WithStats reports every handled call to stats
func WithStats(stats nodestats.RPCLocalStats) Option {
	return func(o *options) {
		o.stats = stats
	}
}

// NewHTTPServer creates a new http server, nil if the port is 0
func NewHTTPServer(cfg Config, registry Registry, opts ...Option) *HTTPServer {
	if cfg.Port == 0 {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/", otelhttp.NewHandler(NewHandler(cfg, registry, opts...), "sbt-rpc"))
	addr := ":" + strconv.Itoa(cfg.Port)
	svr := httputil.NewServer(addr, mux, httputil.ReadHeaderTimeout(10*time.Second))
	return &HTTPServer{
		svr:  &svr,
		addr: addr,
	}
}

// NewHandler creates the json-rpc http handler
func NewHandler(cfg Config, registry Registry, opts ...Option) http.Handler {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	return &hTTPHandler{
		msgHandler:     newRPCHandler(registry, NewAuthenticator(cfg.RequestWindow, o.clock), cfg.BatchRequestLimit, o.stats),
		sem:            semaphore.NewWeighted(cfg.MaxConcurrency),
		limiter:        rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		acquireTimeout: cfg.AcquireTimeout,
	}
}

// Start starts the http server
func (hSvr *HTTPServer) Start(_ context.Context) error {
	ln, err := httputil.LimitListener(hSvr.addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", hSvr.addr)
	}
	go func() {
		if err := hSvr.svr.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.L().Fatal("Node failed to serve.", zap.Error(err))
		}
	}()
	log.L().Info("Json-rpc server started.", zap.String("addr", hSvr.addr))
	return nil
}

// Stop stops the http server
func (hSvr *HTTPServer) Stop(ctx context.Context) error {
	return hSvr.svr.Shutdown(ctx)
}

func (handler *hTTPHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.Write([]byte("IoTeX SBT RPC endpoint is ready."))
		return
	}
	if !handler.limiter.Allow() {
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}

	ctx, span := tracer.NewSpan(req.Context(), "http")
	defer span.End()
	acquireCtx, cancel := context.WithTimeout(ctx, handler.acquireTimeout)
	defer cancel()
	if err := handler.sem.Acquire(acquireCtx, 1); err != nil {
		w.WriteHeader(http.StatusTooManyRequests)
		log.L().Error("fail to acquire semaphore", zap.Error(err))
		return
	}
	defer handler.sem.Release(1)

	resp := handler.msgHandler.HandlePOSTReq(ctx, req.Body)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.L().Warn("fail to respond request.", zap.Error(err))
	}
}
