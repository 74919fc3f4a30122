// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package itx

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-sbt/pkg/log"
)

var heartbeatMtc = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "iotex_sbt_heartbeat_status",
		Help: "Registry heartbeat status.",
	},
	[]string{"status_type", "source"},
)

func init() {
	prometheus.MustRegister(heartbeatMtc)
}

// HeartbeatHandler is the handler to periodically log the registry key metrics
type HeartbeatHandler struct {
	s *Server
}

// NewHeartbeatHandler instantiates a HeartbeatHandler instance
func NewHeartbeatHandler(s *Server) *HeartbeatHandler {
	return &HeartbeatHandler{s: s}
}

// Log executes the logging logic
func (h *HeartbeatHandler) Log() {
	registry := h.s.Registry()
	supply := registry.TotalSupply()
	root := registry.MerkleRoot()
	log.L().Info("Registry status.",
		zap.Uint64("totalSupply", supply),
		zap.String("owner", registry.Owner().Hex()),
		zap.String("merkleRoot", hexutil.Encode(root[:])),
	)
	heartbeatMtc.WithLabelValues("totalSupply", "registry").Set(float64(supply))

	if report := h.s.APIStats().BuildReport(); report != "" {
		log.L().Info("\n" + report)
	}
}
