// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package credential

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	_operationMtc = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iotex_sbt_operation",
			Help: "Registry operations by receipt status.",
		},
		[]string{"method", "status"},
	)
	_credentialMtc = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "iotex_sbt_credentials",
			Help: "Registry credential counters.",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(_operationMtc)
	prometheus.MustRegister(_credentialMtc)
}

func (c *Controller) observe(method string, err error) {
	_operationMtc.WithLabelValues(method, StatusOf(err).String()).Inc()
	_credentialMtc.WithLabelValues("active").Set(float64(c.store.Size()))
	_credentialMtc.WithLabelValues("issued").Set(float64(c.store.NextID()))
}
