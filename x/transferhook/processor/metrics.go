// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package processor

import (
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "transferhook"

type metrics struct {
	instructions *prometheus.CounterVec
	failures     *prometheus.CounterVec
	volume       prometheus.Counter
	profiles     prometheus.Counter
}

func newMetrics(r prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instructions_total",
			Help:      "number of instructions processed",
		}, []string{"instruction"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "number of failed instructions by error code",
		}, []string{"code"}),
		volume: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "volume_total",
			Help:      "amount moved through hooked transfers",
		}),
		profiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profiles_total",
			Help:      "number of profiles registered",
		}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		r.Register(m.instructions),
		r.Register(m.failures),
		r.Register(m.volume),
		r.Register(m.profiles),
	)
	return m, errs.Err
}
