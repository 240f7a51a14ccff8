// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// engineMetrics are the prometheus instruments describing engine activity.
// They live on the engine so every context created from it reports into
// the same registry.
type engineMetrics struct {
	evaluations  *prometheus.CounterVec
	cacheHits    *prometheus.CounterVec
	cycles       prometheus.Counter
	cancelled    prometheus.Counter
	invalidated  prometheus.Counter
	memoEntries  prometheus.Gauge
	diagnostics  prometheus.Counter
}

func newEngineMetrics(registry *prometheus.Registry) engineMetrics {
	factory := promauto.With(registry)
	return engineMetrics{
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "candy",
			Subsystem: "query",
			Name:      "evaluations_total",
			Help:      "Provider executions per query name.",
		}, []string{"query"}),
		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "candy",
			Subsystem: "query",
			Name:      "cache_hits_total",
			Help:      "Memoized results served per query name.",
		}, []string{"query"}),
		cycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "candy",
			Subsystem: "query",
			Name:      "cycles_total",
			Help:      "Evaluations aborted because a query re-entered itself.",
		}),
		cancelled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "candy",
			Subsystem: "query",
			Name:      "cancelled_total",
			Help:      "Evaluations abandoned by cooperative cancellation.",
		}),
		invalidated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "candy",
			Subsystem: "query",
			Name:      "invalidated_entries_total",
			Help:      "Memo entries dropped by resource invalidation.",
		}),
		memoEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "candy",
			Subsystem: "query",
			Name:      "memo_entries",
			Help:      "Live entries in the memo table.",
		}),
		diagnostics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "candy",
			Subsystem: "query",
			Name:      "diagnostics_total",
			Help:      "Diagnostics emitted by providers.",
		}),
	}
}
