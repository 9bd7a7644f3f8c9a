// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package coverage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus instruments the monitor exports for a single
// call's generations, enriching the plain "executions per second" log line
// the rest of this codebase uses with queryable series.
type Metrics struct {
	ParentPopulation prometheus.Gauge
	NoveltyScore     prometheus.Histogram
	Evicted          prometheus.Counter
}

// NewMetrics registers a fresh instrument set on reg. Callers typically pass
// a per-process prometheus.NewRegistry() rather than the global registry,
// since each generation of re-exec'd monitors is a distinct process.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ParentPopulation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fffc_parent_population",
			Help: "Number of surviving parent mutation directories for the current call.",
		}),
		NoveltyScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fffc_novelty_score",
			Help:    "Distribution of per-parent novelty scores computed during scoring passes.",
			Buckets: prometheus.DefBuckets,
		}),
		Evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fffc_parents_evicted_total",
			Help: "Total number of parent mutation directories removed by reap.",
		}),
	}
	for _, c := range []prometheus.Collector{m.ParentPopulation, m.NoveltyScore, m.Evicted} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
