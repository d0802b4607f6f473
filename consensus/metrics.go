// Copyright (C) 2019-2026, VertexDAG Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import "github.com/prometheus/client_golang/prometheus"

// metrics mirrors the teacher's convention of registering a handful of
// prometheus collectors at construction time (poll.NewSet takes a
// prometheus.Registerer for the same reason) rather than threading ad
// hoc counters through the round loop.
type metrics struct {
	roundsTotal     prometheus.Counter
	finalizedTotal  prometheus.Counter
	insufficientNet prometheus.Counter
	byzantineEvents prometheus.Counter
	roundDuration   prometheus.Histogram
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		roundsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vertexdag",
			Subsystem: "consensus",
			Name:      "rounds_total",
			Help:      "Total consensus rounds executed across all vertices.",
		}),
		finalizedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vertexdag",
			Subsystem: "consensus",
			Name:      "finalized_total",
			Help:      "Total vertices finalized.",
		}),
		insufficientNet: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vertexdag",
			Subsystem: "consensus",
			Name:      "insufficient_network_total",
			Help:      "Total rounds paused for insufficient connected peers.",
		}),
		byzantineEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vertexdag",
			Subsystem: "consensus",
			Name:      "byzantine_events_total",
			Help:      "Total dropped responses due to equivocation or distrust.",
		}),
		roundDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vertexdag",
			Subsystem: "consensus",
			Name:      "round_duration_seconds",
			Help:      "Wall-clock duration of a single consensus round.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	if registerer == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.roundsTotal, m.finalizedTotal, m.insufficientNet, m.byzantineEvents, m.roundDuration} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
