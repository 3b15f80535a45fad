// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arcollect/arcollect/lib/frame"
)

// Metrics instruments a Service. A nil *Metrics records nothing.
type Metrics struct {
	framesReceived   *prometheus.CounterVec
	requestsRejected *prometheus.CounterVec
	sessions         prometheus.Gauge
}

// NewMetrics creates the collector metrics and registers them on
// registerer.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	metrics := &Metrics{
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arcollect",
			Subsystem: "collector",
			Name:      "frames_received_total",
			Help:      "Frames stored, by modality.",
		}, []string{"modality"}),
		requestsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arcollect",
			Subsystem: "collector",
			Name:      "requests_rejected_total",
			Help:      "Session requests rejected, by action.",
		}, []string{"action"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arcollect",
			Subsystem: "collector",
			Name:      "sessions",
			Help:      "Sessions currently held.",
		}),
	}

	for _, collector := range []prometheus.Collector{metrics.framesReceived, metrics.requestsRejected, metrics.sessions} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return metrics, nil
}

func (m *Metrics) observeFrames(frames []frame.ARFrame) {
	if m == nil {
		return
	}
	for i := range frames {
		m.framesReceived.WithLabelValues(frames[i].Kind.String()).Inc()
	}
}

func (m *Metrics) rejected(action string) {
	if m == nil {
		return
	}
	m.requestsRejected.WithLabelValues(action).Inc()
}

func (m *Metrics) setSessions(count int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(count))
}
