// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package recorder

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arcollect/arcollect/lib/capture"
	"github.com/arcollect/arcollect/lib/frame"
)

// Metrics instruments a Recorder. A nil *Metrics records nothing.
type Metrics struct {
	shipped        *prometheus.CounterVec
	encodeFailures *prometheus.CounterVec
	batchesFailed  prometheus.Counter
	dropped        prometheus.Counter
	queued         prometheus.Gauge
	buffers        *bufferCollector
}

// NewMetrics creates the recorder metrics and registers them on
// registerer. Buffer gauges are read at scrape time from the buffers
// of the recorder the metrics are passed to.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	metrics := &Metrics{
		shipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arcollect",
			Subsystem: "recorder",
			Name:      "frames_shipped_total",
			Help:      "Frames accepted by the collector, by modality.",
		}, []string{"modality"}),
		encodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arcollect",
			Subsystem: "recorder",
			Name:      "encode_failures_total",
			Help:      "Raw frames dropped because conversion failed, by modality.",
		}, []string{"modality"}),
		batchesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arcollect",
			Subsystem: "recorder",
			Name:      "batches_failed_total",
			Help:      "Upload attempts that failed and were scheduled for retry.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arcollect",
			Subsystem: "recorder",
			Name:      "frames_dropped_total",
			Help:      "Converted frames evicted from a full upload queue.",
		}),
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arcollect",
			Subsystem: "recorder",
			Name:      "queued_frames",
			Help:      "Converted frames waiting for upload.",
		}),
		buffers: newBufferCollector(),
	}

	collectors := []prometheus.Collector{
		metrics.shipped,
		metrics.encodeFailures,
		metrics.batchesFailed,
		metrics.dropped,
		metrics.queued,
		metrics.buffers,
	}
	for _, collector := range collectors {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return metrics, nil
}

func (m *Metrics) framesShipped(frames []frame.ARFrame) {
	if m == nil {
		return
	}
	for i := range frames {
		m.shipped.WithLabelValues(frames[i].Kind.String()).Inc()
	}
}

func (m *Metrics) encodeFailed(modality frame.Modality) {
	if m == nil {
		return
	}
	m.encodeFailures.WithLabelValues(modality.String()).Inc()
}

func (m *Metrics) batchFailed() {
	if m == nil {
		return
	}
	m.batchesFailed.Inc()
}

func (m *Metrics) framesDropped(count int) {
	if m == nil {
		return
	}
	m.dropped.Add(float64(count))
}

func (m *Metrics) setQueued(count int) {
	if m == nil {
		return
	}
	m.queued.Set(float64(count))
}

func (m *Metrics) watchBuffers(buffers []capture.ModalityBuffer) {
	if m == nil {
		return
	}
	m.buffers.set(buffers)
}

// bufferCollector reports the state of live capture buffers on each
// scrape.
type bufferCollector struct {
	buffered   *prometheus.Desc
	appended   *prometheus.Desc
	outOfOrder *prometheus.Desc
	skipped    *prometheus.Desc

	mu      sync.Mutex
	buffers []capture.ModalityBuffer
}

func newBufferCollector() *bufferCollector {
	labels := []string{"modality"}
	return &bufferCollector{
		buffered: prometheus.NewDesc("arcollect_capture_buffered_frames",
			"Raw frames waiting in a capture buffer.", labels, nil),
		appended: prometheus.NewDesc("arcollect_capture_appended_frames_total",
			"Frames accepted by a capture buffer.", labels, nil),
		outOfOrder: prometheus.NewDesc("arcollect_capture_out_of_order_frames_total",
			"Frames rejected for a timestamp older than the newest accepted one.", labels, nil),
		skipped: prometheus.NewDesc("arcollect_capture_skipped_total",
			"Capture attempts that produced no frame.", labels, nil),
	}
}

func (c *bufferCollector) set(buffers []capture.ModalityBuffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffers = buffers
}

func (c *bufferCollector) Describe(descriptions chan<- *prometheus.Desc) {
	descriptions <- c.buffered
	descriptions <- c.appended
	descriptions <- c.outOfOrder
	descriptions <- c.skipped
}

func (c *bufferCollector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	buffers := c.buffers
	c.mu.Unlock()

	for _, buffer := range buffers {
		modality := buffer.Modality().String()
		stats := buffer.Stats()
		metrics <- prometheus.MustNewConstMetric(c.buffered, prometheus.GaugeValue, float64(buffer.Len()), modality)
		metrics <- prometheus.MustNewConstMetric(c.appended, prometheus.CounterValue, float64(stats.Appended), modality)
		metrics <- prometheus.MustNewConstMetric(c.outOfOrder, prometheus.CounterValue, float64(stats.OutOfOrder), modality)
		metrics <- prometheus.MustNewConstMetric(c.skipped, prometheus.CounterValue, float64(stats.Skipped), modality)
	}
}
