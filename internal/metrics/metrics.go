// Package metrics exposes Prometheus instrumentation for flag grids, their
// update queues and the snapshot flusher.
//
// A nil *Metrics is valid everywhere and records nothing, so packages can
// accept an optional *Metrics without nil checks at every call site.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors registered for one registry.
type Metrics struct {
	Ops                  *prometheus.CounterVec
	QueueDepth           *prometheus.GaugeVec
	QueueApplied         *prometheus.CounterVec
	SearchDuration       prometheus.Histogram
	Flushes              *prometheus.CounterVec
	ValidationRejections prometheus.Counter
}

// New registers the flaggrid collectors with reg. Passing nil registers with
// a fresh private registry, which is what tests usually want.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		Ops: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flaggrid_ops_total",
			Help: "Grid operations dispatched, by op kind and result",
		}, []string{"op", "result"}),
		QueueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "flaggrid_queue_depth",
			Help: "Number of deferred updates waiting in a queue",
		}, []string{"queue"}),
		QueueApplied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flaggrid_queue_applied_total",
			Help: "Deferred updates applied, by queue and result",
		}, []string{"queue", "result"}),
		SearchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "flaggrid_search_duration_seconds",
			Help:    "Time to complete a parallel overlay search",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}),
		Flushes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flaggrid_flushes_total",
			Help: "Snapshot flushes, by result",
		}, []string{"result"}),
		ValidationRejections: f.NewCounter(prometheus.CounterOpts{
			Name: "flaggrid_validation_rejections_total",
			Help: "Writes declined by the configured validator",
		}),
	}
}

// ObserveOp counts one dispatched operation.
func (m *Metrics) ObserveOp(op, result string) {
	if m == nil {
		return
	}
	m.Ops.WithLabelValues(op, result).Inc()
}

// ObserveRejection counts one write declined by a validator.
func (m *Metrics) ObserveRejection() {
	if m == nil {
		return
	}
	m.ValidationRejections.Inc()
}

// SetQueueDepth records the current length of the named queue.
func (m *Metrics) SetQueueDepth(queue string, depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// ObserveQueueApply counts one applied queue item.
func (m *Metrics) ObserveQueueApply(queue string, err error) {
	if m == nil {
		return
	}
	m.QueueApplied.WithLabelValues(queue, result(err)).Inc()
}

// ObserveSearch records how long a search took.
func (m *Metrics) ObserveSearch(d time.Duration) {
	if m == nil {
		return
	}
	m.SearchDuration.Observe(d.Seconds())
}

// ObserveFlush counts one flush attempt.
func (m *Metrics) ObserveFlush(err error) {
	if m == nil {
		return
	}
	m.Flushes.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
