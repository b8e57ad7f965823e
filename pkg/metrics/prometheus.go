package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	messagesSent *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	flagsTotal   *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		messagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cellscope_messages_sent_total",
				Help: "Total number of cycle updates sent to backend",
			},
			[]string{"backend", "cell"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cellscope_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		flagsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cellscope_flags_raised_total",
				Help: "Total flags raised by detection passes, by severity",
			},
			[]string{"severity"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cellscope_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordMessageSent records a cycle update sent to a backend.
func (r *Recorder) RecordMessageSent(backend, cell string) {
	r.messagesSent.WithLabelValues(backend, cell).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordFlags records flags raised at a given severity.
func (r *Recorder) RecordFlags(severity string, n int) {
	r.flagsTotal.WithLabelValues(severity).Add(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
