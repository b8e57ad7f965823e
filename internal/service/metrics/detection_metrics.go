package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	DetectionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cellscope",
			Subsystem: "detection",
			Name:      "latency_seconds",
			Help:      "Latency of detection endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	DetectionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cellscope",
			Subsystem: "detection",
			Name:      "errors_total",
			Help:      "Errors by detection endpoint",
		},
		[]string{"endpoint"},
	)

	FlagsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cellscope",
			Subsystem: "detection",
			Name:      "flags_total",
			Help:      "Flags emitted by severity",
		},
		[]string{"severity"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(DetectionLatency, DetectionErrors, FlagsEmitted)
	})
}
