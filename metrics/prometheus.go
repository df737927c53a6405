package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exports counters and latency histograms under the
// paymesh namespace. Counters are labeled by event type and service,
// histograms by operation and service.
type PrometheusRecorder struct {
	counters  *prometheus.CounterVec
	histogram *prometheus.HistogramVec
}

func NewPrometheusRecorder() Recorder {
	counters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paymesh",
			Name:      "events_total",
			Help:      "paymesh event counters",
		},
		[]string{"type", "service"},
	)

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paymesh",
			Name:      "latency_seconds",
			Help:      "paymesh operation latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "service"},
	)

	prometheus.MustRegister(counters, histogram)

	return &PrometheusRecorder{
		counters:  counters,
		histogram: histogram,
	}
}

func (p *PrometheusRecorder) IncCounter(name string, labels map[string]string) {
	p.counters.With(prometheus.Labels{
		"type":    name,
		"service": labels["service"],
	}).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	p.histogram.With(prometheus.Labels{
		"operation": name,
		"service":   labels["service"],
	}).Observe(d.Seconds())
}
