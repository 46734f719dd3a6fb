package array

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus instrumentation for the array client. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry             *prometheus.Registry
	requests             *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	sessionRenewals      prometheus.Counter
	versionRenegotiation prometheus.Counter
}

// NewMetrics creates a collector registered on reg. A nil reg gets a fresh
// private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flashconn",
			Subsystem: "array",
			Name:      "requests_total",
			Help:      "Array management API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flashconn",
			Subsystem: "array",
			Name:      "request_duration_seconds",
			Help:      "Array management API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		sessionRenewals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flashconn",
			Subsystem: "array",
			Name:      "session_renewals_total",
			Help:      "Sessions established or renewed against the array.",
		}),
		versionRenegotiation: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flashconn",
			Subsystem: "array",
			Name:      "version_renegotiations_total",
			Help:      "API version renegotiations triggered by rejected versions.",
		}),
	}
	reg.MustRegister(m.requests, m.requestDuration, m.sessionRenewals, m.versionRenegotiation)
	return m
}

// Registry returns the registry the collector is registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// timeRequest wraps one HTTP round trip with latency and outcome tracking.
func (m *Metrics) timeRequest(method string, do func() (*http.Response, error)) (*http.Response, error) {
	if m == nil {
		return do()
	}
	start := time.Now()
	resp, err := do()
	m.requestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	outcome := "success"
	switch {
	case err != nil:
		outcome = "unreachable"
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		outcome = "fault"
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	return resp, err
}

func (m *Metrics) recordSessionRenewal() {
	if m != nil {
		m.sessionRenewals.Inc()
	}
}

func (m *Metrics) recordVersionRenegotiation() {
	if m != nil {
		m.versionRenegotiation.Inc()
	}
}
