package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metricSet struct {
	authAttempts        *prometheus.CounterVec
	registrations       *prometheus.CounterVec
	verificationEvents  *prometheus.CounterVec
	emailDispatches     *prometheus.CounterVec
	orderEvents         *prometheus.CounterVec
	rateLimitRejections *prometheus.CounterVec
	requestsInFlight    prometheus.Gauge
	apiLatency          *prometheus.HistogramVec
	maintenanceRuns     *prometheus.CounterVec
	maintenanceDuration *prometheus.HistogramVec
	maintenanceLastRun  *prometheus.GaugeVec
}

// newMetricSet registers every collector on reg under namespace.
func newMetricSet(reg prometheus.Registerer, namespace string) *metricSet {
	f := promauto.With(reg)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}
	histogram := func(name, help string, labels ...string) *prometheus.HistogramVec {
		return f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
			Buckets:   prometheus.DefBuckets,
		}, labels)
	}

	return &metricSet{
		authAttempts:        counter("auth_attempts_total", "Login attempts by result.", "result"),
		registrations:       counter("registrations_total", "Account registrations by result.", "result"),
		verificationEvents:  counter("verification_events_total", "Verification token issue, consume and resend outcomes.", "event", "result"),
		emailDispatches:     counter("email_dispatch_total", "Outbound email attempts by result.", "result"),
		orderEvents:         counter("order_events_total", "Order lifecycle events.", "event"),
		rateLimitRejections: counter("rate_limit_rejections_total", "Requests rejected by a rate limiter.", "scope"),
		requestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Requests currently being served.",
		}),
		apiLatency:          histogram("api_latency_seconds", "API latency by route template.", "method", "route", "status"),
		maintenanceRuns:     counter("maintenance_runs_total", "Maintenance job executions.", "job", "result"),
		maintenanceDuration: histogram("maintenance_duration_seconds", "Maintenance job duration.", "job"),
		maintenanceLastRun: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "maintenance_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run per job.",
		}, []string{"job"}),
	}
}
