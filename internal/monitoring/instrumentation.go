package monitoring

import (
	"strconv"
	"strings"
	"time"
)

// with runs fn against the installed module. Before SetModule every Record call is a no-op.
func with(fn func(m *Module)) {
	if m := current.Load(); m != nil {
		fn(m)
	}
}

func RecordAuthAttempt(result string) {
	with(func(m *Module) {
		result = label(result)
		m.metrics.authAttempts.WithLabelValues(result).Inc()
		m.stats.recordAuth(result)
	})
}

func RecordRegistration(result string) {
	with(func(m *Module) {
		result = label(result)
		m.metrics.registrations.WithLabelValues(result).Inc()
		m.stats.recordRegistration(result)
	})
}

// RecordVerificationEvent counts an issued, consumed or resent token by outcome.
func RecordVerificationEvent(event, result string) {
	with(func(m *Module) {
		event, result = label(event), label(result)
		m.metrics.verificationEvents.WithLabelValues(event, result).Inc()
		m.stats.recordVerification(event, result)
	})
}

func RecordEmailDispatch(result string) {
	with(func(m *Module) {
		result = label(result)
		m.metrics.emailDispatches.WithLabelValues(result).Inc()
		m.stats.recordEmail(result)
	})
}

func RecordOrderEvent(event string) {
	with(func(m *Module) {
		event = label(event)
		m.metrics.orderEvents.WithLabelValues(event).Inc()
		m.stats.recordOrder(event)
	})
}

func RecordRateLimitRejection(scope string) {
	with(func(m *Module) {
		m.metrics.rateLimitRejections.WithLabelValues(label(scope)).Inc()
		m.stats.recordRateLimited()
	})
}

// BeginRequest marks a request in flight. The returned func must be called exactly once when
// the response is written; route should be the router template, not the raw path.
func BeginRequest() func(method, route string, status int) {
	m := current.Load()
	if m == nil {
		return func(string, string, int) {}
	}
	start := time.Now()
	m.metrics.requestsInFlight.Inc()

	return func(method, route string, status int) {
		m.metrics.requestsInFlight.Dec()
		method = strings.ToUpper(strings.TrimSpace(method))
		if method == "" {
			method = "UNKNOWN"
		}
		if route == "" {
			route = "unmatched"
		}
		m.metrics.apiLatency.
			WithLabelValues(method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	}
}

// RecordMaintenanceRun stores a finished job run. message is kept as the job's last error on failure.
func RecordMaintenanceRun(job, result, message string, duration time.Duration) {
	with(func(m *Module) {
		job, result = label(job), label(result)
		if duration < 0 {
			duration = 0
		}
		m.metrics.maintenanceRuns.WithLabelValues(job, result).Inc()
		m.metrics.maintenanceDuration.WithLabelValues(job).Observe(duration.Seconds())
		if result == "success" {
			m.metrics.maintenanceLastRun.WithLabelValues(job).SetToCurrentTime()
		}
		m.stats.recordJob(job, result, strings.TrimSpace(message), duration, time.Now())
	})
}

func label(value string) string {
	if value = strings.ToLower(strings.TrimSpace(value)); value != "" {
		return value
	}
	return "unknown"
}
