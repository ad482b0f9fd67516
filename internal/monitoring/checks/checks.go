// Package checks holds the dependency probes registered with the health manager at startup.
package checks

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rbmarketing1011/restaunax-backend/internal/database"
	"github.com/rbmarketing1011/restaunax-backend/internal/monitoring"
)

const (
	defaultPingTimeout    = 2 * time.Second
	defaultMaintenanceAge = 6 * time.Hour
)

// RedisPinger is satisfied by cache.RedisStore.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Database pings the SQL connection pool.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	if db == nil {
		return fixed("database", monitoring.StatusDown, "database not configured")
	}
	return ping("database", timeout, func(ctx context.Context) error {
		return database.Ping(ctx, db)
	})
}

// Redis pings the rate limit store. With Redis disabled the database store is in use and the
// probe stays up; enabled but unreachable at startup is reported as degraded.
func Redis(client RedisPinger, enabled bool, timeout time.Duration) monitoring.Check {
	switch {
	case !enabled:
		return fixed("redis", monitoring.StatusUp, "redis disabled, using database cache")
	case client == nil:
		return fixed("redis", monitoring.StatusDegraded, "redis unavailable, using database cache")
	}
	return ping("redis", timeout, client.Ping)
}

// Maintenance inspects the housekeeping job stats: a job whose last run failed is down, and one
// without a success inside maxAge (six hours when zero) is degraded.
func Maintenance(maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceAge
	}
	return monitoring.NewCheck("maintenance", func(context.Context) monitoring.ProbeResult {
		start := time.Now()
		jobs := monitoring.Snapshot().Maintenance.Jobs
		if len(jobs) == 0 {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "no maintenance runs recorded", Duration: time.Since(start)}
		}
		slices.SortFunc(jobs, func(a, b monitoring.MaintenanceJobSummary) int { return strings.Compare(a.Job, b.Job) })

		status := monitoring.StatusUp
		var notes []string
		for _, job := range jobs {
			jobStatus, note := assessJob(job, start, maxAge)
			status = monitoring.WorstStatus(status, jobStatus)
			if note != "" {
				notes = append(notes, job.Job+": "+note)
			}
		}
		return monitoring.ProbeResult{Status: status, Details: strings.Join(notes, "; "), Duration: time.Since(start)}
	})
}

func assessJob(job monitoring.MaintenanceJobSummary, now time.Time, maxAge time.Duration) (monitoring.ProbeStatus, string) {
	if job.ConsecutiveFailures > 0 {
		note := fmt.Sprintf("%d consecutive failures", job.ConsecutiveFailures)
		if job.LastError != "" {
			note += " (" + job.LastError + ")"
		}
		return monitoring.StatusDown, note
	}
	if job.LastSuccessAt.IsZero() {
		return monitoring.StatusUp, "awaiting first run"
	}
	if age := now.Sub(job.LastSuccessAt); age > maxAge {
		return monitoring.StatusDegraded, "last success " + job.LastSuccessAt.UTC().Format(time.RFC3339)
	}
	return monitoring.StatusUp, ""
}

func ping(name string, timeout time.Duration, fn func(context.Context) error) monitoring.Check {
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	return monitoring.NewCheck(name, func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return monitoring.ResultFromError(name, fn(ctx), time.Since(start))
	})
}

func fixed(name string, status monitoring.ProbeStatus, details string) monitoring.Check {
	return monitoring.NewCheck(name, func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: status, Details: details}
	})
}
