package monitoring

import "time"

// Summary surfaces aggregated counters for the monitoring endpoint.
type Summary struct {
	GeneratedAt   time.Time           `json:"generated_at"`
	Auth          AuthSummary         `json:"auth"`
	Registrations RegistrationSummary `json:"registrations"`
	Verification  VerificationSummary `json:"verification"`
	Email         EmailSummary        `json:"email"`
	Orders        OrderSummary        `json:"orders"`
	RateLimited   uint64              `json:"rate_limited"`
	Maintenance   MaintenanceSummary  `json:"maintenance"`
}

type AuthSummary struct {
	Success uint64 `json:"success"`
	Failure uint64 `json:"failure"`
	Error   uint64 `json:"error"`
}

type RegistrationSummary struct {
	Success uint64 `json:"success"`
	Failure uint64 `json:"failure"`
}

type VerificationSummary struct {
	Issued   uint64 `json:"issued"`
	Consumed uint64 `json:"consumed"`
	Rejected uint64 `json:"rejected"`
}

type EmailSummary struct {
	Sent     uint64 `json:"sent"`
	Failed   uint64 `json:"failed"`
	Disabled uint64 `json:"disabled"`
}

type OrderSummary struct {
	Created   uint64 `json:"created"`
	Updated   uint64 `json:"updated"`
	Deleted   uint64 `json:"deleted"`
	Cancelled uint64 `json:"cancelled"`
}

type MaintenanceSummary struct {
	Jobs []MaintenanceJobSummary `json:"jobs"`
}

type MaintenanceJobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"last_status"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	ConsecutiveSuccess  uint64        `json:"consecutive_success"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	TotalRuns           uint64        `json:"total_runs"`
}

// Snapshot returns a point-in-time summary from the current module when configured.
func Snapshot() Summary {
	if module := current.Load(); module != nil {
		return module.Summary()
	}
	return Summary{GeneratedAt: time.Now()}
}
