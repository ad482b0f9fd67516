package monitoring

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

// statStore accumulates the counters reported by Module.Summary. Prometheus keeps the
// labelled series; this is the compact view served as JSON.
type statStore struct {
	mu   sync.Mutex
	sum  Summary
	jobs map[string]*MaintenanceJobSummary
}

func (s *statStore) update(fn func(*Summary)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.sum)
}

func (s *statStore) summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.sum
	out.GeneratedAt = time.Now()
	out.Maintenance.Jobs = make([]MaintenanceJobSummary, 0, len(s.jobs))
	for _, job := range s.jobs {
		out.Maintenance.Jobs = append(out.Maintenance.Jobs, *job)
	}
	slices.SortFunc(out.Maintenance.Jobs, func(a, b MaintenanceJobSummary) int {
		return cmp.Compare(a.Job, b.Job)
	})
	return out
}

func (s *statStore) recordAuth(result string) {
	s.update(func(sum *Summary) {
		switch result {
		case "success":
			sum.Auth.Success++
		case "failure":
			sum.Auth.Failure++
		default:
			sum.Auth.Error++
		}
	})
}

func (s *statStore) recordRegistration(result string) {
	s.update(func(sum *Summary) {
		if result == "success" {
			sum.Registrations.Success++
		} else {
			sum.Registrations.Failure++
		}
	})
}

// recordVerification counts resends as issued tokens; any non-success outcome is a rejection.
func (s *statStore) recordVerification(event, result string) {
	s.update(func(sum *Summary) {
		switch {
		case result != "success":
			sum.Verification.Rejected++
		case event == "issued", event == "resent":
			sum.Verification.Issued++
		case event == "consumed":
			sum.Verification.Consumed++
		}
	})
}

func (s *statStore) recordEmail(result string) {
	s.update(func(sum *Summary) {
		switch result {
		case "sent":
			sum.Email.Sent++
		case "disabled":
			sum.Email.Disabled++
		default:
			sum.Email.Failed++
		}
	})
}

func (s *statStore) recordOrder(event string) {
	s.update(func(sum *Summary) {
		switch event {
		case "created":
			sum.Orders.Created++
		case "updated", "status_changed":
			sum.Orders.Updated++
		case "deleted":
			sum.Orders.Deleted++
		case "cancelled":
			sum.Orders.Cancelled++
		}
	})
}

func (s *statStore) recordRateLimited() {
	s.update(func(sum *Summary) { sum.RateLimited++ })
}

func (s *statStore) recordJob(name, result, message string, took time.Duration, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.jobs == nil {
		s.jobs = make(map[string]*MaintenanceJobSummary)
	}
	job, ok := s.jobs[name]
	if !ok {
		job = &MaintenanceJobSummary{Job: name}
		s.jobs[name] = job
	}

	job.LastStatus = result
	job.LastError = message
	job.LastRunAt = at
	job.LastDuration = took
	job.TotalRuns++
	if result == "success" {
		job.LastSuccessAt = at
		job.ConsecutiveSuccess++
		job.ConsecutiveFailures = 0
		return
	}
	job.ConsecutiveFailures++
	job.ConsecutiveSuccess = 0
}
