package batch

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is a tenant's pipeline outcome.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Outcome is one tenant's result within a run.
type Outcome struct {
	TenantID        uuid.UUID
	Status          Status
	Err             error
	Elapsed         time.Duration
	TotalMRR        int64
	ChurnRate       float64
	HealthScore     int
	Critical        bool
	Alerts          int
	SnapshotSkipped bool
}

// Summary aggregates a run's outcomes. record is safe for concurrent use;
// reads are meant for after the run finishes.
type Summary struct {
	StartedAt time.Time
	Elapsed   time.Duration

	Succeeded int
	Skipped   int
	Failed    int

	Outcomes []Outcome

	mu sync.Mutex
}

func newSummary(started time.Time) *Summary {
	return &Summary{StartedAt: started}
}

func (s *Summary) record(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Outcomes = append(s.Outcomes, o)
	switch o.Status {
	case StatusSucceeded:
		s.Succeeded++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	}
}

func (s *Summary) finish(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Elapsed = now.Sub(s.StartedAt)
	sort.Slice(s.Outcomes, func(i, j int) bool {
		return s.Outcomes[i].TenantID.String() < s.Outcomes[j].TenantID.String()
	})
}

// HasCritical reports whether any tenant's health evaluation raised a
// critical alert.
func (s *Summary) HasCritical() bool {
	for _, o := range s.Outcomes {
		if o.Critical {
			return true
		}
	}
	return false
}

// ExitCode maps the run result to a process exit status: 0 clean, 1 when any
// tenant failed, 2 when the run succeeded but critical health alerts fired.
func (s *Summary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	if s.HasCritical() {
		return 2
	}
	return 0
}

func tenantCell(id uuid.UUID) string {
	if id == uuid.Nil {
		return "platform"
	}
	return id.String()
}

// Table renders the per-tenant summary for CLI output.
func (s *Summary) Table() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s  %-9s  %8s  %6s  %6s  %6s  %s\n",
		"TENANT", "STATUS", "MRR", "CHURN", "HEALTH", "ALERTS", "NOTE")
	for _, o := range s.Outcomes {
		note := ""
		switch {
		case o.Err != nil:
			note = o.Err.Error()
		case o.SnapshotSkipped:
			note = "snapshot already existed"
		case o.Critical:
			note = "critical alerts"
		}
		fmt.Fprintf(&b, "%-36s  %-9s  %8.2f  %5.1f%%  %6d  %6d  %s\n",
			tenantCell(o.TenantID), o.Status,
			float64(o.TotalMRR)/100, o.ChurnRate, o.HealthScore, o.Alerts, note)
	}
	fmt.Fprintf(&b, "\n%d succeeded, %d skipped, %d failed in %s\n",
		s.Succeeded, s.Skipped, s.Failed, s.Elapsed.Round(time.Millisecond))
	return b.String()
}
