package health

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PaymentStats summarizes payment gateway attempts in a window.
type PaymentStats struct {
	Attempts int64
	Failures int64
}

// SuccessRate returns the success percentage; a window with no attempts is
// treated as fully successful rather than as a failure signal.
func (p PaymentStats) SuccessRate() float64 {
	if p.Attempts == 0 {
		return 100
	}
	return float64(p.Attempts-p.Failures) / float64(p.Attempts) * 100
}

// WebhookStats summarizes webhook processing durations in a window.
type WebhookStats struct {
	Count      int64
	AvgLatency time.Duration
	MaxLatency time.Duration
}

// QueueStats summarizes background job outcomes in a window.
type QueueStats struct {
	Processed int64
	Failed    int64
}

// FailureRate returns the failure percentage; an idle queue is healthy.
func (q QueueStats) FailureRate() float64 {
	if q.Processed == 0 {
		return 0
	}
	return float64(q.Failed) / float64(q.Processed) * 100
}

// ProbeResult is the outcome of one external payment-API reachability probe.
type ProbeResult struct {
	Reachable bool
	ErrorRate float64
	Latency   time.Duration
}

// OpsMetricsSource exposes externally reported operational metrics as opaque
// numeric summaries. The zero tenant ID requests platform-wide figures.
type OpsMetricsSource interface {
	PaymentStats(ctx context.Context, tenantID uuid.UUID, period Period) (PaymentStats, error)
	WebhookStats(ctx context.Context, tenantID uuid.UUID, period Period) (WebhookStats, error)
	QueueStats(ctx context.Context, tenantID uuid.UUID, period Period) (QueueStats, error)
}

// APIProber checks the external payment API.
type APIProber interface {
	Probe(ctx context.Context) (ProbeResult, error)
}

// ChurnRateSource supplies the trailing churn rate percentage for a tenant.
// Implemented by an adapter over the churn calculator.
type ChurnRateSource interface {
	ChurnRate(ctx context.Context, tenantID uuid.UUID, period Period) (float64, error)
}

// MRRGrowthSource supplies the latest MRR growth rate percentage.
// Implemented by an adapter over the snapshot store.
type MRRGrowthSource interface {
	GrowthRate(ctx context.Context, tenantID uuid.UUID, period Period) (float64, error)
}
