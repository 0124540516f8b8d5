package health

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// PGMetricsSource reads operational metrics from the ops_metrics table, which
// ingestion pipelines append payment, webhook, and queue observations to.
// It implements OpsMetricsSource.
type PGMetricsSource struct {
	pool *pgxpool.Pool
}

// NewPGMetricsSource creates a PostgreSQL-backed ops metrics source.
// Panics on nil pool to fail fast during initialization.
func NewPGMetricsSource(pool *pgxpool.Pool) *PGMetricsSource {
	if pool == nil {
		panic("health: pgxpool is required")
	}
	return &PGMetricsSource{pool: pool}
}

// tenantFilter appends an optional tenant predicate. The zero UUID asks for
// platform-wide aggregates, so no filter applies.
func tenantFilter(tenantID uuid.UUID, args []any) (string, []any) {
	if tenantID == uuid.Nil {
		return "", args
	}
	args = append(args, tenantID)
	return fmt.Sprintf(" AND tenant_id = $%d", len(args)), args
}

func (s *PGMetricsSource) PaymentStats(ctx context.Context, tenantID uuid.UUID, period Period) (PaymentStats, error) {
	args := []any{period.From, period.To}
	filter, args := tenantFilter(tenantID, args)

	var stats PaymentStats
	err := s.pool.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE NOT success)
		FROM ops_metrics
		WHERE kind = 'payment' AND occurred_at > $1 AND occurred_at <= $2`+filter,
		args...).Scan(&stats.Attempts, &stats.Failures)
	if err != nil {
		return PaymentStats{}, fmt.Errorf("query payment stats: %w", err)
	}
	return stats, nil
}

func (s *PGMetricsSource) WebhookStats(ctx context.Context, tenantID uuid.UUID, period Period) (WebhookStats, error) {
	args := []any{period.From, period.To}
	filter, args := tenantFilter(tenantID, args)

	var stats WebhookStats
	var avgMS, maxMS *float64
	err := s.pool.QueryRow(ctx, `
		SELECT count(*), avg(duration_ms), max(duration_ms)
		FROM ops_metrics
		WHERE kind = 'webhook' AND occurred_at > $1 AND occurred_at <= $2`+filter,
		args...).Scan(&stats.Count, &avgMS, &maxMS)
	if err != nil {
		return WebhookStats{}, fmt.Errorf("query webhook stats: %w", err)
	}
	if avgMS != nil {
		stats.AvgLatency = msToDuration(*avgMS)
	}
	if maxMS != nil {
		stats.MaxLatency = msToDuration(*maxMS)
	}
	return stats, nil
}

func (s *PGMetricsSource) QueueStats(ctx context.Context, tenantID uuid.UUID, period Period) (QueueStats, error) {
	args := []any{period.From, period.To}
	filter, args := tenantFilter(tenantID, args)

	var stats QueueStats
	err := s.pool.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE NOT success)
		FROM ops_metrics
		WHERE kind = 'queue' AND occurred_at > $1 AND occurred_at <= $2`+filter,
		args...).Scan(&stats.Processed, &stats.Failed)
	if err != nil {
		return QueueStats{}, fmt.Errorf("query queue stats: %w", err)
	}
	return stats, nil
}
