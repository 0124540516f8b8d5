package cohort

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists cohort records in PostgreSQL with ON CONFLICT upserts.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a PostgreSQL-backed cohort record store.
// Panics on nil pool to fail fast during initialization.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("cohort: pgxpool is required")
	}
	return &PGStore{pool: pool}
}

const recordColumns = `tenant_id, cohort_month, cohort_size,
	retention_month_1, retention_month_2, retention_month_3,
	retention_month_6, retention_month_12,
	cumulative_revenue, avg_ltv, last_calculated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(
		&r.TenantID, &r.CohortMonth, &r.CohortSize,
		&r.RetentionMonth1, &r.RetentionMonth2, &r.RetentionMonth3,
		&r.RetentionMonth6, &r.RetentionMonth12,
		&r.CumulativeRevenue, &r.AvgLTV, &r.CalculatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("scan cohort row: %w", err)
	}
	return &r, nil
}

func (s *PGStore) Get(ctx context.Context, tenantID uuid.UUID, cohortMonth time.Time) (*Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM cohort_records
		WHERE tenant_id = $1 AND cohort_month = $2`,
		tenantID, cohortMonth)
	return scanRecord(row)
}

func (s *PGStore) List(ctx context.Context, tenantID uuid.UUID) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM cohort_records
		WHERE tenant_id = $1
		ORDER BY cohort_month DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list cohort records for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (s *PGStore) Upsert(ctx context.Context, rec *Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cohort_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tenant_id, cohort_month) DO UPDATE SET
			cohort_size = EXCLUDED.cohort_size,
			retention_month_1 = EXCLUDED.retention_month_1,
			retention_month_2 = EXCLUDED.retention_month_2,
			retention_month_3 = EXCLUDED.retention_month_3,
			retention_month_6 = EXCLUDED.retention_month_6,
			retention_month_12 = EXCLUDED.retention_month_12,
			cumulative_revenue = EXCLUDED.cumulative_revenue,
			avg_ltv = EXCLUDED.avg_ltv,
			last_calculated_at = EXCLUDED.last_calculated_at`,
		rec.TenantID, rec.CohortMonth, rec.CohortSize,
		rec.RetentionMonth1, rec.RetentionMonth2, rec.RetentionMonth3,
		rec.RetentionMonth6, rec.RetentionMonth12,
		rec.CumulativeRevenue, rec.AvgLTV, rec.CalculatedAt)
	if err != nil {
		return fmt.Errorf("upsert cohort record: %w", err)
	}
	return nil
}
