package mrr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists snapshots in PostgreSQL with ON CONFLICT upserts, so each
// write is a single atomic statement.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a PostgreSQL-backed snapshot store.
// Panics on nil pool to fail fast during initialization.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("mrr: pgxpool is required")
	}
	return &PGStore{pool: pool}
}

const snapshotColumns = `tenant_id, snapshot_date, snapshot_type,
	club_mrr, tenant_mrr, total_mrr, customer_count,
	mrr_growth, mrr_growth_rate,
	new_business_mrr, expansion_mrr, contraction_mrr, churned_mrr,
	calculated_at`

func scanSnapshot(row pgx.Row) (*Snapshot, error) {
	var s Snapshot
	err := row.Scan(
		&s.TenantID, &s.Date, &s.Granularity,
		&s.ClubMRR, &s.TenantMRR, &s.TotalMRR, &s.CustomerCount,
		&s.Growth, &s.GrowthRate,
		&s.NewBusinessMRR, &s.ExpansionMRR, &s.ContractionMRR, &s.ChurnedMRR,
		&s.CalculatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("scan snapshot row: %w", err)
	}
	return &s, nil
}

func (s *PGStore) Get(ctx context.Context, tenantID uuid.UUID, date time.Time, g Granularity) (*Snapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+snapshotColumns+`
		FROM mrr_snapshots
		WHERE tenant_id = $1 AND snapshot_date = $2 AND snapshot_type = $3`,
		tenantID, date, g)
	return scanSnapshot(row)
}

func (s *PGStore) Previous(ctx context.Context, tenantID uuid.UUID, date time.Time, g Granularity) (*Snapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+snapshotColumns+`
		FROM mrr_snapshots
		WHERE tenant_id = $1 AND snapshot_type = $2 AND snapshot_date < $3
		ORDER BY snapshot_date DESC
		LIMIT 1`,
		tenantID, g, date)
	return scanSnapshot(row)
}

func (s *PGStore) List(ctx context.Context, tenantID uuid.UUID, g Granularity, from, to time.Time) ([]Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+snapshotColumns+`
		FROM mrr_snapshots
		WHERE tenant_id = $1 AND snapshot_type = $2 AND snapshot_date BETWEEN $3 AND $4
		ORDER BY snapshot_date ASC`,
		tenantID, g, from, to)
	if err != nil {
		return nil, fmt.Errorf("list snapshots for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snap)
	}
	return snapshots, rows.Err()
}

func (s *PGStore) Upsert(ctx context.Context, snap *Snapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO mrr_snapshots (`+snapshotColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (tenant_id, snapshot_date, snapshot_type) DO UPDATE SET
			club_mrr = EXCLUDED.club_mrr,
			tenant_mrr = EXCLUDED.tenant_mrr,
			total_mrr = EXCLUDED.total_mrr,
			customer_count = EXCLUDED.customer_count,
			mrr_growth = EXCLUDED.mrr_growth,
			mrr_growth_rate = EXCLUDED.mrr_growth_rate,
			new_business_mrr = EXCLUDED.new_business_mrr,
			expansion_mrr = EXCLUDED.expansion_mrr,
			contraction_mrr = EXCLUDED.contraction_mrr,
			churned_mrr = EXCLUDED.churned_mrr,
			calculated_at = EXCLUDED.calculated_at`,
		snap.TenantID, snap.Date, snap.Granularity,
		snap.ClubMRR, snap.TenantMRR, snap.TotalMRR, snap.CustomerCount,
		snap.Growth, snap.GrowthRate,
		snap.NewBusinessMRR, snap.ExpansionMRR, snap.ContractionMRR, snap.ChurnedMRR,
		snap.CalculatedAt)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// SetCurrentMRR refreshes the tenant row's denormalized current_mrr column.
// Implements CurrentMRRCache.
func (s *PGStore) SetCurrentMRR(ctx context.Context, tenantID uuid.UUID, totalMRR int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE tenants SET current_mrr = $2, mrr_updated_at = now() WHERE id = $1`,
		tenantID, totalMRR)
	if err != nil {
		return fmt.Errorf("refresh current MRR for tenant %s: %w", tenantID, err)
	}
	return nil
}
