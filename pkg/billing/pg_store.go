package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore reads customer subscription state from PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a PostgreSQL-backed customer source.
// Panics on nil pool to fail fast during initialization.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("billing: pgxpool is required")
	}
	return &PGStore{pool: pool}
}

func (s *PGStore) Customers(ctx context.Context, tenantID uuid.UUID) ([]Customer, error) {
	query := `
		SELECT tenant_id, customer_id, plan_id, status,
		       price_amount, price_currency, billing_interval, managed,
		       subscription_started_at, subscription_ends_at, lifetime_revenue
		FROM customers`
	var args []any
	// Zero UUID means platform-wide: no tenant predicate.
	if tenantID != uuid.Nil {
		query += ` WHERE tenant_id = $1`
		args = append(args, tenantID)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query customers for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(
			&c.TenantID, &c.CustomerID, &c.PlanID, &c.Status,
			&c.Price.Amount, &c.Price.Currency, &c.Interval, &c.Managed,
			&c.StartedAt, &c.EndsAt, &c.LifetimeRevenue,
		); err != nil {
			return nil, fmt.Errorf("scan customer row: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *PGStore) AcquisitionMonths(ctx context.Context, tenantID uuid.UUID) ([]time.Time, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT date_trunc('month', subscription_started_at AT TIME ZONE 'UTC')
		FROM customers
		WHERE tenant_id = $1
		ORDER BY 1 DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query acquisition months for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	var months []time.Time
	for rows.Next() {
		var m time.Time
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan acquisition month: %w", err)
		}
		months = append(months, m.UTC())
	}
	return months, rows.Err()
}

func (s *PGStore) TenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query tenants: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tenant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
