package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists the event ledger in PostgreSQL. The subscription_events
// table carries a (tenant_id, event_type, event_date) index so the range scan
// below and the breakdown grouping both stay index-driven.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a PostgreSQL-backed ledger store.
// Panics on nil pool to fail fast during initialization.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("ledger: pgxpool is required")
	}
	return &PGStore{pool: pool}
}

func (s *PGStore) Range(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]Event, error) {
	if !from.Before(to) {
		return nil, ErrInvalidRange
	}

	query := `
		SELECT id, tenant_id, customer_id, event_type, event_date, mrr_change, reason
		FROM subscription_events
		WHERE event_date > $1 AND event_date <= $2`
	args := []any{from, to}
	// Zero UUID means platform-wide: no tenant predicate.
	if tenantID != uuid.Nil {
		query += ` AND tenant_id = $3`
		args = append(args, tenantID)
	}
	query += ` ORDER BY event_date ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.TenantID, &e.CustomerID, &e.Type, &e.OccurredAt, &e.MRRChange, &e.Reason); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *PGStore) Append(ctx context.Context, events ...Event) error {
	for _, e := range events {
		if err := validateEvent(e); err != nil {
			return err
		}
	}

	batch := &pgx.Batch{}
	for _, e := range events {
		id := e.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		batch.Queue(`
			INSERT INTO subscription_events (id, tenant_id, customer_id, event_type, event_date, mrr_change, reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, e.TenantID, e.CustomerID, e.Type, e.OccurredAt, e.MRRChange, e.Reason)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("append event: %w", err)
		}
	}
	return nil
}
