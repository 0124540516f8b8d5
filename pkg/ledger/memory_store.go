package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory ledger for tests and local development.
// Events are kept sorted by occurrence time per tenant.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[uuid.UUID][]Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[uuid.UUID][]Event)}
}

func (s *MemoryStore) Append(_ context.Context, events ...Event) error {
	for _, e := range events {
		if err := validateEvent(e); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		s.events[e.TenantID] = append(s.events[e.TenantID], e)
	}
	for tenantID := range s.events {
		evs := s.events[tenantID]
		sort.SliceStable(evs, func(i, j int) bool { return evs[i].OccurredAt.Before(evs[j].OccurredAt) })
	}
	return nil
}

func (s *MemoryStore) Range(_ context.Context, tenantID uuid.UUID, from, to time.Time) ([]Event, error) {
	if !from.Before(to) {
		return nil, ErrInvalidRange
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	if tenantID == uuid.Nil {
		for _, evs := range s.events {
			for _, e := range evs {
				if e.OccurredAt.After(from) && !e.OccurredAt.After(to) {
					out = append(out, e)
				}
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
		return out, nil
	}

	for _, e := range s.events[tenantID] {
		if e.OccurredAt.After(from) && !e.OccurredAt.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}
