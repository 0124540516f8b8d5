package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory CustomerSource for tests and local development.
type MemoryStore struct {
	mu        sync.RWMutex
	customers map[uuid.UUID][]Customer
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{customers: make(map[uuid.UUID][]Customer)}
}

// Add registers customer records. Unlike the production source this mutates,
// because tests need to arrange state.
func (s *MemoryStore) Add(customers ...Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range customers {
		s.customers[c.TenantID] = append(s.customers[c.TenantID], c)
	}
}

func (s *MemoryStore) Customers(_ context.Context, tenantID uuid.UUID) ([]Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tenantID == uuid.Nil {
		var out []Customer
		ids := make([]uuid.UUID, 0, len(s.customers))
		for id := range s.customers {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
		for _, id := range ids {
			out = append(out, s.customers[id]...)
		}
		return out, nil
	}

	out := make([]Customer, len(s.customers[tenantID]))
	copy(out, s.customers[tenantID])
	return out, nil
}

func (s *MemoryStore) AcquisitionMonths(_ context.Context, tenantID uuid.UUID) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[time.Time]struct{})
	for _, c := range s.customers[tenantID] {
		seen[c.CohortMonth()] = struct{}{}
	}

	months := make([]time.Time, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].After(months[j]) })
	return months, nil
}

func (s *MemoryStore) TenantIDs(_ context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(s.customers))
	for id := range s.customers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}
