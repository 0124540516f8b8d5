package mrr

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type snapshotKey struct {
	tenantID    uuid.UUID
	date        time.Time
	granularity Granularity
}

// MemoryStore is an in-memory SnapshotStore for tests and local development.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[snapshotKey]Snapshot
	mrr       map[uuid.UUID]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[snapshotKey]Snapshot),
		mrr:       make(map[uuid.UUID]int64),
	}
}

func (s *MemoryStore) Get(_ context.Context, tenantID uuid.UUID, date time.Time, g Granularity) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[snapshotKey{tenantID, date.UTC(), g}]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return &snap, nil
}

func (s *MemoryStore) Previous(_ context.Context, tenantID uuid.UUID, date time.Time, g Granularity) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var prev *Snapshot
	for key, snap := range s.snapshots {
		if key.tenantID != tenantID || key.granularity != g || !key.date.Before(date.UTC()) {
			continue
		}
		if prev == nil || key.date.After(prev.Date) {
			copied := snap
			prev = &copied
		}
	}
	if prev == nil {
		return nil, ErrSnapshotNotFound
	}
	return prev, nil
}

func (s *MemoryStore) List(_ context.Context, tenantID uuid.UUID, g Granularity, from, to time.Time) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Snapshot
	for key, snap := range s.snapshots {
		if key.tenantID != tenantID || key.granularity != g {
			continue
		}
		if key.date.Before(from.UTC()) || key.date.After(to.UTC()) {
			continue
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *MemoryStore) Upsert(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshotKey{snap.TenantID, snap.Date.UTC(), snap.Granularity}] = *snap
	return nil
}

func (s *MemoryStore) SetCurrentMRR(_ context.Context, tenantID uuid.UUID, totalMRR int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mrr[tenantID] = totalMRR
	return nil
}

// CurrentMRR reads back the cached figure, for test assertions.
func (s *MemoryStore) CurrentMRR(tenantID uuid.UUID) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mrr[tenantID]
}
