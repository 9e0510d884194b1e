package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/ports/driven"
)

// Ensure RecoveryStore implements the interfaces.
var (
	_ driven.ContentCacheProvider = (*RecoveryStore)(nil)
	_ driven.SnapshotPreferrer    = (*RecoveryStore)(nil)
	_ driven.RecoveryIndex        = (*RecoveryStore)(nil)
)

// RecoveryStore keeps recovery records in process memory.
// Records survive model disposal but not process exit.
type RecoveryStore struct {
	mu        sync.RWMutex
	records   map[domain.ResourceID]*domain.CacheRecord
	snapshots bool
}

// NewRecoveryStore creates an empty store.
func NewRecoveryStore() *RecoveryStore {
	return &RecoveryStore{
		records: make(map[domain.ResourceID]*domain.CacheRecord),
	}
}

// PreferSnapshots makes models write full-content records instead of edit logs.
func (s *RecoveryStore) PreferSnapshots(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = v
}

// PrefersSnapshot reports the current preference.
func (s *RecoveryStore) PrefersSnapshot() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshots
}

// HasCache reports whether a record exists for id.
func (s *RecoveryStore) HasCache(id domain.ResourceID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[id]
	return ok
}

// GetCache returns a copy of the record for id, or nil.
func (s *RecoveryStore) GetCache(_ context.Context, id domain.ResourceID, _ string) domain.Result[*domain.CacheRecord] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Immediate(cloneRecord(s.records[id]), nil)
}

// PersistCache stores a copy of rec, or clears the record when rec is nil.
func (s *RecoveryStore) PersistCache(_ context.Context, id domain.ResourceID, rec *domain.CacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec == nil {
		delete(s.records, id)
		return nil
	}
	s.records[id] = cloneRecord(rec)
	return nil
}

// ListCached returns the ids with a record, sorted.
func (s *RecoveryStore) ListCached(_ context.Context) ([]domain.ResourceID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]domain.ResourceID, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func cloneRecord(rec *domain.CacheRecord) *domain.CacheRecord {
	if rec == nil {
		return nil
	}
	out := *rec
	if rec.EditLog != nil {
		out.EditLog = make([]domain.EditBatch, len(rec.EditLog))
		for i, batch := range rec.EditLog {
			out.EditLog[i] = append(domain.EditBatch(nil), batch...)
		}
	}
	return &out
}

// Ensure NoopRecoveryStore implements the interfaces.
var (
	_ driven.ContentCacheProvider = NoopRecoveryStore{}
	_ driven.RecoveryIndex        = NoopRecoveryStore{}
)

// NoopRecoveryStore disables crash recovery.
type NoopRecoveryStore struct{}

// HasCache always returns false.
func (NoopRecoveryStore) HasCache(domain.ResourceID) bool {
	return false
}

// GetCache always resolves to no record.
func (NoopRecoveryStore) GetCache(context.Context, domain.ResourceID, string) domain.Result[*domain.CacheRecord] {
	return domain.Immediate[*domain.CacheRecord](nil, nil)
}

// PersistCache discards rec.
func (NoopRecoveryStore) PersistCache(context.Context, domain.ResourceID, *domain.CacheRecord) error {
	return nil
}

// ListCached always returns no ids.
func (NoopRecoveryStore) ListCached(context.Context) ([]domain.ResourceID, error) {
	return nil, nil
}
