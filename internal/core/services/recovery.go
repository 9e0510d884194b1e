package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/ports/driven"
	"github.com/custodia-labs/docmodel/internal/core/ports/driving"
)

// Ensure RecoveryService implements the interface.
var _ driving.RecoveryService = (*RecoveryService)(nil)

// RecoveryStore is a cache provider that can also list its records.
type RecoveryStore interface {
	driven.ContentCacheProvider
	driven.RecoveryIndex
}

// RecoveryService exposes stored recovery records to tooling.
type RecoveryService struct {
	store RecoveryStore
}

// NewRecoveryService creates a recovery service over store.
func NewRecoveryService(store RecoveryStore) *RecoveryService {
	return &RecoveryService{store: store}
}

// List returns a summary of every stored record. Records that vanish or
// fail to decode between listing and reading are skipped.
func (s *RecoveryService) List(ctx context.Context) ([]domain.RecoverySummary, error) {
	ids, err := s.store.ListCached(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recovery records: %w", err)
	}

	summaries := make([]domain.RecoverySummary, 0, len(ids))
	for _, id := range ids {
		rec, err := s.store.GetCache(ctx, id, "").Wait(ctx)
		if err != nil || rec == nil {
			continue
		}
		summaries = append(summaries, rec.Summary(id))
	}
	return summaries, nil
}

// Get returns the record for id.
func (s *RecoveryService) Get(ctx context.Context, id domain.ResourceID) (*domain.CacheRecord, error) {
	rec, err := s.store.GetCache(ctx, id, "").Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("read recovery record for %s: %w", id, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("recovery record for %s: %w", id, domain.ErrNotFound)
	}
	return rec, nil
}

// Discard deletes the record for id.
func (s *RecoveryService) Discard(ctx context.Context, id domain.ResourceID) error {
	if err := s.store.PersistCache(ctx, id, nil); err != nil {
		return fmt.Errorf("discard recovery record for %s: %w", id, err)
	}
	return nil
}
