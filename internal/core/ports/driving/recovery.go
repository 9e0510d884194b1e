package driving

import (
	"context"

	"github.com/custodia-labs/docmodel/internal/core/domain"
)

// RecoveryService inspects and discards stored recovery records.
type RecoveryService interface {
	// List returns a summary of every stored record.
	List(ctx context.Context) ([]domain.RecoverySummary, error)

	// Get returns the record for id, or domain.ErrNotFound.
	Get(ctx context.Context, id domain.ResourceID) (*domain.CacheRecord, error)

	// Discard deletes the record for id. Discarding a missing record is not an error.
	Discard(ctx context.Context, id domain.ResourceID) error
}
