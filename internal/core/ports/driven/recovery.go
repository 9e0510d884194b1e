package driven

import (
	"context"

	"github.com/custodia-labs/docmodel/internal/core/domain"
)

// ContentCacheProvider is a write-ahead store of unsaved edits used to
// restore a document after a crash or reload.
//
// Records are opaque and versionless: callers tolerate absent or rejected
// records, and nothing migrates across schema changes.
type ContentCacheProvider interface {
	// HasCache reports whether a record exists for id.
	// It is synchronous and cheap: it runs on every model construction.
	HasCache(id domain.ResourceID) bool

	// GetCache returns the record for id, or nil if there is none.
	// Implementations may resolve immediately or deferred.
	GetCache(ctx context.Context, id domain.ResourceID, encoding string) domain.Result[*domain.CacheRecord]

	// PersistCache stores rec for id. A nil rec clears the record.
	PersistCache(ctx context.Context, id domain.ResourceID, rec *domain.CacheRecord) error
}

// SnapshotPreferrer is implemented by cache providers that cannot store
// incremental records; the model then persists full-content snapshots.
type SnapshotPreferrer interface {
	PrefersSnapshot() bool
}

// RecoveryIndex lists stored records, for tooling.
type RecoveryIndex interface {
	// ListCached returns the ids that currently have a record.
	ListCached(ctx context.Context) ([]domain.ResourceID, error)
}
