package driven

import (
	"context"

	"github.com/custodia-labs/docmodel/internal/core/domain"
)

// ContentProvider loads the raw content of resources it handles.
// Providers are selected by scheme in registration order.
type ContentProvider interface {
	// Name identifies the provider, e.g. "filesystem" or "github".
	Name() string

	// Handles returns true if this provider serves the resource.
	Handles(id domain.ResourceID) bool

	// LoadContent returns the decoded content of the resource.
	// An empty encoding means the provider's default.
	LoadContent(ctx context.Context, id domain.ResourceID, encoding string) (string, error)
}

// DocumentPersister performs durable writes for a ContentProvider.
// Providers that do not implement it produce documents that are never dirty.
type DocumentPersister interface {
	// SaveDocument writes req.Content. It returns nil on success, an error
	// wrapping domain.ErrSaveConflict when the store diverged from
	// req.BaseContent (unless req.Overwrite), or any other error on failure.
	SaveDocument(ctx context.Context, req domain.SaveRequest) error
}

// ReadonlyReporter reports whether a resource may be edited.
type ReadonlyReporter interface {
	IsReadonly(ctx context.Context, id domain.ResourceID) (bool, error)
}

// LanguageDetector suggests a language id for a resource.
// Empty means no preference.
type LanguageDetector interface {
	PreferredLanguage(ctx context.Context, id domain.ResourceID) (string, error)
}

// LineEndingDetector suggests a line ending for a resource.
// Empty means no preference.
type LineEndingDetector interface {
	PreferredLineEnding(ctx context.Context, id domain.ResourceID) (string, error)
}

// ContentFingerprinter returns the digest of the stored content without a
// full load, so no-op external changes can be detected cheaply.
type ContentFingerprinter interface {
	ContentFingerprint(ctx context.Context, id domain.ResourceID) (domain.Digest, error)
}

// ChangeNotifier reports resources changed outside this process.
type ChangeNotifier interface {
	// Subscribe returns a channel of changed resource ids.
	// The channel is closed when ctx is done.
	Subscribe(ctx context.Context) (<-chan domain.ResourceID, error)
}
