package driving

import (
	"context"

	"github.com/custodia-labs/docmodel/internal/core/domain"
)

// DocumentModelService hands out reference-counted handles to shared
// document models, keyed by resource id.
type DocumentModelService interface {
	// GetReference returns a handle to the model for id, loading it (and
	// replaying any recovery record) on first use. Concurrent calls for the
	// same id share one load. Every handle must be released.
	GetReference(ctx context.Context, id domain.ResourceID) (Reference, error)

	// GetReferenceIfExists returns a handle only if the model is already live.
	GetReferenceIfExists(id domain.ResourceID) (Reference, bool)

	// Models returns a summary of every live model.
	Models() []domain.DocumentInfo

	// OnExternalChange reloads a clean model whose stored content changed.
	// Dirty models are left alone.
	OnExternalChange(ctx context.Context, id domain.ResourceID) error

	// Subscribe streams events for every model plus creation and disposal.
	Subscribe(ctx context.Context) (<-chan domain.Event, error)

	// Watch feeds provider change notifications to OnExternalChange until ctx is done.
	Watch(ctx context.Context) error
}

// Reference is a counted handle to a document model.
type Reference interface {
	// Document returns the shared model.
	Document() Document

	// Release drops this handle. Releasing twice returns domain.ErrReferenceReleased.
	Release() error
}

// Document is one open, editable resource.
type Document interface {
	ID() domain.ResourceID

	// CurrentContent returns the whole buffer, or the text in r if r is non-nil.
	CurrentContent(r *domain.Range) (string, error)

	Dirty() bool
	Version() int
	Info() domain.DocumentInfo

	// ApplyEdits applies one batch atomically as a live edit.
	ApplyEdits(batch domain.EditBatch) error

	// Undo reverts the last batch. It returns false if there is nothing to undo.
	Undo() bool

	// Redo reapplies the last undone batch. It returns false if there is nothing to redo.
	Redo() bool

	// Save queues a save and waits for it. It returns false without error when
	// the document is clean, and domain.ErrSaveConflict on conflict.
	Save(ctx context.Context, overwrite bool) (bool, error)

	// QueueSave queues a save without waiting. It returns nil when the
	// document is clean.
	QueueSave(overwrite bool) SaveHandle

	// Revert reloads from the provider, discarding edits and the recovery record.
	Revert(ctx context.Context) error

	// SetEncoding reloads the content under a new encoding.
	SetEncoding(ctx context.Context, encoding string) error

	SetLanguageID(languageID string)

	// SetLineEnding converts the buffer's line endings as an undoable edit.
	SetLineEnding(eol string) error

	// Subscribe streams this model's content and metadata events.
	Subscribe(ctx context.Context) (<-chan domain.Event, error)
}

// SaveHandle tracks one queued save.
type SaveHandle interface {
	ID() string
	TargetVersion() int
	State() domain.SaveState

	// Wait blocks until the save finishes or ctx is done.
	Wait(ctx context.Context) (domain.SaveResult, error)
}
