package domain

// EventType categorises document notifications.
type EventType string

// Event types.
const (
	// EventContentChanged fires for every live edit, recovery replay, reload
	// and save completion. Save completion carries no edits.
	EventContentChanged EventType = "content_changed"

	// EventMetadataChanged fires when encoding, language or line ending change.
	EventMetadataChanged EventType = "metadata_changed"

	// EventModelCreated fires on the cache stream when a model is constructed.
	EventModelCreated EventType = "model_created"

	// EventModelDisposed fires on the cache stream when a model is evicted.
	EventModelDisposed EventType = "model_disposed"
)

// Event is a notification about one document.
type Event struct {
	Type EventType
	ID   ResourceID

	// Version is the model version after the causing operation.
	Version int

	// Dirty is the dirty flag after the causing operation.
	Dirty bool

	// Edits are the raw edits of a content change. Empty when observers
	// should re-read rather than diff.
	Edits []Edit

	Encoding   string
	LanguageID string
	LineEnding string
}
