package domain

// SaveState is the lifecycle state of a save task.
type SaveState string

// Save task states.
const (
	SaveStatePending  SaveState = "pending"
	SaveStateRunning  SaveState = "running"
	SaveStateSuccess  SaveState = "success"
	SaveStateConflict SaveState = "conflict"
	SaveStateError    SaveState = "error"
)

// IsFinal returns true once the task can no longer change state.
func (s SaveState) IsFinal() bool {
	return s == SaveStateSuccess || s == SaveStateConflict || s == SaveStateError
}

// String returns the string representation.
func (s SaveState) String() string {
	return string(s)
}

// SaveResult is the resolved outcome of a save task.
type SaveResult struct {
	// State is Success, Conflict or Error.
	State SaveState

	// Err is nil on success, wraps ErrSaveConflict on conflict,
	// and carries the collaborator's failure otherwise.
	Err error
}

// SaveRequest is what a persistence collaborator receives for one save.
type SaveRequest struct {
	// ID is the resource being saved.
	ID ResourceID

	// Content is the snapshot taken when the save was queued.
	Content string

	// BaseContent is the content as of the last load or save.
	BaseContent string

	// Edits are the batches applied since BaseContent, oldest first.
	Edits []EditBatch

	// Encoding is the document's current encoding.
	Encoding string

	// Overwrite skips conflict detection.
	Overwrite bool
}
