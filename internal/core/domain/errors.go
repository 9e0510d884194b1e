package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProviderNotFound indicates no content provider handles the resource scheme.
	// Fatal for the open attempt that hit it.
	ErrProviderNotFound = errors.New("no content provider for resource")

	// ErrInvalidEdit indicates an edit range lies outside the buffer.
	// The whole batch is rejected and the buffer is left untouched.
	ErrInvalidEdit = errors.New("invalid edit")

	// ErrReadonly indicates the document cannot be edited.
	ErrReadonly = errors.New("document is readonly")

	// ErrDisposed indicates the document model has been evicted.
	ErrDisposed = errors.New("document model disposed")

	// ErrReferenceReleased indicates a reference handle was used after Release.
	ErrReferenceReleased = errors.New("reference already released")

	// Save Errors.

	// ErrSaveConflict indicates the durable store diverged from the in-memory
	// baseline since it was last read. Recoverable: the caller decides whether
	// to overwrite or discard.
	ErrSaveConflict = errors.New("save conflict: content changed since it was loaded")

	// ErrNotPersistable indicates the document's provider cannot save.
	ErrNotPersistable = errors.New("document is not persistable")

	// ErrSaveSuperseded indicates a queued save was dropped because the
	// document was reloaded before the save ran.
	ErrSaveSuperseded = errors.New("save superseded by reload")

	// Recovery Errors.

	// ErrRecoveryMismatch indicates a recovery record was produced against a
	// different base content. It is logged and skipped, never surfaced.
	ErrRecoveryMismatch = errors.New("recovery record does not match base content")
)
