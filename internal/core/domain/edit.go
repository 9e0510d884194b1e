package domain

import "fmt"

// Range is a span of text in a document.
// Lines and columns are 1-based; columns count runes.
// An empty range (start == end) denotes an insertion point.
type Range struct {
	StartLine   int `json:"start_line"`
	StartColumn int `json:"start_column"`
	EndLine     int `json:"end_line"`
	EndColumn   int `json:"end_column"`
}

// NewRange creates a range from its four coordinates.
func NewRange(startLine, startColumn, endLine, endColumn int) Range {
	return Range{
		StartLine:   startLine,
		StartColumn: startColumn,
		EndLine:     endLine,
		EndColumn:   endColumn,
	}
}

// IsEmpty returns true if the range has no extent.
func (r Range) IsEmpty() bool {
	return r.StartLine == r.EndLine && r.StartColumn == r.EndColumn
}

// Validate checks the coordinates are positive and ordered.
func (r Range) Validate() error {
	if r.StartLine < 1 || r.StartColumn < 1 || r.EndLine < 1 || r.EndColumn < 1 {
		return fmt.Errorf("%w: range %s has non-positive coordinate", ErrInvalidEdit, r)
	}
	if r.EndLine < r.StartLine || (r.EndLine == r.StartLine && r.EndColumn < r.StartColumn) {
		return fmt.Errorf("%w: range %s ends before it starts", ErrInvalidEdit, r)
	}
	return nil
}

// String returns the range as "(l,c)-(l,c)".
func (r Range) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.StartLine, r.StartColumn, r.EndLine, r.EndColumn)
}

// Edit replaces the text covered by Range with NewText.
type Edit struct {
	NewText string `json:"new_text"`
	Range   Range  `json:"range"`
}

// EditBatch is an ordered list of edits applied atomically: either every
// edit applies or the buffer is unchanged. Each edit's range refers to the
// buffer as left by the edits before it in the batch.
type EditBatch []Edit

// Validate checks the batch is non-empty and every range is well formed.
func (b EditBatch) Validate() error {
	if len(b) == 0 {
		return fmt.Errorf("%w: empty edit batch", ErrInvalidEdit)
	}
	for i := range b {
		if err := b[i].Range.Validate(); err != nil {
			return fmt.Errorf("edit %d: %w", i, err)
		}
	}
	return nil
}

// EditLogEntry records one batch applied between two model versions.
type EditLogEntry struct {
	// FromVersion is the model version before the batch.
	FromVersion int

	// ToVersion is the model version after the batch.
	ToVersion int

	// Batch is the applied batch.
	Batch EditBatch
}
