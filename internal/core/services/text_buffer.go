package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docmodel/internal/core/domain"
)

// undoElement is a batch that has already been applied to the buffer.
// It stores what is needed to undo and redo it.
type undoElement struct {
	forward   domain.EditBatch
	inverse   domain.EditBatch
	beforeAlt int
	afterAlt  int
}

// textBuffer is a plain string buffer with an undo stack.
//
// versionID increments on every change. alternativeVersionID identifies the
// content: it moves to a fresh value on a new edit and returns to the value
// of the state an undo or redo lands on, so comparing it against a saved
// marker gives undo-aware dirty tracking.
type textBuffer struct {
	text      string
	versionID int
	altID     int
	undo      []undoElement
	redo      []undoElement
}

func newTextBuffer(content string) *textBuffer {
	return &textBuffer{text: content}
}

// Value returns the whole content.
func (b *textBuffer) Value() string {
	return b.text
}

// VersionID returns the change counter.
func (b *textBuffer) VersionID() int {
	return b.versionID
}

// AlternativeVersionID returns the content-identity counter.
func (b *textBuffer) AlternativeVersionID() int {
	return b.altID
}

// ValueInRange returns the text covered by r.
func (b *textBuffer) ValueInRange(r domain.Range) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	start, err := offsetAt(b.text, r.StartLine, r.StartColumn)
	if err != nil {
		return "", err
	}
	end, err := offsetAt(b.text, r.EndLine, r.EndColumn)
	if err != nil {
		return "", err
	}
	return b.text[start:end], nil
}

// FullRange returns the range covering the whole content.
func (b *textBuffer) FullRange() domain.Range {
	line, col := endPosition(1, 1, b.text)
	return domain.NewRange(1, 1, line, col)
}

// ApplyEdits applies batch atomically as a new undoable change and returns
// its inverse. On error the buffer is unchanged.
func (b *textBuffer) ApplyEdits(batch domain.EditBatch) (domain.EditBatch, error) {
	text, inverse, err := applyBatch(b.text, batch)
	if err != nil {
		return nil, err
	}
	before := b.altID
	b.text = text
	b.versionID++
	b.altID = b.versionID
	b.undo = append(b.undo, undoElement{
		forward:   batch,
		inverse:   inverse,
		beforeAlt: before,
		afterAlt:  b.altID,
	})
	b.redo = nil
	return inverse, nil
}

// Undo reverts the last change and returns the batch that did it.
func (b *textBuffer) Undo() (domain.EditBatch, bool) {
	if len(b.undo) == 0 {
		return nil, false
	}
	el := b.undo[len(b.undo)-1]
	text, _, err := applyBatch(b.text, el.inverse)
	if err != nil {
		// The stack is built from applied batches; a failure means it no
		// longer describes the buffer.
		b.undo, b.redo = nil, nil
		return nil, false
	}
	b.undo = b.undo[:len(b.undo)-1]
	b.text = text
	b.versionID++
	b.altID = el.beforeAlt
	b.redo = append(b.redo, el)
	return el.inverse, true
}

// Redo reapplies the last undone change and returns the batch that did it.
func (b *textBuffer) Redo() (domain.EditBatch, bool) {
	if len(b.redo) == 0 {
		return nil, false
	}
	el := b.redo[len(b.redo)-1]
	text, _, err := applyBatch(b.text, el.forward)
	if err != nil {
		b.undo, b.redo = nil, nil
		return nil, false
	}
	b.redo = b.redo[:len(b.redo)-1]
	b.text = text
	b.versionID++
	b.altID = el.afterAlt
	b.undo = append(b.undo, el)
	return el.forward, true
}

// SetValue replaces the content wholesale and clears the undo history.
func (b *textBuffer) SetValue(content string) {
	b.text = content
	b.versionID++
	b.altID = b.versionID
	b.undo, b.redo = nil, nil
}

// release drops the content and history. Counters are kept for late readers.
func (b *textBuffer) release() {
	b.text = ""
	b.undo, b.redo = nil, nil
}

// applyBatch applies edits in order to text. Each edit's range refers to the
// text left by the previous edits. It returns the new text and the batch
// that restores the original.
func applyBatch(text string, batch domain.EditBatch) (string, domain.EditBatch, error) {
	if err := batch.Validate(); err != nil {
		return "", nil, err
	}
	inverse := make(domain.EditBatch, len(batch))
	for i, e := range batch {
		start, err := offsetAt(text, e.Range.StartLine, e.Range.StartColumn)
		if err != nil {
			return "", nil, fmt.Errorf("edit %d: %w", i, err)
		}
		end, err := offsetAt(text, e.Range.EndLine, e.Range.EndColumn)
		if err != nil {
			return "", nil, fmt.Errorf("edit %d: %w", i, err)
		}
		removed := text[start:end]
		text = text[:start] + e.NewText + text[end:]

		endLine, endCol := endPosition(e.Range.StartLine, e.Range.StartColumn, e.NewText)
		inverse[len(batch)-1-i] = domain.Edit{
			NewText: removed,
			Range:   domain.NewRange(e.Range.StartLine, e.Range.StartColumn, endLine, endCol),
		}
	}
	return text, inverse, nil
}

// offsetAt converts a 1-based line and rune column to a byte offset.
// The column may point one past the last character of the line.
func offsetAt(text string, line, column int) (int, error) {
	lineStart := 0
	for l := 1; l < line; l++ {
		i := strings.IndexByte(text[lineStart:], '\n')
		if i < 0 {
			return 0, fmt.Errorf("%w: line %d out of range", domain.ErrInvalidEdit, line)
		}
		lineStart += i + 1
	}

	lineEnd := len(text)
	if i := strings.IndexByte(text[lineStart:], '\n'); i >= 0 {
		lineEnd = lineStart + i
		if lineEnd > lineStart && text[lineEnd-1] == '\r' {
			lineEnd--
		}
	}

	offset := lineStart
	for c := 1; c < column; c++ {
		if offset >= lineEnd {
			return 0, fmt.Errorf("%w: column %d out of range on line %d", domain.ErrInvalidEdit, column, line)
		}
		_, size := utf8.DecodeRuneInString(text[offset:lineEnd])
		offset += size
	}
	return offset, nil
}

// endPosition returns the position after inserting text at (line, column).
func endPosition(line, column int, text string) (int, int) {
	n := strings.Count(text, "\n")
	if n == 0 {
		return line, column + utf8.RuneCountInString(text)
	}
	last := text[strings.LastIndexByte(text, '\n')+1:]
	return line + n, utf8.RuneCountInString(last) + 1
}

// detectLineEnding returns CRLF if the content uses it, LF otherwise.
func detectLineEnding(content string) string {
	if strings.Contains(content, domain.LineEndingCRLF) {
		return domain.LineEndingCRLF
	}
	return domain.LineEndingLF
}

// normalizeLineEndings rewrites every line break in content as eol.
func normalizeLineEndings(content, eol string) string {
	if eol != domain.LineEndingCRLF && eol != domain.LineEndingLF {
		return content
	}
	lf := strings.ReplaceAll(content, domain.LineEndingCRLF, domain.LineEndingLF)
	if eol == domain.LineEndingLF {
		return lf
	}
	return strings.ReplaceAll(lf, domain.LineEndingLF, domain.LineEndingCRLF)
}
