package services

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docmodel/internal/core/domain"
)

// SaveParticipant adjusts a document right before its save snapshot is
// taken. The returned batch is applied as a regular undoable edit; nil
// means nothing to do.
type SaveParticipant interface {
	Name() string
	Participate(content, eol string) domain.EditBatch
}

// ParticipantsFromSettings returns the participants enabled by settings,
// in the order they run.
func ParticipantsFromSettings(s domain.FileSettings) []SaveParticipant {
	var participants []SaveParticipant
	if s.TrimFinalNewlines {
		participants = append(participants, TrimFinalNewlines{})
	}
	if s.InsertFinalNewline {
		participants = append(participants, InsertFinalNewline{})
	}
	return participants
}

// TrimFinalNewlines removes the empty lines after the last line with content.
type TrimFinalNewlines struct{}

// Name returns the participant name.
func (TrimFinalNewlines) Name() string {
	return "trim-final-newlines"
}

// Participate returns the deletion of trailing empty lines.
func (TrimFinalNewlines) Participate(content, _ string) domain.EditBatch {
	lines := strings.Split(content, "\n")
	lineCount := len(lines)
	if lineCount == 1 {
		return nil
	}

	lastNonEmpty := 0
	for i := lineCount - 1; i >= 0; i-- {
		if strings.TrimSuffix(lines[i], "\r") != "" {
			lastNonEmpty = i + 1
			break
		}
	}

	from := lastNonEmpty + 1
	lastLen := utf8.RuneCountInString(strings.TrimSuffix(lines[lineCount-1], "\r"))
	r := domain.NewRange(from, 1, lineCount, lastLen+1)
	if r.IsEmpty() {
		return nil
	}
	return domain.EditBatch{{Range: r}}
}

// InsertFinalNewline appends a line break when the content does not end with one.
type InsertFinalNewline struct{}

// Name returns the participant name.
func (InsertFinalNewline) Name() string {
	return "insert-final-newline"
}

// Participate returns the insertion of eol at the end of a non-empty last line.
func (InsertFinalNewline) Participate(content, eol string) domain.EditBatch {
	if content == "" || strings.HasSuffix(content, "\n") {
		return nil
	}
	if eol == "" {
		eol = domain.LineEndingLF
	}
	line, col := endPosition(1, 1, content)
	return domain.EditBatch{{
		NewText: eol,
		Range:   domain.NewRange(line, col, line, col),
	}}
}
