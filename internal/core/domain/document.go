package domain

// Line ending sequences.
const (
	LineEndingLF   = "\n"
	LineEndingCRLF = "\r\n"
)

// DefaultEncoding is used when neither the caller nor the provider picks one.
const DefaultEncoding = "utf8"

// DocumentOptions configure a document model at construction.
type DocumentOptions struct {
	// Encoding is the content encoding, e.g. "utf8" or "gbk".
	Encoding string

	// LineEnding is LineEndingLF or LineEndingCRLF. Empty keeps the content as is.
	LineEnding string

	// LanguageID is the preferred language, e.g. "go" or "markdown".
	LanguageID string

	// Readonly rejects live edits.
	Readonly bool

	// Persistable offers save. Without it the document is never dirty.
	Persistable bool
}

// DocumentInfo is a point-in-time summary of an open document.
type DocumentInfo struct {
	ID               ResourceID
	Encoding         string
	LineEnding       string
	LanguageID       string
	Readonly         bool
	Persistable      bool
	Dirty            bool
	Version          int
	PersistedVersion int
	BaseFingerprint  Digest

	// RefCount is the number of live references held by consumers.
	RefCount int
}

// LineEndingName returns "LF" or "CRLF" for display.
func LineEndingName(eol string) string {
	if eol == LineEndingCRLF {
		return "CRLF"
	}
	return "LF"
}
