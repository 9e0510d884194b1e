package domain

import "strings"

// ResourceID identifies an editable resource, typically a URI such as
// "file:///tmp/notes.txt" or "github://owner/repo/README.md".
type ResourceID string

// Scheme returns the URI scheme, or "file" for bare paths.
func (id ResourceID) Scheme() string {
	s := string(id)
	if i := strings.Index(s, "://"); i > 0 {
		return s[:i]
	}
	return "file"
}

// Path returns the part after "<scheme>://", or the whole id for bare paths.
func (id ResourceID) Path() string {
	s := string(id)
	if i := strings.Index(s, "://"); i > 0 {
		return s[i+3:]
	}
	return s
}

// String returns the string representation.
func (id ResourceID) String() string {
	return string(id)
}
