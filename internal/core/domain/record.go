package domain

// RecordKind distinguishes the two recovery record encodings.
type RecordKind string

// Recovery record kinds.
const (
	// RecordSnapshot carries the full unsaved content.
	RecordSnapshot RecordKind = "snapshot"

	// RecordDiff carries the edit log since the base content.
	RecordDiff RecordKind = "diff"
)

// CacheRecord is a recovery record persisted by a ContentCacheProvider.
// A record is only meaningful relative to the base content it was produced
// against; BaseFingerprint anchors it.
type CacheRecord struct {
	// Kind selects which of Content or EditLog is populated.
	Kind RecordKind `json:"kind"`

	// BaseFingerprint is the digest of the base content the record applies to.
	BaseFingerprint Digest `json:"base_fingerprint"`

	// Content is the full unsaved content (snapshot records only).
	Content string `json:"content,omitempty"`

	// EditLog is the flat list of batches to replay in order (diff records only).
	EditLog []EditBatch `json:"edit_log,omitempty"`
}

// NewSnapshotRecord creates a snapshot record.
func NewSnapshotRecord(base Digest, content string) *CacheRecord {
	return &CacheRecord{Kind: RecordSnapshot, BaseFingerprint: base, Content: content}
}

// NewDiffRecord creates a diff record.
func NewDiffRecord(base Digest, log []EditBatch) *CacheRecord {
	return &CacheRecord{Kind: RecordDiff, BaseFingerprint: base, EditLog: log}
}

// Matches returns true if the record was produced against content with digest base.
func (r *CacheRecord) Matches(base Digest) bool {
	return r != nil && r.BaseFingerprint == base
}

// IsValid returns true if the record kind is recognised and its payload is consistent.
func (r *CacheRecord) IsValid() bool {
	if r == nil || r.BaseFingerprint == "" {
		return false
	}
	switch r.Kind {
	case RecordSnapshot:
		return true
	case RecordDiff:
		for _, b := range r.EditLog {
			if b.Validate() != nil {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// RecoverySummary describes one stored record for listings.
type RecoverySummary struct {
	ID              ResourceID
	Kind            RecordKind
	BaseFingerprint Digest

	// Edits is the number of batches in a diff record.
	Edits int

	// Size is the content length of a snapshot record, in bytes.
	Size int
}

// Summary returns the listing summary of r for id.
func (r *CacheRecord) Summary(id ResourceID) RecoverySummary {
	return RecoverySummary{
		ID:              id,
		Kind:            r.Kind,
		BaseFingerprint: r.BaseFingerprint,
		Edits:           len(r.EditLog),
		Size:            len(r.Content),
	}
}
