package domain

import (
	"crypto/md5" //nolint:gosec // content identity, not a security boundary
	"encoding/hex"
)

// Digest is a fixed-size content fingerprint, hex encoded.
type Digest string

// Fingerprint returns the digest of content.
// Two snapshots are considered equal iff their digests are equal.
func Fingerprint(content string) Digest {
	sum := md5.Sum([]byte(content)) //nolint:gosec // see import
	return Digest(hex.EncodeToString(sum[:]))
}

// String returns the string representation.
func (d Digest) String() string {
	return string(d)
}
