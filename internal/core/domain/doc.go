// Package domain holds docmodel's value types and sentinel errors.
//
// A ResourceID names an editable resource. Edits arrive as an EditBatch
// of Range replacements and are described afterwards by a ContentChange.
// Unsaved work survives restarts as a CacheRecord, either a full snapshot
// or a diff anchored on the Digest of the content it was made against.
// Open documents report changes through Event values.
//
// The package depends on the standard library alone; every other
// package in the module may import it.
package domain
