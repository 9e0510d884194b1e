// Package redis provides a driven.ContentCacheProvider on a shared Redis
// instance, so unsaved edits survive a crash of any process that opened
// the document.
//
// Records are JSON values under "docmodel:recovery:<prefix>_<id>". The set
// "docmodel:recovery:index:<prefix>" lists the ids that have a record.
package redis
