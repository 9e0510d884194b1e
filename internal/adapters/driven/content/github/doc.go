// Package github provides the content provider for files in GitHub
// repositories.
//
// Resource ids have the form "github://owner/repo/path/to/file". Content is
// read through the Contents API on the configured branch (the repository's
// default branch when unset) and saved as a commit with UpdateFile. Each
// save sends the blob SHA seen at the last load or save, so GitHub itself
// rejects a write over a file someone else changed; that rejection surfaces
// as domain.ErrSaveConflict.
//
// Requests go through a RateLimiter that throttles proactively and backs
// off when the X-RateLimit headers report a nearly exhausted quota.
package github
