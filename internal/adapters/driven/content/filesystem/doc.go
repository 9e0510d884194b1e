// Package filesystem provides the content provider for local files.
//
// Resource ids are "file://" URIs or bare paths. Content is decoded under the
// document's encoding with golang.org/x/text, saves check the file against
// the document's baseline before writing, and an fsnotify watcher reports
// files changed by other programs.
package filesystem
