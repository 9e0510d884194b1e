// Package memory provides in-memory implementations of driven ports.
//
// The stores here back tests and ephemeral sessions: a ConfigStore, a
// RecoveryStore (plus NoopRecoveryStore to disable recovery) and a
// ContentProvider serving untitled:// scratch documents.
package memory
