package domain

import "time"

// RecoveryBackend selects the ContentCacheProvider implementation.
type RecoveryBackend string

// Available recovery backends.
const (
	// RecoveryBackendNone disables crash recovery.
	RecoveryBackendNone RecoveryBackend = "none"

	// RecoveryBackendMemory keeps records in process memory (tests, ephemeral sessions).
	RecoveryBackendMemory RecoveryBackend = "memory"

	// RecoveryBackendSQLite persists records in a local SQLite database.
	RecoveryBackendSQLite RecoveryBackend = "sqlite"

	// RecoveryBackendRedis persists records in a shared Redis instance.
	RecoveryBackendRedis RecoveryBackend = "redis"
)

// IsValid returns true if the backend is recognised.
func (b RecoveryBackend) IsValid() bool {
	switch b {
	case RecoveryBackendNone, RecoveryBackendMemory, RecoveryBackendSQLite, RecoveryBackendRedis:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b RecoveryBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b RecoveryBackend) Description() string {
	switch b {
	case RecoveryBackendNone:
		return "Disabled"
	case RecoveryBackendMemory:
		return "In-memory (lost on exit)"
	case RecoveryBackendSQLite:
		return "Local SQLite database"
	case RecoveryBackendRedis:
		return "Redis"
	default:
		return "Unknown"
	}
}

// DocumentSettings holds document cache behaviour.
type DocumentSettings struct {
	// EvictionGrace is how long a model with no references survives
	// before it is disposed.
	EvictionGrace time.Duration

	// DefaultEncoding is used when opening a document without an explicit encoding.
	DefaultEncoding string
}

// FileSettings holds will-save behaviour.
type FileSettings struct {
	// TrimFinalNewlines removes all but one trailing newline on save.
	TrimFinalNewlines bool

	// InsertFinalNewline ensures the content ends with a newline on save.
	InsertFinalNewline bool
}

// RecoverySettings holds crash recovery configuration.
type RecoverySettings struct {
	// Backend selects the recovery store.
	Backend RecoveryBackend

	// DataDir is the SQLite data directory. Empty means ~/.docmodel/data.
	DataDir string

	// RedisAddr is the Redis address (host:port).
	RedisAddr string

	// KeyPrefix namespaces record keys as "<prefix>_<id>".
	KeyPrefix string
}

// GitHubSettings holds the GitHub content provider configuration.
type GitHubSettings struct {
	// Token is a personal access token. Empty means anonymous, read-only access.
	Token string

	// Branch is the branch to read and commit to. Empty means the default branch.
	Branch string
}

// IsConfigured returns true if a token is set, so documents can be saved.
func (s GitHubSettings) IsConfigured() bool {
	return s.Token != ""
}

// AppSettings holds all user-configurable settings.
type AppSettings struct {
	Documents DocumentSettings
	Files     FileSettings
	Recovery  RecoverySettings
	GitHub    GitHubSettings
}

// DefaultEvictionGrace is the grace delay before an unreferenced model is disposed.
const DefaultEvictionGrace = 3 * time.Second

// DefaultKeyPrefix namespaces locally persisted recovery records.
const DefaultKeyPrefix = "local"

// DefaultAppSettings returns sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Documents: DocumentSettings{
			EvictionGrace:   DefaultEvictionGrace,
			DefaultEncoding: DefaultEncoding,
		},
		Recovery: RecoverySettings{
			Backend:   RecoveryBackendSQLite,
			KeyPrefix: DefaultKeyPrefix,
		},
	}
}
