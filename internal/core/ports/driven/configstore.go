package driven

// ConfigStore holds flat, dot-separated settings keys such as
// "recovery.backend". Implementations handle persistence and type conversion.
type ConfigStore interface {
	// Get retrieves a value by key and whether it exists.
	Get(key string) (any, bool)

	// GetString returns "" if the key is missing or not a string.
	GetString(key string) string

	// GetInt returns 0 if the key is missing or not a number.
	GetInt(key string) int

	// GetBool returns false if the key is missing or not a boolean.
	GetBool(key string) bool

	// GetStringSlice returns nil if the key is missing or not a list.
	GetStringSlice(key string) []string

	// Set stores a value. File-backed stores persist immediately.
	Set(key string, value any) error

	// Keys returns every key that has a value, sorted.
	Keys() []string

	// Save persists the current values.
	Save() error

	// Load re-reads values from storage.
	Load() error

	// Path returns where the values are stored.
	Path() string
}
