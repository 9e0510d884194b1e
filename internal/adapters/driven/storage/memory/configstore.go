package memory

import (
	"maps"
	"slices"
	"sync"

	"github.com/custodia-labs/docmodel/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings in a map for the lifetime of the process.
// Tests use it in place of the TOML file store.
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewConfigStore returns an empty store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{values: map[string]any{}}
}

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *ConfigStore) GetString(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// GetInt accepts int, int64 (TOML) and float64 (JSON) values.
func (s *ConfigStore) GetInt(key string) int {
	v, _ := s.Get(key)
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func (s *ConfigStore) GetBool(key string) bool {
	v, _ := s.Get(key)
	b, _ := v.(bool)
	return b
}

// GetStringSlice returns a copy; non-string items of a []any are dropped.
func (s *ConfigStore) GetStringSlice(key string) []string {
	v, _ := s.Get(key)
	switch items := v.(type) {
	case []string:
		return slices.Clone(items)
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Keys returns the set keys in sorted order.
func (s *ConfigStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.values))
}

// Save and Load do nothing; there is no backing file.
func (s *ConfigStore) Save() error { return nil }

func (s *ConfigStore) Load() error { return nil }

func (s *ConfigStore) Path() string { return ":memory:" }
