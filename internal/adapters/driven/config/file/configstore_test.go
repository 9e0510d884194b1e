package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*ConfigStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestNewConfigStore_Success(t *testing.T) {
	store, dir := newTestStore(t)

	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".docmodel", "config.toml"), store.Path())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_CorruptedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("this is not valid TOML {{{[["), 0600))

	store, err := NewConfigStore(dir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte{}, 0600))

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	assert.Empty(t, store.Keys())
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Set("recovery.backend", "sqlite"))
	require.NoError(t, store.Set("documents.eviction_grace_ms", 3000))
	require.NoError(t, store.Set("files.insert_final_newline", true))

	assert.Equal(t, "sqlite", store.GetString("recovery.backend"))
	assert.Equal(t, 3000, store.GetInt("documents.eviction_grace_ms"))
	assert.True(t, store.GetBool("files.insert_final_newline"))

	// Wrong types and missing keys read as zero values.
	assert.Equal(t, "", store.GetString("documents.eviction_grace_ms"))
	assert.Equal(t, 0, store.GetInt("recovery.backend"))
	assert.False(t, store.GetBool("recovery.backend"))
	assert.Equal(t, "", store.GetString("missing"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_SetRejectsInvalidKey(t *testing.T) {
	store, _ := newTestStore(t)

	assert.Error(t, store.Set("", "x"))
	assert.Error(t, store.Set(".leading", "x"))
	assert.Error(t, store.Set("trailing.", "x"))
}

func TestConfigStore_PersistsAsNestedTables(t *testing.T) {
	store, dir := newTestStore(t)

	require.NoError(t, store.Set("recovery.backend", "redis"))
	require.NoError(t, store.Set("recovery.redis_addr", "localhost:6379"))
	require.NoError(t, store.Set("documents.eviction_grace_ms", 500))

	raw, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[recovery]")
	assert.Contains(t, string(raw), "[documents]")

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "redis", reopened.GetString("recovery.backend"))
	assert.Equal(t, "localhost:6379", reopened.GetString("recovery.redis_addr"))
	assert.Equal(t, 500, reopened.GetInt("documents.eviction_grace_ms"))
	assert.Equal(t, []string{"documents.eviction_grace_ms", "recovery.backend", "recovery.redis_addr"}, reopened.Keys())
}

func TestConfigStore_StringSliceRoundTrip(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, store.Set("watch.paths", []string{"/a", "/b"}))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"/a", "/b"}, reopened.GetStringSlice("watch.paths"))
}

func TestConfigStore_ValueAndTableClash(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, store.Set("github", "on"))
	require.NoError(t, store.Set("github.token", "ghp_x"))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "ghp_x", reopened.GetString("github.token"))
	assert.Len(t, reopened.Keys(), 2)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Set("test", "value"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Save_Explicit(t *testing.T) {
	store, dir := newTestStore(t)

	store.mu.Lock()
	store.data["manual.key"] = "manual_value"
	store.mu.Unlock()
	require.NoError(t, store.Save())

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "manual_value", reopened.GetString("manual.key"))
}

func TestConfigStore_Save_TargetIsDirectory(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Set("test", "value"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("another", "value"))
}

func TestConfigStore_Load_InvalidTOML(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Set("valid", "data"))
	require.NoError(t, os.WriteFile(store.Path(), []byte("invalid toml syntax ][}{"), 0600))

	assert.Error(t, store.Load())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, _ := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := "key" + string(rune('0'+id))
			assert.NoError(t, store.Set(key, id))
			_ = store.GetInt(key)
			_ = store.Keys()
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys(), 10)
}

func TestNestMap(t *testing.T) {
	nested := nestMap(map[string]any{
		"a.b":   1,
		"a.c.d": "x",
		"e":     true,
	})

	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": 1,
			"c": map[string]any{"d": "x"},
		},
		"e": true,
	}, nested)
}

func TestFlattenMap(t *testing.T) {
	flat := flattenMap(map[string]any{
		"a": map[string]any{"b": int64(1)},
		"c": "x",
	}, "")

	assert.Equal(t, map[string]any{"a.b": int64(1), "c": "x"}, flat)
}
