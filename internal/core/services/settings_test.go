package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docmodel/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docmodel/internal/core/domain"
)

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	settings, err := service.Get()

	require.NoError(t, err)
	require.NotNil(t, settings)

	// Verify defaults
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Documents.EvictionGrace, settings.Documents.EvictionGrace)
	assert.Equal(t, defaults.Documents.DefaultEncoding, settings.Documents.DefaultEncoding)
	assert.Equal(t, defaults.Recovery.Backend, settings.Recovery.Backend)
	assert.Equal(t, defaults.Recovery.KeyPrefix, settings.Recovery.KeyPrefix)
	assert.False(t, settings.Files.TrimFinalNewlines)
	assert.False(t, settings.GitHub.IsConfigured())
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("documents.eviction_grace_ms", 500)
	_ = store.Set("recovery.backend", "redis")
	_ = store.Set("recovery.redis_addr", "localhost:6379")
	_ = store.Set("files.trim_final_newlines", true)
	_ = store.Set("github.token", "ghp_test")

	service := NewSettingsService(store)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, settings.Documents.EvictionGrace)
	assert.Equal(t, domain.RecoveryBackendRedis, settings.Recovery.Backend)
	assert.Equal(t, "localhost:6379", settings.Recovery.RedisAddr)
	assert.True(t, settings.Files.TrimFinalNewlines)
	assert.True(t, settings.GitHub.IsConfigured())
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("recovery.backend", "floppy")

	service := NewSettingsService(store)

	settings, err := service.Get()

	require.NoError(t, err)
	// Invalid values should fall back to defaults
	assert.Equal(t, domain.DefaultAppSettings().Recovery.Backend, settings.Recovery.Backend)
}

func TestSettingsService_Save(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	settings := domain.DefaultAppSettings()
	settings.Documents.EvictionGrace = 10 * time.Second
	settings.Files.InsertFinalNewline = true
	settings.Recovery.Backend = domain.RecoveryBackendMemory
	settings.GitHub.Branch = "main"

	require.NoError(t, service.Save(&settings))

	assert.Equal(t, 10000, store.GetInt("documents.eviction_grace_ms"))
	assert.True(t, store.GetBool("files.insert_final_newline"))
	assert.Equal(t, "memory", store.GetString("recovery.backend"))
	assert.Equal(t, "main", store.GetString("github.branch"))

	// Empty token is not written
	_, exists := store.Get("github.token")
	assert.False(t, exists)

	loaded, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *loaded)
}

func TestSettingsService_SetRecoveryBackend(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	require.NoError(t, service.SetRecoveryBackend(domain.RecoveryBackendNone))
	assert.Equal(t, "none", store.GetString("recovery.backend"))

	err := service.SetRecoveryBackend("floppy")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore())
		assert.NoError(t, service.Validate())
	})

	t.Run("redis requires address", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("recovery.backend", "redis")
		service := NewSettingsService(store)

		err := service.Validate()

		require.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, err.Error(), "recovery.redis_addr")
	})
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())
	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}
