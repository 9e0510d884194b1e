package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/ports/driven"
	"github.com/custodia-labs/docmodel/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEvictionGraceMS    = "documents.eviction_grace_ms"
	keyDefaultEncoding    = "documents.default_encoding"
	keyTrimFinalNewlines  = "files.trim_final_newlines"
	keyInsertFinalNewline = "files.insert_final_newline"
	keyRecoveryBackend    = "recovery.backend"
	keyRecoveryDataDir    = "recovery.data_dir"
	keyRecoveryRedisAddr  = "recovery.redis_addr"
	keyRecoveryKeyPrefix  = "recovery.key_prefix"
	keyGitHubToken        = "github.token"
	keyGitHubBranch       = "github.branch"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	graceMS := s.getInt(keyEvictionGraceMS, int(defaults.Documents.EvictionGrace/time.Millisecond))

	settings := &domain.AppSettings{
		Documents: domain.DocumentSettings{
			EvictionGrace:   time.Duration(graceMS) * time.Millisecond,
			DefaultEncoding: s.getString(keyDefaultEncoding, defaults.Documents.DefaultEncoding),
		},
		Files: domain.FileSettings{
			TrimFinalNewlines:  s.getBool(keyTrimFinalNewlines, defaults.Files.TrimFinalNewlines),
			InsertFinalNewline: s.getBool(keyInsertFinalNewline, defaults.Files.InsertFinalNewline),
		},
		Recovery: domain.RecoverySettings{
			Backend:   s.getRecoveryBackend(defaults.Recovery.Backend),
			DataDir:   s.configStore.GetString(keyRecoveryDataDir), // No default - empty means ~/.docmodel/data
			RedisAddr: s.configStore.GetString(keyRecoveryRedisAddr),
			KeyPrefix: s.getString(keyRecoveryKeyPrefix, defaults.Recovery.KeyPrefix),
		},
		GitHub: domain.GitHubSettings{
			Token:  s.configStore.GetString(keyGitHubToken),
			Branch: s.configStore.GetString(keyGitHubBranch),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	// Save document settings
	graceMS := int(settings.Documents.EvictionGrace / time.Millisecond)
	if err := s.configStore.Set(keyEvictionGraceMS, graceMS); err != nil {
		return fmt.Errorf("save eviction grace: %w", err)
	}
	if err := s.configStore.Set(keyDefaultEncoding, settings.Documents.DefaultEncoding); err != nil {
		return fmt.Errorf("save default encoding: %w", err)
	}

	// Save will-save behaviour
	if err := s.configStore.Set(keyTrimFinalNewlines, settings.Files.TrimFinalNewlines); err != nil {
		return fmt.Errorf("save trim_final_newlines: %w", err)
	}
	if err := s.configStore.Set(keyInsertFinalNewline, settings.Files.InsertFinalNewline); err != nil {
		return fmt.Errorf("save insert_final_newline: %w", err)
	}

	// Save recovery settings
	if err := s.configStore.Set(keyRecoveryBackend, settings.Recovery.Backend.String()); err != nil {
		return fmt.Errorf("save recovery backend: %w", err)
	}
	if err := s.configStore.Set(keyRecoveryDataDir, settings.Recovery.DataDir); err != nil {
		return fmt.Errorf("save recovery data_dir: %w", err)
	}
	if err := s.configStore.Set(keyRecoveryRedisAddr, settings.Recovery.RedisAddr); err != nil {
		return fmt.Errorf("save recovery redis_addr: %w", err)
	}
	if err := s.configStore.Set(keyRecoveryKeyPrefix, settings.Recovery.KeyPrefix); err != nil {
		return fmt.Errorf("save recovery key_prefix: %w", err)
	}

	// Save GitHub settings
	if settings.GitHub.Token != "" {
		if err := s.configStore.Set(keyGitHubToken, settings.GitHub.Token); err != nil {
			return fmt.Errorf("save github token: %w", err)
		}
	}
	if err := s.configStore.Set(keyGitHubBranch, settings.GitHub.Branch); err != nil {
		return fmt.Errorf("save github branch: %w", err)
	}

	return nil
}

// SetRecoveryBackend updates the recovery backend.
func (s *SettingsService) SetRecoveryBackend(backend domain.RecoveryBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("%w: invalid recovery backend: %s", domain.ErrInvalidInput, backend)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Recovery.Backend = backend
	return s.Save(settings)
}

// Validate checks if current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Recovery.Backend.IsValid() {
		return fmt.Errorf("%w: invalid recovery backend: %s", domain.ErrInvalidInput, settings.Recovery.Backend)
	}
	if settings.Recovery.Backend == domain.RecoveryBackendRedis && settings.Recovery.RedisAddr == "" {
		return fmt.Errorf("%w: recovery backend %q requires %s", domain.ErrInvalidInput, settings.Recovery.Backend.Description(), keyRecoveryRedisAddr)
	}
	if settings.Documents.EvictionGrace <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, keyEvictionGraceMS)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getRecoveryBackend(defaultVal domain.RecoveryBackend) domain.RecoveryBackend {
	val := s.configStore.GetString(keyRecoveryBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.RecoveryBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
