package driving

import "github.com/custodia-labs/docmodel/internal/core/domain"

// SettingsService reads and writes AppSettings through the config store.
// Changes apply to models created after the next wiring; open models keep
// the participants and encoding they were built with.
type SettingsService interface {
	// Get loads settings, filling unset keys from GetDefaults.
	Get() (*domain.AppSettings, error)

	Save(settings *domain.AppSettings) error

	// SetRecoveryBackend changes only the recovery backend.
	SetRecoveryBackend(backend domain.RecoveryBackend) error

	// Validate returns domain.ErrInvalidInput wrapped with the first problem
	// found, such as a redis backend without an address.
	Validate() error

	GetDefaults() domain.AppSettings
}
