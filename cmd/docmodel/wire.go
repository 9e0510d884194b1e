package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/custodia-labs/docmodel/internal/adapters/driven/auth"
	"github.com/custodia-labs/docmodel/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docmodel/internal/adapters/driven/content/filesystem"
	"github.com/custodia-labs/docmodel/internal/adapters/driven/content/github"
	"github.com/custodia-labs/docmodel/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docmodel/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/docmodel/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/ports/driven"
	"github.com/custodia-labs/docmodel/internal/core/services"
)

// Environment variables read at startup.
const (
	envConfigDir   = "DOCMODEL_CONFIG_DIR"
	envGitHubToken = "GITHUB_TOKEN"
)

// githubTokenKey is the config key holding the GitHub personal access token.
//
//nolint:gosec // G101: config key name, not a credential.
const githubTokenKey = "github.token"

// appConfig overrides where wire finds its state. Zero values use the defaults.
type appConfig struct {
	// ConfigDir holds config.toml. Empty reads DOCMODEL_CONFIG_DIR, then ~/.docmodel.
	ConfigDir string

	// ConfigStore replaces the file config store when set.
	ConfigStore driven.ConfigStore
}

// app holds the wired services and the resources they own.
type app struct {
	Documents *services.DocumentCache
	Settings  *services.SettingsService
	Recovery  *services.RecoveryService
	Backend   domain.RecoveryBackend

	closers []func() error
}

// Close disposes every model, then closes the recovery backend.
func (a *app) Close() {
	a.Documents.Close()
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// wire builds the application from settings.
func wire(ctx context.Context, cfg appConfig) (*app, error) {
	configStore := cfg.ConfigStore
	if configStore == nil {
		dir := cfg.ConfigDir
		if dir == "" {
			dir = os.Getenv(envConfigDir)
		}
		store, err := file.NewConfigStore(dir)
		if err != nil {
			return nil, fmt.Errorf("opening config: %w", err)
		}
		configStore = store
	}

	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	a := &app{Settings: settingsService, Backend: settings.Recovery.Backend}

	recovery, closer, err := openRecovery(ctx, settings.Recovery)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	tokens := auth.OrAnonymous(auth.NewPATProvider(configStore, githubTokenKey, envGitHubToken))
	registry := services.NewContentRegistry(
		filesystem.New(),
		github.New(github.NewClient(tokens), settings.GitHub.Branch),
		memory.NewContentProvider(memory.UntitledScheme),
	)

	a.Documents = services.NewDocumentCache(services.DocumentCacheConfig{
		Registry:        registry,
		Recovery:        recovery,
		Clock:           services.SystemClock{},
		EvictionGrace:   settings.Documents.EvictionGrace,
		DefaultEncoding: settings.Documents.DefaultEncoding,
		Participants:    services.ParticipantsFromSettings(settings.Files),
	})
	a.Recovery = services.NewRecoveryService(recovery)

	return a, nil
}

// openRecovery returns the recovery store for the configured backend and a
// function releasing it, which may be nil.
func openRecovery(ctx context.Context, cfg domain.RecoverySettings) (services.RecoveryStore, func() error, error) {
	switch cfg.Backend {
	case domain.RecoveryBackendNone:
		return memory.NoopRecoveryStore{}, nil, nil

	case domain.RecoveryBackendMemory:
		return memory.NewRecoveryStore(), nil, nil

	case domain.RecoveryBackendSQLite:
		store, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite recovery store: %w", err)
		}
		rec, err := store.RecoveryStore(cfg.KeyPrefix)
		if err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("loading sqlite recovery index: %w", err)
		}
		return rec, store.Close, nil

	case domain.RecoveryBackendRedis:
		if cfg.RedisAddr == "" {
			return nil, nil, errors.New("recovery backend redis requires recovery.redis_addr")
		}
		rdb, err := redis.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		rec, err := redis.NewRecoveryStore(ctx, rdb, cfg.KeyPrefix)
		if err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("loading redis recovery index: %w", err)
		}
		return rec, rdb.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown recovery backend %q", cfg.Backend)
	}
}

// resolvePath turns a bare path argument into a file resource id.
func resolvePath(arg string) (domain.ResourceID, error) {
	return filesystem.ResourceID(arg)
}
