package auth

import (
	"context"
	"errors"
	"os"

	"github.com/custodia-labs/docmodel/internal/core/ports/driven"
)

// Ensure PATProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*PATProvider)(nil)

// ErrNoToken indicates no personal access token is configured.
var ErrNoToken = errors.New("no access token configured")

// PATProvider serves a personal access token from the config store, falling
// back to an environment variable. PATs don't expire and don't require refresh.
type PATProvider struct {
	config driven.ConfigStore
	key    string
	envVar string
}

// NewPATProvider reads the token from config key, or from envVar when the
// key is unset. Either may be empty.
func NewPATProvider(config driven.ConfigStore, key, envVar string) *PATProvider {
	return &PATProvider{config: config, key: key, envVar: envVar}
}

// GetToken returns the configured token.
func (p *PATProvider) GetToken(_ context.Context) (string, error) {
	if token := p.token(); token != "" {
		return token, nil
	}
	return "", ErrNoToken
}

// IsAuthenticated returns true if a token is configured.
func (p *PATProvider) IsAuthenticated() bool {
	return p.token() != ""
}

func (p *PATProvider) token() string {
	if p.config != nil && p.key != "" {
		if token := p.config.GetString(p.key); token != "" {
			return token
		}
	}
	if p.envVar != "" {
		return os.Getenv(p.envVar)
	}
	return ""
}
