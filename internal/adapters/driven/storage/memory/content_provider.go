package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/ports/driven"
)

// UntitledScheme is the scheme served by the default in-memory provider.
const UntitledScheme = "untitled"

// Ensure ContentProvider implements the interfaces.
var (
	_ driven.ContentProvider      = (*ContentProvider)(nil)
	_ driven.DocumentPersister    = (*ContentProvider)(nil)
	_ driven.ContentFingerprinter = (*ContentProvider)(nil)
)

// ContentProvider serves documents held in memory under one URI scheme.
// Unknown ids load as empty documents so scratch buffers can be opened
// before they are first saved.
type ContentProvider struct {
	scheme string

	mu    sync.RWMutex
	files map[domain.ResourceID]string
}

// NewContentProvider creates a provider for scheme. An empty scheme means
// UntitledScheme.
func NewContentProvider(scheme string) *ContentProvider {
	if scheme == "" {
		scheme = UntitledScheme
	}
	return &ContentProvider{
		scheme: scheme,
		files:  make(map[domain.ResourceID]string),
	}
}

// Name returns the provider name.
func (p *ContentProvider) Name() string {
	return "memory"
}

// Handles returns true for ids with the provider's scheme.
func (p *ContentProvider) Handles(id domain.ResourceID) bool {
	return id.Scheme() == p.scheme
}

// LoadContent returns the stored content, or "" for an unknown id.
func (p *ContentProvider) LoadContent(_ context.Context, id domain.ResourceID, _ string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.files[id], nil
}

// SaveDocument stores req.Content, detecting conflicting writes.
func (p *ContentProvider) SaveDocument(_ context.Context, req domain.SaveRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !req.Overwrite && p.files[req.ID] != req.BaseContent {
		return fmt.Errorf("%w: %s", domain.ErrSaveConflict, req.ID)
	}
	p.files[req.ID] = req.Content
	return nil
}

// ContentFingerprint returns the digest of the stored content.
func (p *ContentProvider) ContentFingerprint(_ context.Context, id domain.ResourceID) (domain.Digest, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return domain.Fingerprint(p.files[id]), nil
}

// Put replaces the stored content of id, as another writer would.
func (p *ContentProvider) Put(id domain.ResourceID, content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files[id] = content
}
