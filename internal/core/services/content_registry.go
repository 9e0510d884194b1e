package services

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/ports/driven"
	"github.com/custodia-labs/docmodel/internal/logger"
)

// ContentRegistry routes resources to content providers.
// Providers are consulted in registration order; the first one whose
// Handles returns true serves the resource.
type ContentRegistry struct {
	mu        sync.RWMutex
	providers []driven.ContentProvider
}

// NewContentRegistry creates a registry with the given providers.
func NewContentRegistry(providers ...driven.ContentProvider) *ContentRegistry {
	return &ContentRegistry{providers: providers}
}

// Register appends a provider.
func (r *ContentRegistry) Register(p driven.ContentProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
}

// Resolve returns the provider for id.
func (r *ContentRegistry) Resolve(id domain.ResourceID) (driven.ContentProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		if p.Handles(id) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, id)
}

// Names returns the provider names in registration order.
func (r *ContentRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Notifiers returns the providers that report external changes.
func (r *ContentRegistry) Notifiers() []driven.ChangeNotifier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var notifiers []driven.ChangeNotifier
	for _, p := range r.providers {
		if n, ok := p.(driven.ChangeNotifier); ok {
			notifiers = append(notifiers, n)
		}
	}
	return notifiers
}

// Open loads the content of id and its document options in parallel.
// Metadata lookups that fail fall back to defaults; a content load failure
// fails the open.
func (r *ContentRegistry) Open(
	ctx context.Context,
	p driven.ContentProvider,
	id domain.ResourceID,
	encoding string,
) (string, domain.DocumentOptions, error) {
	var (
		content    string
		readonly   bool
		languageID string
		lineEnding string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := p.LoadContent(gctx, id, encoding)
		if err != nil {
			return fmt.Errorf("load %s: %w", id, err)
		}
		content = c
		return nil
	})
	if d, ok := p.(driven.ReadonlyReporter); ok {
		g.Go(func() error {
			ro, err := d.IsReadonly(gctx, id)
			if err != nil {
				logger.Debug("docmodel: readonly lookup for %s: %v", id, err)
				return nil
			}
			readonly = ro
			return nil
		})
	}
	if d, ok := p.(driven.LanguageDetector); ok {
		g.Go(func() error {
			lang, err := d.PreferredLanguage(gctx, id)
			if err != nil {
				logger.Debug("docmodel: language lookup for %s: %v", id, err)
				return nil
			}
			languageID = lang
			return nil
		})
	}
	if d, ok := p.(driven.LineEndingDetector); ok {
		g.Go(func() error {
			eol, err := d.PreferredLineEnding(gctx, id)
			if err != nil {
				logger.Debug("docmodel: line ending lookup for %s: %v", id, err)
				return nil
			}
			lineEnding = eol
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", domain.DocumentOptions{}, err
	}

	_, persistable := p.(driven.DocumentPersister)
	return content, domain.DocumentOptions{
		Encoding:    encoding,
		LineEnding:  lineEnding,
		LanguageID:  languageID,
		Readonly:    readonly,
		Persistable: persistable,
	}, nil
}
