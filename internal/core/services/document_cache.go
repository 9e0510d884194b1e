package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/ports/driven"
	"github.com/custodia-labs/docmodel/internal/core/ports/driving"
	"github.com/custodia-labs/docmodel/internal/logger"
)

// Ensure DocumentCache implements the interface.
var _ driving.DocumentModelService = (*DocumentCache)(nil)

// DocumentCacheConfig holds the collaborators of a DocumentCache.
type DocumentCacheConfig struct {
	Registry *ContentRegistry

	// Recovery stores unsaved edits. Nil disables recovery.
	Recovery driven.ContentCacheProvider

	// Clock schedules evictions. Nil means the system clock.
	Clock driven.Clock

	// EvictionGrace is how long an unreferenced model survives.
	// Zero means domain.DefaultEvictionGrace.
	EvictionGrace time.Duration

	// DefaultEncoding is used to open every document. Empty means utf8.
	DefaultEncoding string

	// Participants run before every save snapshot.
	Participants []SaveParticipant
}

// DocumentCache owns every live DocumentModel and hands out counted
// references to them. A model whose count drops to zero is disposed after
// a grace delay unless it is referenced again first.
type DocumentCache struct {
	registry     *ContentRegistry
	recovery     driven.ContentCacheProvider
	clock        driven.Clock
	grace        time.Duration
	encoding     string
	participants []SaveParticipant

	group  singleflight.Group
	events *broadcaster

	// lifetime bounds in-flight creations; Close cancels it.
	lifetime context.Context
	cancel   context.CancelFunc

	mu      sync.Mutex
	entries map[domain.ResourceID]*cacheEntry
	closed  bool
}

type cacheEntry struct {
	model *DocumentModel
	refs  int
	timer driven.Timer

	// gen invalidates eviction callbacks scheduled before the last acquire.
	gen uint64
}

// NewDocumentCache creates an empty cache.
func NewDocumentCache(cfg DocumentCacheConfig) *DocumentCache {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	grace := cfg.EvictionGrace
	if grace <= 0 {
		grace = domain.DefaultEvictionGrace
	}
	encoding := cfg.DefaultEncoding
	if encoding == "" {
		encoding = domain.DefaultEncoding
	}
	registry := cfg.Registry
	if registry == nil {
		registry = NewContentRegistry()
	}

	lifetime, cancel := context.WithCancel(context.Background())
	return &DocumentCache{
		lifetime:     lifetime,
		cancel:       cancel,
		registry:     registry,
		recovery:     cfg.Recovery,
		clock:        clock,
		grace:        grace,
		encoding:     encoding,
		participants: cfg.Participants,
		events:       newBroadcaster(),
		entries:      make(map[domain.ResourceID]*cacheEntry),
	}
}

// GetReference returns a handle to the model for id, creating it on first use.
// Concurrent callers for the same id share one creation. The creation is
// not tied to any single caller's ctx, so one caller giving up does not
// fail the others; a caller whose ctx ends gets ctx.Err().
func (c *DocumentCache) GetReference(ctx context.Context, id domain.ResourceID) (driving.Reference, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty resource id", domain.ErrInvalidInput)
	}

	for {
		if ref, ok := c.acquire(id); ok {
			return ref, nil
		}

		done := c.group.DoChan(string(id), func() (any, error) {
			c.mu.Lock()
			_, exists := c.entries[id]
			c.mu.Unlock()
			if exists {
				return nil, nil
			}
			return nil, c.create(context.WithoutCancel(ctx), id)
		})
		select {
		case res := <-done:
			if res.Err != nil {
				return nil, res.Err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// GetReferenceIfExists returns a handle only if the model is live.
func (c *DocumentCache) GetReferenceIfExists(id domain.ResourceID) (driving.Reference, bool) {
	return c.acquire(id)
}

// Models returns a summary of every live model, sorted by id.
func (c *DocumentCache) Models() []domain.DocumentInfo {
	type live struct {
		model *DocumentModel
		refs  int
	}

	c.mu.Lock()
	models := make([]live, 0, len(c.entries))
	for _, e := range c.entries {
		models = append(models, live{model: e.model, refs: e.refs})
	}
	c.mu.Unlock()

	infos := make([]domain.DocumentInfo, 0, len(models))
	for _, l := range models {
		info := l.model.Info()
		info.RefCount = l.refs
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// OnExternalChange reloads a clean model whose stored content no longer
// matches its baseline.
func (c *DocumentCache) OnExternalChange(ctx context.Context, id domain.ResourceID) error {
	c.mu.Lock()
	e, ok := c.entries[id]
	c.mu.Unlock()
	if !ok {
		return nil
	}

	model := e.model
	if model.Dirty() {
		logger.Debug("docmodel: ignoring external change to dirty %s", id)
		return nil
	}

	provider, err := c.registry.Resolve(id)
	if err != nil {
		return err
	}
	base := model.BaseFingerprint()

	if fp, ok := provider.(driven.ContentFingerprinter); ok {
		digest, err := fp.ContentFingerprint(ctx, id)
		if err != nil {
			return fmt.Errorf("fingerprint %s: %w", id, err)
		}
		if digest == base {
			return nil
		}
	}

	content, err := provider.LoadContent(ctx, id, model.Info().Encoding)
	if err != nil {
		return fmt.Errorf("load %s: %w", id, err)
	}
	if domain.Fingerprint(content) == base {
		return nil
	}

	if model.acceptExternalContent(content) {
		logger.Info("docmodel: reloaded %s after external change", id)
	}
	return nil
}

// Subscribe streams events for every model plus creation and disposal.
func (c *DocumentCache) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	return c.events.subscribe(ctx)
}

// Watch forwards change notifications from every provider that emits them
// to OnExternalChange. It blocks until ctx is done.
func (c *DocumentCache) Watch(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, n := range c.registry.Notifiers() {
		changes, err := n.Subscribe(gctx)
		if err != nil {
			return fmt.Errorf("subscribe to changes: %w", err)
		}
		g.Go(func() error {
			for id := range changes {
				if err := c.OnExternalChange(gctx, id); err != nil {
					logger.Warn("docmodel: external change to %s: %v", id, err)
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	return g.Wait()
}

// Close disposes every model immediately. Creations still in flight are
// cancelled and their callers get domain.ErrDisposed.
func (c *DocumentCache) Close() {
	c.cancel()

	c.mu.Lock()
	c.closed = true
	entries := c.entries
	c.entries = make(map[domain.ResourceID]*cacheEntry)
	for _, e := range entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	c.mu.Unlock()

	for id, e := range entries {
		c.disposeModel(id, e.model)
	}
	c.events.close()
}

// create loads id and publishes its model. Recovery is applied before the
// entry becomes visible, so no caller sees the model without its restored
// edits. The entry starts unreferenced with an eviction timer running, which
// the caller's acquire stops; if every caller has gone it is evicted as usual.
func (c *DocumentCache) create(ctx context.Context, id domain.ResourceID) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.lifetime, cancel)
	defer stop()

	if c.isClosed() {
		return domain.ErrDisposed
	}

	provider, err := c.registry.Resolve(id)
	if err != nil {
		return err
	}
	content, opts, err := c.registry.Open(ctx, provider, id, c.encoding)
	if err != nil {
		if c.isClosed() {
			return domain.ErrDisposed
		}
		return err
	}

	persister, _ := provider.(driven.DocumentPersister)
	model := NewDocumentModel(DocumentModelConfig{
		ID:           id,
		Content:      content,
		Options:      opts,
		Provider:     provider,
		Persister:    persister,
		Recovery:     c.recovery,
		Participants: c.participants,
		Sink:         c.events.publish,
	})

	logger.Debug("docmodel: created model for %s via %s", id, provider.Name())
	c.events.publish(domain.Event{
		Type:       domain.EventModelCreated,
		ID:         id,
		Version:    model.Version(),
		Encoding:   opts.Encoding,
		LanguageID: opts.LanguageID,
		LineEnding: model.Info().LineEnding,
	})

	model.restore()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.disposeModel(id, model)
		return domain.ErrDisposed
	}
	e := &cacheEntry{model: model}
	c.entries[id] = e
	c.scheduleEvictionLocked(id, e)
	c.mu.Unlock()
	return nil
}

func (c *DocumentCache) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *DocumentCache) acquire(id domain.ResourceID) (driving.Reference, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	e.refs++
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	return &reference{cache: c, id: id, entry: e}, true
}

func (c *DocumentCache) release(id domain.ResourceID, e *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.refs--
	if e.refs > 0 {
		return
	}
	c.scheduleEvictionLocked(id, e)
}

func (c *DocumentCache) scheduleEvictionLocked(id domain.ResourceID, e *cacheEntry) {
	e.gen++
	gen := e.gen
	e.timer = c.clock.AfterFunc(c.grace, func() {
		c.evict(id, e, gen)
	})
}

func (c *DocumentCache) evict(id domain.ResourceID, e *cacheEntry, gen uint64) {
	c.mu.Lock()
	if cur, ok := c.entries[id]; !ok || cur != e || e.refs > 0 || e.gen != gen {
		c.mu.Unlock()
		return
	}
	delete(c.entries, id)
	e.timer = nil
	c.mu.Unlock()

	c.disposeModel(id, e.model)
}

func (c *DocumentCache) disposeModel(id domain.ResourceID, model *DocumentModel) {
	version := model.Version()
	model.dispose()
	logger.Debug("docmodel: disposed model for %s", id)
	c.events.publish(domain.Event{
		Type:    domain.EventModelDisposed,
		ID:      id,
		Version: version,
	})
}

// reference is one counted handle.
type reference struct {
	cache    *DocumentCache
	id       domain.ResourceID
	entry    *cacheEntry
	released atomic.Bool
}

func (r *reference) Document() driving.Document {
	return r.entry.model
}

func (r *reference) Release() error {
	if !r.released.CompareAndSwap(false, true) {
		return domain.ErrReferenceReleased
	}
	r.cache.release(r.id, r.entry)
	return nil
}
