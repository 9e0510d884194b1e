package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/ports/driven"
)

// --- Mock implementations for document model testing ---

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) driven.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs due timers synchronously.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// mockProvider is an in-memory, persistable content provider.
type mockProvider struct {
	mu       sync.Mutex
	scheme   string
	files    map[domain.ResourceID]string
	loads    map[domain.ResourceID]int
	saves    []domain.SaveRequest
	loadGate chan struct{}

	// saveFunc overrides the default save behaviour when set.
	saveFunc func(req domain.SaveRequest) error
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		scheme: "mem",
		files:  make(map[domain.ResourceID]string),
		loads:  make(map[domain.ResourceID]int),
	}
}

func (p *mockProvider) Name() string {
	return "mock"
}

func (p *mockProvider) Handles(id domain.ResourceID) bool {
	return id.Scheme() == p.scheme
}

func (p *mockProvider) LoadContent(ctx context.Context, id domain.ResourceID, _ string) (string, error) {
	p.mu.Lock()
	p.loads[id]++
	gate := p.loadGate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	content, ok := p.files[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return content, nil
}

func (p *mockProvider) SaveDocument(_ context.Context, req domain.SaveRequest) error {
	p.mu.Lock()
	p.saves = append(p.saves, req)
	fn := p.saveFunc
	p.mu.Unlock()

	if fn != nil {
		if err := fn(req); err != nil {
			return err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !req.Overwrite && p.files[req.ID] != req.BaseContent {
		return domain.ErrSaveConflict
	}
	p.files[req.ID] = req.Content
	return nil
}

func (p *mockProvider) set(id domain.ResourceID, content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files[id] = content
}

func (p *mockProvider) get(id domain.ResourceID) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.files[id]
}

func (p *mockProvider) loadCount(id domain.ResourceID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads[id]
}

func (p *mockProvider) saveRequests() []domain.SaveRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.SaveRequest(nil), p.saves...)
}

// mockReadonlyProvider serves content without offering save.
type mockReadonlyProvider struct {
	content string
}

func (p *mockReadonlyProvider) Name() string {
	return "readonly"
}

func (p *mockReadonlyProvider) Handles(id domain.ResourceID) bool {
	return id.Scheme() == "ro"
}

func (p *mockReadonlyProvider) LoadContent(context.Context, domain.ResourceID, string) (string, error) {
	return p.content, nil
}

func (p *mockReadonlyProvider) IsReadonly(context.Context, domain.ResourceID) (bool, error) {
	return true, nil
}

func (p *mockReadonlyProvider) PreferredLanguage(context.Context, domain.ResourceID) (string, error) {
	return "plaintext", nil
}

// mockRecoveryStore keeps records in memory. With deferred set, GetCache
// resolves only when releaseDeferred is called. With getGate set, GetCache
// blocks until the gate closes and then returns an immediate result, like
// a synchronous store on a slow disk.
type mockRecoveryStore struct {
	mu       sync.Mutex
	records  map[domain.ResourceID]*domain.CacheRecord
	history  []*domain.CacheRecord
	snapshot bool
	deferred bool
	pending  []pendingRecord
	getGate  chan struct{}
	gets     int
}

type pendingRecord struct {
	ch  chan domain.Outcome[*domain.CacheRecord]
	rec *domain.CacheRecord
}

func newMockRecoveryStore() *mockRecoveryStore {
	return &mockRecoveryStore{records: make(map[domain.ResourceID]*domain.CacheRecord)}
}

func (s *mockRecoveryStore) HasCache(id domain.ResourceID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	return ok
}

func (s *mockRecoveryStore) GetCache(_ context.Context, id domain.ResourceID, _ string) domain.Result[*domain.CacheRecord] {
	s.mu.Lock()
	s.gets++
	rec := s.records[id]
	gate := s.getGate
	if s.deferred {
		ch := make(chan domain.Outcome[*domain.CacheRecord], 1)
		s.pending = append(s.pending, pendingRecord{ch: ch, rec: rec})
		s.mu.Unlock()
		return domain.Deferred[*domain.CacheRecord](ch)
	}
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return domain.Immediate(rec, nil)
}

func (s *mockRecoveryStore) getCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

// releaseDeferred resolves every pending GetCache call.
func (s *mockRecoveryStore) releaseDeferred() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, p := range pending {
		p.ch <- domain.Outcome[*domain.CacheRecord]{Value: p.rec}
	}
}

func (s *mockRecoveryStore) PersistCache(_ context.Context, id domain.ResourceID, rec *domain.CacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, rec)
	if rec == nil {
		delete(s.records, id)
		return nil
	}
	s.records[id] = rec
	return nil
}

func (s *mockRecoveryStore) PrefersSnapshot() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

func (s *mockRecoveryStore) record(id domain.ResourceID) *domain.CacheRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

func (s *mockRecoveryStore) put(id domain.ResourceID, rec *domain.CacheRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = rec
}

// mockChangeNotifier is a provider that also reports external changes.
type mockChangeNotifier struct {
	*mockProvider
	changes chan domain.ResourceID
}

func (n *mockChangeNotifier) Subscribe(ctx context.Context) (<-chan domain.ResourceID, error) {
	out := make(chan domain.ResourceID)
	go func() {
		defer close(out)
		for {
			select {
			case id := <-n.changes:
				select {
				case out <- id:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// collectEvents drains ch into a slice until it has n events.
func collectEvents(ch <-chan domain.Event, n int, timeout time.Duration) []domain.Event {
	var events []domain.Event
	deadline := time.After(timeout)
	for len(events) < n {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			return events
		}
	}
	return events
}

func eventTypes(events []domain.Event) []domain.EventType {
	types := make([]domain.EventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func sortedIDs(infos []domain.DocumentInfo) []string {
	ids := make([]string, len(infos))
	for i, info := range infos {
		ids[i] = info.ID.String()
	}
	sort.Strings(ids)
	return ids
}

func insertAt(line, col int, text string) domain.EditBatch {
	return domain.EditBatch{{NewText: text, Range: domain.NewRange(line, col, line, col)}}
}

func lines(s ...string) string {
	return strings.Join(s, "\n")
}
