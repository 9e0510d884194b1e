package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/ports/driven"
	"github.com/custodia-labs/docmodel/internal/core/ports/driving"
	"github.com/custodia-labs/docmodel/internal/logger"
)

// Ensure DocumentModel implements the interface.
var _ driving.Document = (*DocumentModel)(nil)

// DocumentModelConfig holds what a DocumentModel is built from.
type DocumentModelConfig struct {
	ID      domain.ResourceID
	Content string
	Options domain.DocumentOptions

	// Provider reloads content on revert, encoding change and external change.
	Provider driven.ContentProvider

	// Persister writes saves. Without one the model is never dirty.
	Persister driven.DocumentPersister

	// Recovery stores unsaved edits. May be nil.
	Recovery driven.ContentCacheProvider

	// Participants run before every save snapshot.
	Participants []SaveParticipant

	// Sink receives every event after the model's own subscribers.
	Sink func(domain.Event)
}

// DocumentModel is the editable, versioned state of one open resource.
//
// All state is guarded by mu. Recovery records are written under persistMu,
// which is acquired before mu is released so records reach the store in the
// order the edits happened.
type DocumentModel struct {
	id           domain.ResourceID
	provider     driven.ContentProvider
	persister    driven.DocumentPersister
	recovery     driven.ContentCacheProvider
	participants []SaveParticipant
	sink         func(domain.Event)
	events       *broadcaster

	lifetime context.Context
	cancel   context.CancelFunc

	mu                sync.Mutex
	buf               *textBuffer
	encoding          string
	originalEncoding  string
	lineEnding        string
	fixedLineEnding   bool
	languageID        string
	readonly          bool
	persistable       bool
	baseContent       string
	baseFingerprint   domain.Digest
	cleanMarker       int
	persistedVersion  int
	editLog           []domain.EditLogEntry
	snapshotRecovered bool
	saveQueue         []*SaveTask
	running           *SaveTask
	draining          bool
	epoch             uint64
	disposed          bool

	persistMu sync.Mutex
}

// NewDocumentModel creates a clean model over cfg.Content.
func NewDocumentModel(cfg DocumentModelConfig) *DocumentModel {
	opts := cfg.Options
	encoding := opts.Encoding
	if encoding == "" {
		encoding = domain.DefaultEncoding
	}

	content := cfg.Content
	eol := opts.LineEnding
	fixed := eol != ""
	if fixed {
		content = normalizeLineEndings(content, eol)
	} else {
		eol = detectLineEnding(content)
	}

	ctx, cancel := context.WithCancel(context.Background())
	buf := newTextBuffer(content)
	return &DocumentModel{
		id:               cfg.ID,
		provider:         cfg.Provider,
		persister:        cfg.Persister,
		recovery:         cfg.Recovery,
		participants:     cfg.Participants,
		sink:             cfg.Sink,
		events:           newBroadcaster(),
		lifetime:         ctx,
		cancel:           cancel,
		buf:              buf,
		encoding:         encoding,
		originalEncoding: encoding,
		lineEnding:       eol,
		fixedLineEnding:  fixed,
		languageID:       opts.LanguageID,
		readonly:         opts.Readonly,
		persistable:      opts.Persistable && cfg.Persister != nil,
		baseContent:      cfg.Content,
		cleanMarker:      buf.AlternativeVersionID(),
		persistedVersion: buf.VersionID(),
	}
}

// ID returns the resource id.
func (m *DocumentModel) ID() domain.ResourceID {
	return m.id
}

// CurrentContent returns the buffer, or the text in r if r is non-nil.
func (m *DocumentModel) CurrentContent(r *domain.Range) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return "", domain.ErrDisposed
	}
	if r == nil {
		return m.buf.Value(), nil
	}
	return m.buf.ValueInRange(*r)
}

// Dirty reports whether the buffer differs from the last loaded or saved state.
func (m *DocumentModel) Dirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.disposed && m.dirtyLocked()
}

// Version returns the change counter.
func (m *DocumentModel) Version() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.VersionID()
}

// BaseFingerprint returns the digest of the last loaded or saved content.
func (m *DocumentModel) BaseFingerprint() domain.Digest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseFingerprintLocked()
}

// Info returns a summary of the model. RefCount is filled in by the cache.
func (m *DocumentModel) Info() domain.DocumentInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.DocumentInfo{
		ID:               m.id,
		Encoding:         m.encoding,
		LineEnding:       m.lineEnding,
		LanguageID:       m.languageID,
		Readonly:         m.readonly,
		Persistable:      m.persistable,
		Dirty:            !m.disposed && m.dirtyLocked(),
		Version:          m.buf.VersionID(),
		PersistedVersion: m.persistedVersion,
		BaseFingerprint:  m.baseFingerprintLocked(),
	}
}

// Subscribe streams this model's content and metadata events.
func (m *DocumentModel) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	return m.events.subscribe(ctx)
}

// ApplyEdits applies batch atomically as a live edit.
func (m *DocumentModel) ApplyEdits(batch domain.EditBatch) error {
	if err := batch.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return domain.ErrDisposed
	}
	if m.readonly {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrReadonly, m.id)
	}
	if err := m.applyLocked(batch); err != nil {
		m.mu.Unlock()
		return err
	}
	m.unlockAndPersist(m.recordLocked())
	return nil
}

// Undo reverts the last batch.
func (m *DocumentModel) Undo() bool {
	return m.step((*textBuffer).Undo)
}

// Redo reapplies the last undone batch.
func (m *DocumentModel) Redo() bool {
	return m.step((*textBuffer).Redo)
}

func (m *DocumentModel) step(op func(*textBuffer) (domain.EditBatch, bool)) bool {
	m.mu.Lock()
	if m.disposed || m.readonly {
		m.mu.Unlock()
		return false
	}
	from := m.buf.VersionID()
	batch, ok := op(m.buf)
	if !ok {
		m.mu.Unlock()
		return false
	}
	m.commitLocked(from, batch)
	m.unlockAndPersist(m.recordLocked())
	return true
}

// Save queues a save and waits for it.
func (m *DocumentModel) Save(ctx context.Context, overwrite bool) (bool, error) {
	task, err := m.queueSave(overwrite)
	if err != nil || task == nil {
		return false, err
	}

	result, err := task.Wait(ctx)
	if err != nil {
		return false, err
	}
	if result.State != domain.SaveStateSuccess {
		return false, result.Err
	}
	return true, nil
}

// QueueSave queues a save without waiting. It returns nil when there is
// nothing to save.
func (m *DocumentModel) QueueSave(overwrite bool) driving.SaveHandle {
	task, err := m.queueSave(overwrite)
	if err != nil || task == nil {
		return nil
	}
	return task
}

func (m *DocumentModel) queueSave(overwrite bool) (*SaveTask, error) {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return nil, domain.ErrDisposed
	}
	if !m.dirtyLocked() {
		m.mu.Unlock()
		return nil, nil
	}

	changed := m.runParticipantsLocked()
	version := m.buf.VersionID()

	task := m.lastTaskLocked()
	start := false
	if task == nil || task.targetVersion != version || task.epoch != m.epoch {
		task = newSaveTask(version, m.buf.AlternativeVersionID(), m.buf.Value(), m.epoch, overwrite)
		m.saveQueue = append(m.saveQueue, task)
		if !m.draining {
			m.draining = true
			start = true
		}
	}

	if changed {
		m.unlockAndPersist(m.recordLocked())
	} else {
		m.mu.Unlock()
	}

	if start {
		go m.drain()
	}
	return task, nil
}

func (m *DocumentModel) lastTaskLocked() *SaveTask {
	if n := len(m.saveQueue); n > 0 {
		return m.saveQueue[n-1]
	}
	return m.running
}

func (m *DocumentModel) runParticipantsLocked() bool {
	if m.readonly {
		return false
	}
	changed := false
	for _, p := range m.participants {
		batch := p.Participate(m.buf.Value(), m.lineEnding)
		if len(batch) == 0 {
			continue
		}
		if err := m.applyLocked(batch); err != nil {
			logger.Warn("docmodel: save participant %s on %s: %v", p.Name(), m.id, err)
			continue
		}
		changed = true
	}
	return changed
}

// drain runs queued saves one at a time until the queue is empty.
func (m *DocumentModel) drain() {
	for {
		m.mu.Lock()
		if len(m.saveQueue) == 0 {
			m.draining = false
			m.mu.Unlock()
			return
		}
		task := m.saveQueue[0]
		m.saveQueue[0] = nil
		m.saveQueue = m.saveQueue[1:]
		m.running = task
		task.start()
		req := domain.SaveRequest{
			ID:          m.id,
			Content:     task.snapshot,
			BaseContent: m.baseContent,
			Edits:       m.editsSinceLocked(m.persistedVersion),
			Encoding:    m.encoding,
			Overwrite:   task.overwrite,
		}
		m.mu.Unlock()

		logger.Debug("docmodel: saving %s at version %d", m.id, task.targetVersion)
		result := m.runSave(req)

		m.mu.Lock()
		m.running = nil
		if result.State == domain.SaveStateSuccess && task.epoch == m.epoch && !m.disposed {
			m.commitSaveLocked(task)
			m.unlockAndPersist(m.recordLocked())
		} else {
			m.mu.Unlock()
		}

		switch result.State {
		case domain.SaveStateConflict:
			logger.Info("docmodel: save conflict on %s", m.id)
		case domain.SaveStateError:
			logger.Warn("docmodel: save failed on %s: %v", m.id, result.Err)
		}
		task.finish(result)
	}
}

// runSave calls the persister, turning a panic into an error result.
func (m *DocumentModel) runSave(req domain.SaveRequest) (result domain.SaveResult) {
	if m.persister == nil {
		return domain.SaveResult{State: domain.SaveStateError, Err: domain.ErrNotPersistable}
	}

	defer func() {
		if r := recover(); r != nil {
			result = domain.SaveResult{
				State: domain.SaveStateError,
				Err:   fmt.Errorf("save %s: panic: %v", m.id, r),
			}
		}
	}()

	err := m.persister.SaveDocument(context.Background(), req)
	switch {
	case err == nil:
		return domain.SaveResult{State: domain.SaveStateSuccess}
	case errors.Is(err, domain.ErrSaveConflict):
		return domain.SaveResult{State: domain.SaveStateConflict, Err: err}
	default:
		return domain.SaveResult{State: domain.SaveStateError, Err: fmt.Errorf("save %s: %w", m.id, err)}
	}
}

func (m *DocumentModel) commitSaveLocked(task *SaveTask) {
	m.baseContent = task.snapshot
	m.baseFingerprint = ""
	m.persistedVersion = task.targetVersion
	m.cleanMarker = task.targetAlt
	m.snapshotRecovered = false

	kept := m.editLog[:0]
	for _, entry := range m.editLog {
		if entry.FromVersion >= m.persistedVersion {
			kept = append(kept, entry)
		}
	}
	m.editLog = kept

	m.emitLocked(m.contentEventLocked(nil))
}

// Revert reloads under the original encoding, discarding edits and the
// recovery record.
func (m *DocumentModel) Revert(ctx context.Context) error {
	m.mu.Lock()
	encoding := m.originalEncoding
	m.mu.Unlock()
	return m.SetEncoding(ctx, encoding)
}

// SetEncoding reloads the content decoded with encoding.
func (m *DocumentModel) SetEncoding(ctx context.Context, encoding string) error {
	if encoding == "" {
		return fmt.Errorf("%w: empty encoding", domain.ErrInvalidInput)
	}

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return domain.ErrDisposed
	}
	prev := m.encoding
	m.encoding = encoding
	m.mu.Unlock()

	if err := m.reload(ctx); err != nil {
		m.mu.Lock()
		m.encoding = prev
		m.mu.Unlock()
		return err
	}

	if prev != encoding {
		m.mu.Lock()
		if !m.disposed {
			m.emitLocked(m.metadataEventLocked())
		}
		m.mu.Unlock()
	}
	return nil
}

// SetLanguageID changes the language id.
func (m *DocumentModel) SetLanguageID(languageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed || m.languageID == languageID {
		return
	}
	m.languageID = languageID
	m.emitLocked(m.metadataEventLocked())
}

// SetLineEnding converts the buffer to eol as one undoable edit.
func (m *DocumentModel) SetLineEnding(eol string) error {
	if eol != domain.LineEndingLF && eol != domain.LineEndingCRLF {
		return fmt.Errorf("%w: unsupported line ending %q", domain.ErrInvalidInput, eol)
	}

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return domain.ErrDisposed
	}
	if m.lineEnding == eol {
		m.fixedLineEnding = true
		m.mu.Unlock()
		return nil
	}
	if m.readonly {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrReadonly, m.id)
	}

	current := m.buf.Value()
	converted := normalizeLineEndings(current, eol)
	m.lineEnding = eol
	m.fixedLineEnding = true

	changed := false
	if converted != current {
		batch := domain.EditBatch{{NewText: converted, Range: m.buf.FullRange()}}
		if err := m.applyLocked(batch); err != nil {
			m.mu.Unlock()
			return err
		}
		changed = true
	}
	m.emitLocked(m.metadataEventLocked())

	if changed {
		m.unlockAndPersist(m.recordLocked())
	} else {
		m.mu.Unlock()
	}
	return nil
}

// reload replaces the content with a fresh load from the provider.
func (m *DocumentModel) reload(ctx context.Context) error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return domain.ErrDisposed
	}
	encoding := m.encoding
	m.mu.Unlock()

	content, err := m.provider.LoadContent(ctx, m.id, encoding)
	if err != nil {
		return fmt.Errorf("reload %s: %w", m.id, err)
	}

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return domain.ErrDisposed
	}
	dropped := m.resetLocked(content)
	m.unlockAndPersist(nil)

	supersede(dropped)
	return nil
}

// acceptExternalContent adopts content written by someone else. A dirty
// model keeps its edits and returns false.
func (m *DocumentModel) acceptExternalContent(content string) bool {
	m.mu.Lock()
	if m.disposed || m.dirtyLocked() {
		m.mu.Unlock()
		return false
	}
	dropped := m.resetLocked(content)
	m.unlockAndPersist(nil)

	supersede(dropped)
	return true
}

// resetLocked makes content the new clean baseline. The version keeps
// counting up. Queued saves belong to the old baseline and are returned
// for the caller to resolve.
func (m *DocumentModel) resetLocked(content string) []*SaveTask {
	text := content
	if m.fixedLineEnding {
		text = normalizeLineEndings(content, m.lineEnding)
	} else {
		m.lineEnding = detectLineEnding(content)
	}

	m.buf.SetValue(text)
	m.baseContent = content
	m.baseFingerprint = ""
	m.persistedVersion = m.buf.VersionID()
	m.cleanMarker = m.buf.AlternativeVersionID()
	m.editLog = nil
	m.snapshotRecovered = false
	m.epoch++

	dropped := m.saveQueue
	m.saveQueue = nil

	m.emitLocked(m.contentEventLocked(nil))
	return dropped
}

func supersede(tasks []*SaveTask) {
	for _, t := range tasks {
		t.finish(domain.SaveResult{State: domain.SaveStateError, Err: domain.ErrSaveSuperseded})
	}
}

// restore looks up a recovery record and applies it now or when it arrives.
func (m *DocumentModel) restore() {
	if m.recovery == nil || !m.recovery.HasCache(m.id) {
		return
	}

	m.mu.Lock()
	encoding := m.encoding
	m.mu.Unlock()

	result := m.recovery.GetCache(m.lifetime, m.id, encoding)
	if out, ok := result.Ready(); ok {
		m.restoreOutcome(out.Value, out.Err)
		return
	}

	go func() {
		rec, err := result.Wait(m.lifetime)
		if m.lifetime.Err() != nil {
			return
		}
		m.restoreOutcome(rec, err)
	}()
}

func (m *DocumentModel) restoreOutcome(rec *domain.CacheRecord, err error) {
	if err != nil {
		logger.Warn("docmodel: loading recovery record for %s: %v", m.id, err)
		return
	}
	if rec == nil {
		return
	}
	if m.applyRecovery(rec) {
		logger.Debug("docmodel: restored %s record for %s", rec.Kind, m.id)
	}
}

// applyRecovery replays rec over the loaded content. It returns false when
// the record does not apply, leaving the model untouched.
func (m *DocumentModel) applyRecovery(rec *domain.CacheRecord) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposed {
		return false
	}
	if !rec.IsValid() || !rec.Matches(m.baseFingerprintLocked()) {
		logger.Debug("docmodel: discarding record for %s: %v", m.id, domain.ErrRecoveryMismatch)
		return false
	}
	if m.buf.VersionID() != m.persistedVersion {
		logger.Debug("docmodel: discarding record for %s: edited before the record arrived", m.id)
		return false
	}

	switch rec.Kind {
	case domain.RecordSnapshot:
		m.buf.SetValue(rec.Content)
		m.cleanMarker = -1
		m.snapshotRecovered = true
		m.emitLocked(m.contentEventLocked(nil))

	case domain.RecordDiff:
		text := m.buf.Value()
		for i, batch := range rec.EditLog {
			next, _, err := applyBatch(text, batch)
			if err != nil {
				logger.Debug("docmodel: discarding record for %s: batch %d: %v", m.id, i, err)
				return false
			}
			text = next
		}

		var edits []domain.Edit
		for _, batch := range rec.EditLog {
			if err := m.applyQuietLocked(batch); err != nil {
				return false
			}
			edits = append(edits, batch...)
		}
		m.emitLocked(m.contentEventLocked(edits))
	}
	return true
}

// dispose releases the buffer and ends every subscription. Queued saves
// that have not started are resolved with ErrDisposed.
func (m *DocumentModel) dispose() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	dropped := m.saveQueue
	m.saveQueue = nil
	m.buf.release()
	m.mu.Unlock()

	m.cancel()
	m.events.close()
	for _, t := range dropped {
		t.finish(domain.SaveResult{State: domain.SaveStateError, Err: domain.ErrDisposed})
	}
}

func (m *DocumentModel) applyLocked(batch domain.EditBatch) error {
	from := m.buf.VersionID()
	if _, err := m.buf.ApplyEdits(batch); err != nil {
		return err
	}
	m.commitLocked(from, batch)
	return nil
}

// applyQuietLocked applies and logs batch without notifying.
func (m *DocumentModel) applyQuietLocked(batch domain.EditBatch) error {
	from := m.buf.VersionID()
	if _, err := m.buf.ApplyEdits(batch); err != nil {
		return err
	}
	m.editLog = append(m.editLog, domain.EditLogEntry{FromVersion: from, ToVersion: m.buf.VersionID(), Batch: batch})
	return nil
}

func (m *DocumentModel) commitLocked(from int, batch domain.EditBatch) {
	m.editLog = append(m.editLog, domain.EditLogEntry{FromVersion: from, ToVersion: m.buf.VersionID(), Batch: batch})
	m.emitLocked(m.contentEventLocked(batch))
}

func (m *DocumentModel) dirtyLocked() bool {
	return m.persistable && m.cleanMarker != m.buf.AlternativeVersionID()
}

func (m *DocumentModel) baseFingerprintLocked() domain.Digest {
	if m.baseFingerprint == "" {
		m.baseFingerprint = domain.Fingerprint(m.baseContent)
	}
	return m.baseFingerprint
}

func (m *DocumentModel) editsSinceLocked(version int) []domain.EditBatch {
	var batches []domain.EditBatch
	for _, entry := range m.editLog {
		if entry.FromVersion >= version {
			batches = append(batches, entry.Batch)
		}
	}
	return batches
}

// recordLocked builds the recovery record for the current state, or nil
// when there is nothing unsaved.
func (m *DocumentModel) recordLocked() *domain.CacheRecord {
	if m.disposed || !m.dirtyLocked() {
		return nil
	}
	base := m.baseFingerprintLocked()
	if m.snapshotRecovered || m.prefersSnapshot() {
		return domain.NewSnapshotRecord(base, m.buf.Value())
	}
	return domain.NewDiffRecord(base, m.editsSinceLocked(m.persistedVersion))
}

func (m *DocumentModel) prefersSnapshot() bool {
	p, ok := m.recovery.(driven.SnapshotPreferrer)
	return ok && p.PrefersSnapshot()
}

// unlockAndPersist releases mu and stores rec.
func (m *DocumentModel) unlockAndPersist(rec *domain.CacheRecord) {
	if m.recovery == nil || !m.persistable {
		m.mu.Unlock()
		return
	}
	m.persistMu.Lock()
	m.mu.Unlock()
	defer m.persistMu.Unlock()

	if err := m.recovery.PersistCache(context.Background(), m.id, rec); err != nil {
		logger.Error("docmodel: persisting recovery record for %s: %v", m.id, err)
	}
}

func (m *DocumentModel) contentEventLocked(edits []domain.Edit) domain.Event {
	ev := m.eventLocked(domain.EventContentChanged)
	ev.Edits = edits
	return ev
}

func (m *DocumentModel) metadataEventLocked() domain.Event {
	return m.eventLocked(domain.EventMetadataChanged)
}

func (m *DocumentModel) eventLocked(t domain.EventType) domain.Event {
	return domain.Event{
		Type:       t,
		ID:         m.id,
		Version:    m.buf.VersionID(),
		Dirty:      !m.disposed && m.dirtyLocked(),
		Encoding:   m.encoding,
		LanguageID: m.languageID,
		LineEnding: m.lineEnding,
	}
}

func (m *DocumentModel) emitLocked(ev domain.Event) {
	m.events.publish(ev)
	if m.sink != nil {
		m.sink(ev)
	}
}
