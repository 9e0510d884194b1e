package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docmodel/internal/core/domain"
)

const testDoc domain.ResourceID = "mem://doc.txt"

type modelFixture struct {
	model    *DocumentModel
	provider *mockProvider
	recovery *mockRecoveryStore
}

func newModelFixture(t *testing.T, content string, configure ...func(*DocumentModelConfig)) *modelFixture {
	t.Helper()
	provider := newMockProvider()
	provider.set(testDoc, content)
	recovery := newMockRecoveryStore()

	cfg := DocumentModelConfig{
		ID:        testDoc,
		Content:   content,
		Options:   domain.DocumentOptions{Persistable: true},
		Provider:  provider,
		Persister: provider,
		Recovery:  recovery,
	}
	for _, fn := range configure {
		fn(&cfg)
	}

	model := NewDocumentModel(cfg)
	t.Cleanup(model.dispose)
	return &modelFixture{model: model, provider: provider, recovery: recovery}
}

func mustContent(t *testing.T, m *DocumentModel) string {
	t.Helper()
	content, err := m.CurrentContent(nil)
	require.NoError(t, err)
	return content
}

func TestNewDocumentModel_StartsClean(t *testing.T) {
	f := newModelFixture(t, "hello")

	assert.Equal(t, "hello", mustContent(t, f.model))
	assert.False(t, f.model.Dirty())
	assert.Equal(t, 0, f.model.Version())

	info := f.model.Info()
	assert.Equal(t, domain.DefaultEncoding, info.Encoding)
	assert.Equal(t, domain.LineEndingLF, info.LineEnding)
	assert.True(t, info.Persistable)
	assert.Equal(t, domain.Fingerprint("hello"), info.BaseFingerprint)
}

func TestNewDocumentModel_LineEnding(t *testing.T) {
	t.Run("detected from content", func(t *testing.T) {
		f := newModelFixture(t, "a\r\nb")
		assert.Equal(t, domain.LineEndingCRLF, f.model.Info().LineEnding)
		assert.Equal(t, "a\r\nb", mustContent(t, f.model))
	})

	t.Run("explicit option normalizes buffer", func(t *testing.T) {
		f := newModelFixture(t, "a\r\nb", func(cfg *DocumentModelConfig) {
			cfg.Options.LineEnding = domain.LineEndingLF
		})
		assert.Equal(t, "a\nb", mustContent(t, f.model))
		assert.False(t, f.model.Dirty())
		assert.Equal(t, domain.Fingerprint("a\r\nb"), f.model.BaseFingerprint())
	})
}

func TestDocumentModel_ApplyEdits(t *testing.T) {
	f := newModelFixture(t, "hello")
	events, err := f.model.Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.model.ApplyEdits(insertAt(1, 1, "a")))

	assert.Equal(t, "ahello", mustContent(t, f.model))
	assert.True(t, f.model.Dirty())
	assert.Equal(t, 1, f.model.Version())

	got := collectEvents(events, 1, time.Second)
	require.Len(t, got, 1)
	assert.Equal(t, domain.EventContentChanged, got[0].Type)
	assert.Equal(t, []domain.Edit(insertAt(1, 1, "a")), got[0].Edits)
	assert.True(t, got[0].Dirty)

	rec := f.recovery.record(testDoc)
	require.NotNil(t, rec)
	assert.Equal(t, domain.RecordDiff, rec.Kind)
	assert.Equal(t, domain.Fingerprint("hello"), rec.BaseFingerprint)
	assert.Equal(t, []domain.EditBatch{insertAt(1, 1, "a")}, rec.EditLog)
}

func TestDocumentModel_ApplyEdits_Rejected(t *testing.T) {
	t.Run("invalid batch", func(t *testing.T) {
		f := newModelFixture(t, "hello")
		err := f.model.ApplyEdits(nil)
		assert.ErrorIs(t, err, domain.ErrInvalidEdit)
		assert.Equal(t, 0, f.model.Version())
	})

	t.Run("out of range", func(t *testing.T) {
		f := newModelFixture(t, "hello")
		err := f.model.ApplyEdits(insertAt(3, 1, "x"))
		assert.ErrorIs(t, err, domain.ErrInvalidEdit)
		assert.Equal(t, "hello", mustContent(t, f.model))
	})

	t.Run("readonly", func(t *testing.T) {
		f := newModelFixture(t, "hello", func(cfg *DocumentModelConfig) {
			cfg.Options.Readonly = true
		})
		err := f.model.ApplyEdits(insertAt(1, 1, "x"))
		assert.ErrorIs(t, err, domain.ErrReadonly)
	})
}

func TestDocumentModel_UndoToClean(t *testing.T) {
	f := newModelFixture(t, "hello")
	require.NoError(t, f.model.ApplyEdits(insertAt(1, 6, " world")))
	require.True(t, f.model.Dirty())

	require.True(t, f.model.Undo())

	assert.False(t, f.model.Dirty())
	assert.Equal(t, "hello", mustContent(t, f.model))
	assert.Equal(t, 2, f.model.Version())
	assert.Nil(t, f.recovery.record(testDoc))

	require.True(t, f.model.Redo())
	assert.True(t, f.model.Dirty())
	assert.Equal(t, "hello world", mustContent(t, f.model))
}

func TestDocumentModel_UndoToSavedState(t *testing.T) {
	f := newModelFixture(t, "x")
	require.NoError(t, f.model.ApplyEdits(insertAt(1, 1, "a")))
	saved, err := f.model.Save(context.Background(), false)
	require.NoError(t, err)
	require.True(t, saved)

	require.NoError(t, f.model.ApplyEdits(insertAt(1, 1, "b")))
	require.True(t, f.model.Dirty())
	require.True(t, f.model.Undo())
	assert.False(t, f.model.Dirty())

	require.True(t, f.model.Undo())
	assert.True(t, f.model.Dirty())
	assert.Equal(t, "x", mustContent(t, f.model))
}

func TestDocumentModel_NotPersistableIsNeverDirty(t *testing.T) {
	f := newModelFixture(t, "hello", func(cfg *DocumentModelConfig) {
		cfg.Persister = nil
	})

	require.NoError(t, f.model.ApplyEdits(insertAt(1, 1, "a")))

	assert.False(t, f.model.Dirty())
	saved, err := f.model.Save(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Nil(t, f.model.QueueSave(false))
	assert.Nil(t, f.recovery.record(testDoc))
}

func TestDocumentModel_Save(t *testing.T) {
	f := newModelFixture(t, "hello")
	require.NoError(t, f.model.ApplyEdits(insertAt(1, 1, "a")))
	events, err := f.model.Subscribe(context.Background())
	require.NoError(t, err)

	saved, err := f.model.Save(context.Background(), false)

	require.NoError(t, err)
	assert.True(t, saved)
	assert.False(t, f.model.Dirty())
	assert.Equal(t, "ahello", f.provider.get(testDoc))
	assert.Equal(t, domain.Fingerprint("ahello"), f.model.BaseFingerprint())
	assert.Equal(t, 1, f.model.Info().PersistedVersion)
	assert.Nil(t, f.recovery.record(testDoc))

	reqs := f.provider.saveRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "hello", reqs[0].BaseContent)
	assert.Equal(t, []domain.EditBatch{insertAt(1, 1, "a")}, reqs[0].Edits)
	assert.Equal(t, domain.DefaultEncoding, reqs[0].Encoding)

	got := collectEvents(events, 1, time.Second)
	require.Len(t, got, 1)
	assert.Equal(t, domain.EventContentChanged, got[0].Type)
	assert.Empty(t, got[0].Edits)
	assert.False(t, got[0].Dirty)
}

func TestDocumentModel_Save_CleanIsNoop(t *testing.T) {
	f := newModelFixture(t, "hello")

	saved, err := f.model.Save(context.Background(), false)

	require.NoError(t, err)
	assert.False(t, saved)
	assert.Empty(t, f.provider.saveRequests())
}

func TestDocumentModel_SaveOrdering(t *testing.T) {
	f := newModelFixture(t, "")
	gate := make(chan struct{})
	f.provider.saveFunc = func(domain.SaveRequest) error {
		<-gate
		return nil
	}

	require.NoError(t, f.model.ApplyEdits(insertAt(1, 1, "1")))
	first := f.model.QueueSave(false)
	require.NotNil(t, first)
	require.Eventually(t, func() bool {
		return first.State() == domain.SaveStateRunning
	}, time.Second, time.Millisecond)

	require.NoError(t, f.model.ApplyEdits(insertAt(1, 2, "2")))
	second := f.model.QueueSave(false)
	duplicate := f.model.QueueSave(false)
	require.NoError(t, f.model.ApplyEdits(insertAt(1, 3, "3")))
	third := f.model.QueueSave(false)

	assert.Same(t, second, duplicate)
	assert.Equal(t, domain.SaveStatePending, second.State())
	assert.Equal(t, []int{1, 2, 3}, []int{first.TargetVersion(), second.TargetVersion(), third.TargetVersion()})

	close(gate)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, h := range []interface {
		Wait(context.Context) (domain.SaveResult, error)
	}{first, second, third} {
		res, err := h.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.SaveStateSuccess, res.State)
	}

	reqs := f.provider.saveRequests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "1", reqs[0].Content)
	assert.Equal(t, "12", reqs[1].Content)
	assert.Equal(t, "123", reqs[2].Content)
	assert.False(t, f.model.Dirty())
}

func TestDocumentModel_SaveConflict(t *testing.T) {
	f := newModelFixture(t, "hello")
	require.NoError(t, f.model.ApplyEdits(insertAt(1, 1, "a")))
	f.provider.set(testDoc, "changed elsewhere")

	saved, err := f.model.Save(context.Background(), false)

	require.ErrorIs(t, err, domain.ErrSaveConflict)
	assert.False(t, saved)
	assert.True(t, f.model.Dirty())
	assert.Equal(t, 0, f.model.Info().PersistedVersion)
	assert.Equal(t, domain.Fingerprint("hello"), f.model.BaseFingerprint())
	assert.NotNil(t, f.recovery.record(testDoc))

	saved, err = f.model.Save(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, "ahello", f.provider.get(testDoc))
}

func TestDocumentModel_SaveError(t *testing.T) {
	f := newModelFixture(t, "hello")
	require.NoError(t, f.model.ApplyEdits(insertAt(1, 1, "a")))
	diskFull := errors.New("disk full")
	f.provider.saveFunc = func(domain.SaveRequest) error {
		return diskFull
	}

	saved, err := f.model.Save(context.Background(), false)

	require.ErrorIs(t, err, diskFull)
	assert.False(t, saved)
	assert.True(t, f.model.Dirty())

	f.provider.saveFunc = nil
	saved, err = f.model.Save(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, saved)
}

func TestDocumentModel_SavePanicBecomesError(t *testing.T) {
	f := newModelFixture(t, "hello")
	require.NoError(t, f.model.ApplyEdits(insertAt(1, 1, "a")))
	f.provider.saveFunc = func(domain.SaveRequest) error {
		panic("boom")
	}

	h := f.model.QueueSave(false)
	require.NotNil(t, h)
	res, err := h.Wait(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.SaveStateError, res.State)
	assert.Contains(t, res.Err.Error(), "boom")
	assert.True(t, f.model.Dirty())
}

func TestDocumentModel_SaveParticipants(t *testing.T) {
	f := newModelFixture(t, "a", func(cfg *DocumentModelConfig) {
		cfg.Participants = []SaveParticipant{TrimFinalNewlines{}, InsertFinalNewline{}}
	})
	require.NoError(t, f.model.ApplyEdits(insertAt(1, 2, "b\n\n\n")))

	saved, err := f.model.Save(context.Background(), false)

	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, "ab\n", f.provider.get(testDoc))
	assert.Equal(t, "ab\n", mustContent(t, f.model))

	require.True(t, f.model.Undo())
	assert.Equal(t, "ab\n\n\n", mustContent(t, f.model))
}

func TestDocumentModel_Revert(t *testing.T) {
	f := newModelFixture(t, "hello")
	require.NoError(t, f.model.ApplyEdits(insertAt(1, 1, "a")))
	f.provider.set(testDoc, "from disk")

	require.NoError(t, f.model.Revert(context.Background()))

	assert.False(t, f.model.Dirty())
	assert.Equal(t, "from disk", mustContent(t, f.model))
	assert.Equal(t, domain.Fingerprint("from disk"), f.model.BaseFingerprint())
	assert.Nil(t, f.recovery.record(testDoc))
	assert.False(t, f.model.Undo())
	assert.Greater(t, f.model.Version(), 1)
}

func TestDocumentModel_RevertSupersedesQueuedSaves(t *testing.T) {
	f := newModelFixture(t, "")
	gate := make(chan struct{})
	f.provider.saveFunc = func(domain.SaveRequest) error {
		<-gate
		return nil
	}

	require.NoError(t, f.model.ApplyEdits(insertAt(1, 1, "1")))
	running := f.model.QueueSave(false)
	require.Eventually(t, func() bool {
		return running.State() == domain.SaveStateRunning
	}, time.Second, time.Millisecond)
	require.NoError(t, f.model.ApplyEdits(insertAt(1, 2, "2")))
	pending := f.model.QueueSave(false)

	require.NoError(t, f.model.Revert(context.Background()))
	res, err := pending.Wait(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, domain.ErrSaveSuperseded)

	close(gate)
	res, err = running.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SaveStateSuccess, res.State)
	assert.False(t, f.model.Dirty())
	assert.Equal(t, "", mustContent(t, f.model))
}

func TestDocumentModel_SetEncoding(t *testing.T) {
	f := newModelFixture(t, "hello")
	events, err := f.model.Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.model.SetEncoding(context.Background(), domain.DefaultEncoding))
	require.NoError(t, f.model.SetEncoding(context.Background(), "gbk"))

	got := collectEvents(events, 3, time.Second)
	assert.Equal(t, []domain.EventType{
		domain.EventContentChanged,
		domain.EventContentChanged,
		domain.EventMetadataChanged,
	}, eventTypes(got))
	assert.Equal(t, "gbk", f.model.Info().Encoding)

	require.NoError(t, f.model.Revert(context.Background()))
	assert.Equal(t, domain.DefaultEncoding, f.model.Info().Encoding)
}

func TestDocumentModel_SetEncoding_LoadFailureKeepsEncoding(t *testing.T) {
	f := newModelFixture(t, "hello")
	f.provider.mu.Lock()
	delete(f.provider.files, testDoc)
	f.provider.mu.Unlock()

	err := f.model.SetEncoding(context.Background(), "gbk")

	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.DefaultEncoding, f.model.Info().Encoding)
	assert.Equal(t, "hello", mustContent(t, f.model))
}

func TestDocumentModel_SetLanguageID(t *testing.T) {
	f := newModelFixture(t, "hello")
	events, err := f.model.Subscribe(context.Background())
	require.NoError(t, err)

	f.model.SetLanguageID("markdown")
	f.model.SetLanguageID("markdown")

	got := collectEvents(events, 1, time.Second)
	require.Len(t, got, 1)
	assert.Equal(t, domain.EventMetadataChanged, got[0].Type)
	assert.Equal(t, "markdown", got[0].LanguageID)
}

func TestDocumentModel_SetLineEnding(t *testing.T) {
	f := newModelFixture(t, "a\nb")

	require.NoError(t, f.model.SetLineEnding(domain.LineEndingCRLF))

	assert.Equal(t, "a\r\nb", mustContent(t, f.model))
	assert.Equal(t, domain.LineEndingCRLF, f.model.Info().LineEnding)
	assert.True(t, f.model.Dirty())

	require.True(t, f.model.Undo())
	assert.Equal(t, "a\nb", mustContent(t, f.model))
	assert.False(t, f.model.Dirty())

	assert.ErrorIs(t, f.model.SetLineEnding("\r"), domain.ErrInvalidInput)
}

func TestDocumentModel_ApplyRecovery_Diff(t *testing.T) {
	base := "line one\nline two"
	log := []domain.EditBatch{
		insertAt(1, 1, "> "),
		{{NewText: "2", Range: domain.NewRange(2, 6, 2, 9)}},
		insertAt(2, 7, "\nline three"),
	}
	want := base
	for _, batch := range log {
		var err error
		want, _, err = applyBatch(want, batch)
		require.NoError(t, err)
	}

	f := newModelFixture(t, base)
	events, err := f.model.Subscribe(context.Background())
	require.NoError(t, err)

	applied := f.model.applyRecovery(domain.NewDiffRecord(domain.Fingerprint(base), log))

	require.True(t, applied)
	assert.Equal(t, want, mustContent(t, f.model))
	assert.True(t, f.model.Dirty())
	assert.Equal(t, 3, f.model.Version())

	got := collectEvents(events, 1, time.Second)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Edits, 3)

	// Further edits extend the same log.
	require.NoError(t, f.model.ApplyEdits(insertAt(1, 1, "!")))
	rec := f.recovery.record(testDoc)
	require.NotNil(t, rec)
	assert.Len(t, rec.EditLog, 4)
}

func TestDocumentModel_ApplyRecovery_FingerprintMismatch(t *testing.T) {
	f := newModelFixture(t, "hello")

	applied := f.model.applyRecovery(domain.NewDiffRecord(domain.Fingerprint("other"), []domain.EditBatch{insertAt(1, 1, "a")}))

	assert.False(t, applied)
	assert.Equal(t, "hello", mustContent(t, f.model))
	assert.False(t, f.model.Dirty())
}

func TestDocumentModel_ApplyRecovery_UnreplayableLogIsDiscarded(t *testing.T) {
	f := newModelFixture(t, "hello")
	rec := domain.NewDiffRecord(domain.Fingerprint("hello"), []domain.EditBatch{
		insertAt(1, 1, "a"),
		insertAt(9, 1, "b"),
	})

	assert.False(t, f.model.applyRecovery(rec))
	assert.Equal(t, "hello", mustContent(t, f.model))
	assert.Equal(t, 0, f.model.Version())
}

func TestDocumentModel_ApplyRecovery_Snapshot(t *testing.T) {
	f := newModelFixture(t, "hello")

	applied := f.model.applyRecovery(domain.NewSnapshotRecord(domain.Fingerprint("hello"), "unsaved text"))

	require.True(t, applied)
	assert.Equal(t, "unsaved text", mustContent(t, f.model))
	assert.True(t, f.model.Dirty())

	require.NoError(t, f.model.ApplyEdits(insertAt(1, 1, ">")))
	rec := f.recovery.record(testDoc)
	require.NotNil(t, rec)
	assert.Equal(t, domain.RecordSnapshot, rec.Kind)
	assert.Equal(t, ">unsaved text", rec.Content)
}

func TestDocumentModel_SnapshotPreferringStore(t *testing.T) {
	f := newModelFixture(t, "hello")
	f.recovery.snapshot = true

	require.NoError(t, f.model.ApplyEdits(insertAt(1, 1, "a")))

	rec := f.recovery.record(testDoc)
	require.NotNil(t, rec)
	assert.Equal(t, domain.RecordSnapshot, rec.Kind)
	assert.Equal(t, "ahello", rec.Content)
}

func TestDocumentModel_Dispose(t *testing.T) {
	f := newModelFixture(t, "hello")
	events, err := f.model.Subscribe(context.Background())
	require.NoError(t, err)

	f.model.dispose()

	_, ok := <-events
	assert.False(t, ok)
	assert.ErrorIs(t, f.model.ApplyEdits(insertAt(1, 1, "a")), domain.ErrDisposed)
	_, err = f.model.CurrentContent(nil)
	assert.ErrorIs(t, err, domain.ErrDisposed)
	_, err = f.model.Subscribe(context.Background())
	assert.ErrorIs(t, err, domain.ErrDisposed)
	_, err = f.model.Save(context.Background(), false)
	assert.ErrorIs(t, err, domain.ErrDisposed)
}

func TestDocumentModel_CurrentContentRange(t *testing.T) {
	f := newModelFixture(t, "one\ntwo")
	r := domain.NewRange(2, 1, 2, 4)

	got, err := f.model.CurrentContent(&r)

	require.NoError(t, err)
	assert.Equal(t, "two", got)
}
