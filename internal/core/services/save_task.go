package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/ports/driving"
)

// Ensure SaveTask implements the interface.
var _ driving.SaveHandle = (*SaveTask)(nil)

// SaveTask is one queued save. It captures the content at queue time so
// later edits do not leak into it.
type SaveTask struct {
	id            string
	targetVersion int
	targetAlt     int
	snapshot      string
	epoch         uint64
	overwrite     bool

	mu     sync.Mutex
	state  domain.SaveState
	result domain.SaveResult
	done   chan struct{}
}

func newSaveTask(version, alt int, snapshot string, epoch uint64, overwrite bool) *SaveTask {
	return &SaveTask{
		id:            uuid.New().String(),
		targetVersion: version,
		targetAlt:     alt,
		snapshot:      snapshot,
		epoch:         epoch,
		overwrite:     overwrite,
		state:         domain.SaveStatePending,
		done:          make(chan struct{}),
	}
}

// ID returns the task identifier.
func (t *SaveTask) ID() string {
	return t.id
}

// TargetVersion returns the model version the snapshot was taken at.
func (t *SaveTask) TargetVersion() int {
	return t.targetVersion
}

// State returns the current lifecycle state.
func (t *SaveTask) State() domain.SaveState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Wait blocks until the task finishes or ctx is done.
func (t *SaveTask) Wait(ctx context.Context) (domain.SaveResult, error) {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.result, nil
	case <-ctx.Done():
		return domain.SaveResult{}, ctx.Err()
	}
}

func (t *SaveTask) start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == domain.SaveStatePending {
		t.state = domain.SaveStateRunning
	}
}

// finish resolves the task. Only the first call has any effect.
func (t *SaveTask) finish(result domain.SaveResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.IsFinal() {
		return
	}
	t.state = result.State
	t.result = result
	close(t.done)
}
