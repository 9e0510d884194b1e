package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/ports/driven"
)

// RecoveryStore implements driven.ContentCacheProvider on the recovery_records table.
type RecoveryStore struct {
	store  *Store
	prefix string

	// index mirrors the keys on disk so HasCache stays synchronous and cheap.
	mu    sync.RWMutex
	index map[domain.ResourceID]struct{}
}

var (
	_ driven.ContentCacheProvider = (*RecoveryStore)(nil)
	_ driven.RecoveryIndex        = (*RecoveryStore)(nil)
)

func newRecoveryStore(s *Store, prefix string) (*RecoveryStore, error) {
	if prefix == "" {
		prefix = domain.DefaultKeyPrefix
	}
	r := &RecoveryStore{
		store:  s,
		prefix: prefix,
		index:  make(map[domain.ResourceID]struct{}),
	}

	rows, err := s.db.Query("SELECT resource_id FROM recovery_records WHERE key_prefix = ?", prefix)
	if err != nil {
		return nil, fmt.Errorf("indexing recovery records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning recovery record: %w", err)
		}
		r.index[domain.ResourceID(id)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recovery records: %w", err)
	}

	return r, nil
}

// Key returns the storage key for id.
func (r *RecoveryStore) Key(id domain.ResourceID) string {
	return r.prefix + "_" + string(id)
}

// HasCache reports whether a record exists for id.
func (r *RecoveryStore) HasCache(id domain.ResourceID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[id]
	return ok
}

// GetCache reads the record for id. Local reads resolve immediately.
func (r *RecoveryStore) GetCache(ctx context.Context, id domain.ResourceID, _ string) domain.Result[*domain.CacheRecord] {
	var payload string
	err := r.store.db.QueryRowContext(ctx,
		"SELECT payload FROM recovery_records WHERE record_key = ?", r.Key(id),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Immediate[*domain.CacheRecord](nil, nil)
	}
	if err != nil {
		return domain.Immediate[*domain.CacheRecord](nil, fmt.Errorf("reading recovery record: %w", err))
	}

	var rec domain.CacheRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return domain.Immediate[*domain.CacheRecord](nil, fmt.Errorf("decoding recovery record: %w", err))
	}
	return domain.Immediate(&rec, nil)
}

// PersistCache writes rec for id, or deletes the record when rec is nil.
func (r *RecoveryStore) PersistCache(ctx context.Context, id domain.ResourceID, rec *domain.CacheRecord) error {
	if rec == nil {
		if _, err := r.store.db.ExecContext(ctx,
			"DELETE FROM recovery_records WHERE record_key = ?", r.Key(id),
		); err != nil {
			return fmt.Errorf("deleting recovery record: %w", err)
		}
		r.mu.Lock()
		delete(r.index, id)
		r.mu.Unlock()
		return nil
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshalling recovery record: %w", err)
	}

	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO recovery_records (record_key, key_prefix, resource_id, kind, base_fingerprint, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(record_key) DO UPDATE SET
			kind = excluded.kind,
			base_fingerprint = excluded.base_fingerprint,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, r.Key(id), r.prefix, string(id), string(rec.Kind), rec.BaseFingerprint.String(),
		string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving recovery record: %w", err)
	}

	r.mu.Lock()
	r.index[id] = struct{}{}
	r.mu.Unlock()
	return nil
}

// ListCached returns the ids with a record under this prefix, sorted.
func (r *RecoveryStore) ListCached(ctx context.Context) ([]domain.ResourceID, error) {
	rows, err := r.store.db.QueryContext(ctx,
		"SELECT resource_id FROM recovery_records WHERE key_prefix = ? ORDER BY resource_id", r.prefix)
	if err != nil {
		return nil, fmt.Errorf("querying recovery records: %w", err)
	}
	defer rows.Close()

	var ids []domain.ResourceID //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning recovery record: %w", err)
		}
		ids = append(ids, domain.ResourceID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recovery records: %w", err)
	}
	return ids, nil
}
