package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/ports/driven"
	"github.com/custodia-labs/docmodel/internal/logger"
)

// RecoveryStore implements driven.ContentCacheProvider on Redis.
// Reads are network bound and resolve deferred.
type RecoveryStore struct {
	rdb    goredis.UniversalClient
	prefix string

	// index is the id set as of open plus this process's own writes.
	mu    sync.RWMutex
	index map[domain.ResourceID]struct{}
}

var (
	_ driven.ContentCacheProvider = (*RecoveryStore)(nil)
	_ driven.RecoveryIndex        = (*RecoveryStore)(nil)
)

// Dial connects to addr and verifies the server answers.
func Dial(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRecoveryStore loads the record index for prefix.
// An empty prefix uses domain.DefaultKeyPrefix.
func NewRecoveryStore(ctx context.Context, rdb goredis.UniversalClient, prefix string) (*RecoveryStore, error) {
	if prefix == "" {
		prefix = domain.DefaultKeyPrefix
	}
	s := &RecoveryStore{
		rdb:    rdb,
		prefix: prefix,
		index:  make(map[domain.ResourceID]struct{}),
	}
	if _, err := s.refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// HasCache reports whether a record exists for id.
func (s *RecoveryStore) HasCache(id domain.ResourceID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// GetCache fetches the record for id in the background.
func (s *RecoveryStore) GetCache(ctx context.Context, id domain.ResourceID, _ string) domain.Result[*domain.CacheRecord] {
	ch := make(chan domain.Outcome[*domain.CacheRecord], 1)
	go func() {
		rec, err := s.get(ctx, id)
		ch <- domain.Outcome[*domain.CacheRecord]{Value: rec, Err: err}
	}()
	return domain.Deferred[*domain.CacheRecord](ch)
}

func (s *RecoveryStore) get(ctx context.Context, id domain.ResourceID) (*domain.CacheRecord, error) {
	payload, err := s.rdb.Get(ctx, recordKey(s.prefix, id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading recovery record: %w", err)
	}

	var rec domain.CacheRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decoding recovery record: %w", err)
	}
	return &rec, nil
}

// PersistCache writes rec for id, or deletes the record when rec is nil.
func (s *RecoveryStore) PersistCache(ctx context.Context, id domain.ResourceID, rec *domain.CacheRecord) error {
	tx := s.rdb.TxPipeline()
	if rec == nil {
		tx.Del(ctx, recordKey(s.prefix, id))
		tx.SRem(ctx, indexKey(s.prefix), string(id))
	} else {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshalling recovery record: %w", err)
		}
		tx.Set(ctx, recordKey(s.prefix, id), payload, 0)
		tx.SAdd(ctx, indexKey(s.prefix), string(id))
	}
	if _, err := tx.Exec(ctx); err != nil {
		return fmt.Errorf("writing recovery record: %w", err)
	}

	s.mu.Lock()
	if rec == nil {
		delete(s.index, id)
	} else {
		s.index[id] = struct{}{}
	}
	s.mu.Unlock()
	return nil
}

// ListCached returns the ids with a record, sorted. It also refreshes the
// local index with records written by other processes.
func (s *RecoveryStore) ListCached(ctx context.Context) ([]domain.ResourceID, error) {
	return s.refresh(ctx)
}

func (s *RecoveryStore) refresh(ctx context.Context) ([]domain.ResourceID, error) {
	members, err := s.rdb.SMembers(ctx, indexKey(s.prefix)).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("listing recovery records: %w", err)
	}
	sort.Strings(members)

	ids := make([]domain.ResourceID, 0, len(members))
	index := make(map[domain.ResourceID]struct{}, len(members))
	for _, m := range members {
		id := domain.ResourceID(m)
		ids = append(ids, id)
		index[id] = struct{}{}
	}

	s.mu.Lock()
	s.index = index
	s.mu.Unlock()

	logger.Debug("redis recovery index: %d records under %q", len(ids), s.prefix)
	return ids, nil
}
