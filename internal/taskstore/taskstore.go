// Package taskstore implements the durable key/value state described in
// spec §4.7: task status envelopes, cached searches, artifact
// references, and the failed-query ledger, all sliding-TTL over Redis.
//
// Grounded on the original source's CacheService
// (original_source/backend/services/cache_service.go:
// set_task_status/get_task_status use SETEX + sliding TTL/EXPIRE;
// cleanup_old_tasks uses SCAN + pipelined TTL checks; health_check uses
// PING/INFO/DBSIZE) and on the teacher's storage.Storage struct
// embedding a *redis.Client as Cache (internal/storage/storage.go).
package taskstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ChiaYuChang/hydrosearch/internal/models"
	ec "github.com/ChiaYuChang/hydrosearch/pkgs/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	taskKeyPrefix   = "task:"
	searchKeyPrefix = "search:"
	excelKeyPrefix  = "excel:"
	ledgerKey       = "ledger:failed_queries"
	ledgerCap       = 10000
)

const (
	// TaskTTL is the ceiling a processing→terminal task status slides
	// up to on read (spec §4.7).
	TaskTTL = time.Hour
	// TaskTTLExtend is the per-read extension applied to task keys.
	TaskTTLExtend = 5 * time.Minute

	// SearchTTL is the ceiling a cached search result slides up to.
	SearchTTL = 10 * time.Minute
	// SearchTTLExtend is the per-read extension applied to search keys.
	SearchTTLExtend = time.Minute

	// ArtifactTTL is the non-sliding TTL for artifact references.
	ArtifactTTL = 24 * time.Hour
)

// Store is the TaskStore component: a thin, sliding-TTL key/value layer
// over Redis. Operations are single-key, best-effort (no CAS), matching
// spec §4.7.
type Store struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

func New(rdb *redis.Client, logger zerolog.Logger) *Store {
	return &Store{rdb: rdb, logger: logger}
}

func taskKey(id uuid.UUID) string  { return taskKeyPrefix + id.String() }
func searchKey(fp string) string   { return searchKeyPrefix + fp }
func excelKey(id uuid.UUID) string { return excelKeyPrefix + id.String() }

// PutTask writes a task's status envelope with the full task TTL. Used
// on creation and on every terminal/ intermediate write by the Worker
// and StatusAPI.
func (s *Store) PutTask(ctx context.Context, t *models.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	if err := s.rdb.Set(ctx, taskKey(t.ID), data, TaskTTL).Err(); err != nil {
		return ec.ErrPersistenceFailure.Clone().WithDetails(err.Error()).Warp(err)
	}
	return nil
}

// GetTask reads a task's status envelope and slides its TTL forward
// (spec §4.7: "read extends by +300 s, capped at 3600 s"). Returns
// (nil, nil) on a cache miss — an expired key is treated as a miss, not
// an error, per SPEC_FULL §9's sliding-TTL redesign note.
func (s *Store) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	key := taskKey(id)
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, ec.ErrPersistenceFailure.Clone().WithDetails(err.Error()).Warp(err)
	}

	var t models.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}

	s.slideTTL(ctx, key, TaskTTL, TaskTTLExtend)
	return &t, nil
}

// slideTTL extends key's TTL by extend, capped at ceiling, only if the
// key currently has a TTL (i.e. it has not already expired/is not
// persistent). Errors are logged, not propagated — a failed TTL slide
// should not fail the read that triggered it.
func (s *Store) slideTTL(ctx context.Context, key string, ceiling, extend time.Duration) {
	remaining, err := s.rdb.TTL(ctx, key).Result()
	if err != nil || remaining <= 0 {
		return
	}

	newTTL := remaining + extend
	if newTTL > ceiling {
		newTTL = ceiling
	}
	if newTTL <= remaining {
		return
	}
	if err := s.rdb.Expire(ctx, key, newTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to slide TTL")
	}
}

// PutCachedSearch stores a search result under its fingerprint with the
// search TTL (spec §4.7 search:<fingerprint>).
func (s *Store) PutCachedSearch(ctx context.Context, fingerprint string, cs models.CachedSearch) error {
	data, err := json.Marshal(cs)
	if err != nil {
		return fmt.Errorf("failed to marshal cached search: %w", err)
	}
	if err := s.rdb.Set(ctx, searchKey(fingerprint), data, SearchTTL).Err(); err != nil {
		return ec.ErrPersistenceFailure.Clone().WithDetails(err.Error()).Warp(err)
	}
	return nil
}

// GetCachedSearch looks up a cached search result by exact fingerprint
// match (spec §3 invariant 4: partial matches never shortcut the
// pipeline). Slides the search TTL on a hit.
func (s *Store) GetCachedSearch(ctx context.Context, fingerprint string) (*models.CachedSearch, error) {
	key := searchKey(fingerprint)
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, ec.ErrPersistenceFailure.Clone().WithDetails(err.Error()).Warp(err)
	}

	var cs models.CachedSearch
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached search: %w", err)
	}

	s.slideTTL(ctx, key, SearchTTL, SearchTTLExtend)
	return &cs, nil
}

// PutArtifactRef records the path/blob key of a completed task's
// rendered artifact with a non-sliding TTL (spec §4.7 excel:<id>).
func (s *Store) PutArtifactRef(ctx context.Context, id uuid.UUID, ref string) error {
	if err := s.rdb.Set(ctx, excelKey(id), ref, ArtifactTTL).Err(); err != nil {
		return ec.ErrPersistenceFailure.Clone().WithDetails(err.Error()).Warp(err)
	}
	return nil
}

// GetArtifactRef returns the stored artifact reference, or "" if absent
// or expired.
func (s *Store) GetArtifactRef(ctx context.Context, id uuid.UUID) (string, error) {
	ref, err := s.rdb.Get(ctx, excelKey(id)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", ec.ErrPersistenceFailure.Clone().WithDetails(err.Error()).Warp(err)
	}
	return ref, nil
}

// DeleteTask removes a task's status envelope (used only when a
// Producer must roll back after a failed publish, spec §4.1).
func (s *Store) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return s.rdb.Del(ctx, taskKey(id)).Err()
}

// FailedQueryEntry is one row of the failed-query ledger (SPEC_FULL
// §3.1/§4.8).
type FailedQueryEntry struct {
	TaskID uuid.UUID        `json:"task_id"`
	Query  string           `json:"query"`
	Kind   models.ErrorKind `json:"kind"`
	At     int64            `json:"at"`
}

// RecordFailedQuery appends an entry to the failed-query ledger,
// trimming it to ledgerCap entries (spec §8 invariant 8: "the
// failed-query ledger grows by exactly one entry").
func (s *Store) RecordFailedQuery(ctx context.Context, e FailedQueryEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, ledgerKey, data)
	pipe.LTrim(ctx, ledgerKey, 0, ledgerCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to failed-query ledger: %w", err)
	}
	return nil
}

// FailedQueries returns up to limit most-recent ledger entries.
func (s *Store) FailedQueries(ctx context.Context, limit int64) ([]FailedQueryEntry, error) {
	raw, err := s.rdb.LRange(ctx, ledgerKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read failed-query ledger: %w", err)
	}

	entries := make([]FailedQueryEntry, 0, len(raw))
	for _, r := range raw {
		var e FailedQueryEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Sweep scans the given key pattern and removes keys whose TTL has
// already lapsed (a best-effort idempotent cleanup; Redis expires keys
// on its own, so this mainly reclaims keys that were set without a TTL
// by mistake). Grounded on cleanup_old_tasks in
// original_source/backend/services/cache_service.py.
func (s *Store) Sweep(ctx context.Context, pattern string) (int, error) {
	var cursor uint64
	removed := 0
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			pipe := s.rdb.Pipeline()
			ttlCmds := make([]*redis.DurationCmd, len(keys))
			for i, k := range keys {
				ttlCmds[i] = pipe.TTL(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return removed, fmt.Errorf("failed to pipeline TTL checks: %w", err)
			}

			expired := make([]string, 0)
			for i, cmd := range ttlCmds {
				ttl, err := cmd.Result()
				if err == nil && ttl < 0 {
					expired = append(expired, keys[i])
				}
			}
			if len(expired) > 0 {
				n, err := s.rdb.Del(ctx, expired...).Result()
				if err != nil {
					return removed, fmt.Errorf("failed to delete expired keys: %w", err)
				}
				removed += int(n)
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}
	return removed, nil
}

// Health reports connection liveness and key count, mirroring
// health_check in original_source/backend/services/cache_service.py.
type Health struct {
	Status   string `json:"status"`
	KeyCount int64  `json:"key_count"`
}

func (s *Store) Health(ctx context.Context) Health {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return Health{Status: "unhealthy"}
	}

	count, err := s.rdb.DBSize(ctx).Result()
	if err != nil {
		return Health{Status: "degraded"}
	}
	return Health{Status: "healthy", KeyCount: count}
}
