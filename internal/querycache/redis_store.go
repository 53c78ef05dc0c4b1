package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/abroad-backend/internal/config"
	"golang.org/x/sync/singleflight"
)

// RedisStore is the server-side list cache. Each stored query is indexed in
// a per-resource tag set so Invalidate can find every key a target covers.
// Every resource also has a generation counter that Invalidate bumps; a load
// that started under an older generation is returned but never stored.
type RedisStore struct {
	rdb   *redis.Client
	ttl   time.Duration
	group singleflight.Group
	log   zerolog.Logger
}

// NewRedisStore creates a store whose entries expire after ttl.
func NewRedisStore(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "list_cache").Logger(),
	}
}

// Get decodes the cached value for key into dst. It reports false on a miss.
func (s *RedisStore) Get(ctx context.Context, key Key, dst any) (bool, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.QueryKey(key.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get cached query: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached query %s: %w", key, err)
	}
	return true, nil
}

// Put stores value under key and records the key in its resource tag set.
func (s *RedisStore) Put(ctx context.Context, key Key, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode query %s: %w", key, err)
	}

	canonical := key.String()
	tag := config.CacheKey.QueryTagKey(string(key.Resource))

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, config.CacheKey.QueryKey(canonical), raw, s.ttl)
	pipe.SAdd(ctx, tag, canonical)
	pipe.Expire(ctx, tag, 2*s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store query %s: %w", key, err)
	}
	return nil
}

// generation returns the current invalidation counter of a resource.
func (s *RedisStore) generation(ctx context.Context, resource Resource) (int64, error) {
	n, err := s.rdb.Get(ctx, config.CacheKey.QueryGenerationKey(string(resource))).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read generation %s: %w", resource, err)
	}
	return n, nil
}

// putAt stores value only while the resource is still at generation gen.
// It reports false when an invalidation happened since gen was read.
func (s *RedisStore) putAt(ctx context.Context, key Key, value any, gen int64) (bool, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("encode query %s: %w", key, err)
	}

	canonical := key.String()
	tag := config.CacheKey.QueryTagKey(string(key.Resource))
	genKey := config.CacheKey.QueryGenerationKey(string(key.Resource))

	stored := false
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, config.CacheKey.QueryKey(canonical), raw, s.ttl)
			pipe.SAdd(ctx, tag, canonical)
			pipe.Expire(ctx, tag, 2*s.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store query %s: %w", key, err)
	}
	return stored, nil
}

// Invalidate deletes every stored query matching any target and returns how
// many were removed. Loads in flight for the touched resources are not
// stored when they finish.
func (s *RedisStore) Invalidate(ctx context.Context, targets ...Key) (int, error) {
	byResource := make(map[Resource][]Key)
	for _, t := range targets {
		byResource[t.Resource] = append(byResource[t.Resource], t)
	}

	removed := 0
	for resource, group := range byResource {
		if err := s.rdb.Incr(ctx, config.CacheKey.QueryGenerationKey(string(resource))).Err(); err != nil {
			return removed, fmt.Errorf("bump generation %s: %w", resource, err)
		}
		tag := config.CacheKey.QueryTagKey(string(resource))
		members, err := s.rdb.SMembers(ctx, tag).Result()
		if err != nil {
			return removed, fmt.Errorf("read tag %s: %w", resource, err)
		}

		pipe := s.rdb.TxPipeline()
		queued := 0
		for _, member := range members {
			k, err := ParseKey(member)
			if err != nil {
				pipe.SRem(ctx, tag, member)
				continue
			}
			if !matchesAny(k, group) {
				continue
			}
			pipe.Del(ctx, config.CacheKey.QueryKey(member))
			pipe.SRem(ctx, tag, member)
			queued++
		}
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return removed, fmt.Errorf("invalidate tag %s: %w", resource, err)
		}
		removed += queued
	}

	s.log.Debug().
		Int("targets", len(targets)).
		Int("removed", removed).
		Msg("Invalidated cached lists")
	return removed, nil
}

// Remember returns the cached value for key or loads and stores it.
// Concurrent misses on the same key and generation share one load. A load
// overtaken by an invalidation is returned to its callers but not stored.
// Cache failures are logged and fall through to the loader.
func Remember[T any](ctx context.Context, s *RedisStore, key Key, load func(ctx context.Context) (T, error)) (T, error) {
	gen, err := s.generation(ctx, key.Resource)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key.String()).Msg("List cache read failed")
		return load(ctx)
	}

	var cached T
	hit, err := s.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key.String()).Msg("List cache read failed")
	}
	if hit {
		return cached, nil
	}

	groupKey := key.String() + "@" + strconv.FormatInt(gen, 10)
	v, err, _ := s.group.Do(groupKey, func() (any, error) {
		fresh, err := load(ctx)
		if err != nil {
			return nil, err
		}
		stored, err := s.putAt(ctx, key, fresh, gen)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("key", key.String()).Msg("List cache write failed")
		case !stored:
			s.log.Debug().Str("key", key.String()).Msg("Skipped caching a list invalidated during load")
		}
		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
