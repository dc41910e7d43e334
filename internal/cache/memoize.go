package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Operation is an idempotent read taking its parameters as A.
type Operation[A, R any] func(ctx context.Context, args A) (R, error)

// KeyBuilder derives the logical cache key of a call.
type KeyBuilder[A any] func(args A) (string, error)

// Pattern builds keys by substituting the call's named parameters into
// pattern, e.g. "metrics:summary:owner:{owner_id}:days:{days}".
func Pattern[A Binder](pattern string) KeyBuilder[A] {
	return func(args A) (string, error) {
		return FormatKey(pattern, args.CacheArgs())
	}
}

// Memoize wraps op with read-through caching. A hit returns the cached value
// without calling op. A miss calls op and stores its result, empty results
// included, under the computed key for ttl. When no key can be built the
// call runs uncached. Errors from op are returned as-is and never cached.
//
// Concurrent misses on the same key each call op; the last write wins.
func Memoize[A, R any](m *Manager, key KeyBuilder[A], ttl time.Duration, op Operation[A, R]) Operation[A, R] {
	if m == nil {
		return op
	}

	return func(ctx context.Context, args A) (R, error) {
		cacheKey, err := key(args)
		if err != nil {
			m.recorder().RecordSkip()
			m.logger.Warn().Err(err).Msg("cannot build cache key, calling through")
			return op(ctx, args)
		}

		var cached R
		if m.GetJSON(ctx, cacheKey, &cached) {
			m.logger.Debug().Str("key", cacheKey).Msg("cache hit")
			return cached, nil
		}
		m.logger.Debug().Str("key", cacheKey).Msg("cache miss")

		result, err := op(ctx, args)
		if err != nil {
			return result, err
		}

		// encode here rather than in SetWithTTL, which stores strings and
		// byte slices raw and would not round-trip through GetJSON
		b, err := json.Marshal(result)
		if err != nil {
			m.recorder().RecordError("encode")
			m.logger.Warn().Err(err).Str("key", cacheKey).Msg("result not serializable, not cached")
			return result, nil
		}

		// populate even if the caller has gone away; the value is complete
		m.SetWithTTL(context.WithoutCancel(ctx), cacheKey, b, ttl)

		return result, nil
	}
}
