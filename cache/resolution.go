package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/xraph/tariff/errdefs"
)

// DefaultBucket is the granularity "now" is truncated to in cache keys.
const DefaultBucket = time.Minute

// Resolution is the cache layer used by the resolver and the pricing
// engine. A nil *Resolution is valid and caches nothing.
type Resolution struct {
	backend Cache
	bucket  time.Duration
	logger  *slog.Logger

	degraded atomic.Bool
	// epoch counts invalidations. A value computed across an invalidation
	// is returned but not stored.
	epoch atomic.Uint64
}

// NewResolution wraps backend. A nil backend behaves like Nop.
func NewResolution(backend Cache, bucket time.Duration, logger *slog.Logger) *Resolution {
	if backend == nil {
		backend = Nop{}
	}
	if bucket <= 0 {
		bucket = DefaultBucket
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolution{backend: backend, bucket: bucket, logger: logger}
}

// Bucket truncates t to the cache bucket.
func (r *Resolution) Bucket(t time.Time) time.Time {
	if r == nil {
		return t
	}
	return t.Truncate(r.bucket)
}

// Span returns the bounds of the bucket holding t. A nil *Resolution
// returns an empty span at t.
func (r *Resolution) Span(t time.Time) (start, end time.Time) {
	if r == nil {
		return t, t
	}
	start = t.Truncate(r.bucket)
	return start, start.Add(r.bucket)
}

// Degraded reports whether the cache is bypassed after a failed
// invalidation.
func (r *Resolution) Degraded() bool {
	return r != nil && r.degraded.Load()
}

// InvalidateAll drops every cached value. On failure the cache degrades to
// always-recompute and returns an error wrapping errdefs.ErrCacheInvalidate,
// which callers log and otherwise ignore.
func (r *Resolution) InvalidateAll(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.epoch.Add(1)
	if err := r.backend.InvalidateAll(ctx); err != nil {
		r.degraded.Store(true)
		r.logger.Warn("cache invalidation failed, bypassing cache until next successful invalidation",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %w", errdefs.ErrCacheInvalidate, err)
	}
	if r.degraded.Swap(false) {
		r.logger.Info("cache invalidation recovered")
	}
	return nil
}

type volatileKey struct{}

// MarkVolatile records that the value being computed under ctx may change
// before its bucket ends. GetOrCompute returns such a value without
// storing it, and so does every enclosing GetOrCompute.
func MarkVolatile(ctx context.Context) {
	if flag, ok := ctx.Value(volatileKey{}).(*atomic.Bool); ok {
		flag.Store(true)
	}
}

// GetOrCompute returns the cached value for key or runs compute and stores
// its result. Errors from compute are returned and never cached, and
// neither are values compute marked with MarkVolatile. Backend failures
// fall through to compute.
func GetOrCompute[T any](ctx context.Context, r *Resolution, key string, compute func(context.Context) (T, error)) (T, error) {
	if r == nil || Bypassed(ctx) || r.degraded.Load() {
		return compute(ctx)
	}

	if raw, ok, err := r.backend.Get(ctx, key); err != nil {
		r.logger.Debug("cache get failed", slog.String("key", key), slog.String("error", err.Error()))
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		r.logger.Debug("cache entry undecodable", slog.String("key", key))
	}

	epoch := r.epoch.Load()
	volatile := new(atomic.Bool)
	v, err := compute(context.WithValue(ctx, volatileKey{}, volatile))
	if err != nil {
		return v, err
	}
	if volatile.Load() {
		MarkVolatile(ctx)
		return v, nil
	}
	if r.epoch.Load() != epoch || r.degraded.Load() {
		return v, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if err := r.backend.Set(ctx, key, raw); err != nil {
		r.logger.Debug("cache set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return v, nil
}
