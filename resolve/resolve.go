// Package resolve picks the single business setting that applies to a
// request context at a point in time.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xraph/tariff/cache"
	"github.com/xraph/tariff/errdefs"
	"github.com/xraph/tariff/scope"
	"github.com/xraph/tariff/setting"
)

// ErrNotFound is the resolution outcome when no setting applies.
var ErrNotFound = errdefs.ErrNotFound

// DefaultFetchTimeout bounds a candidate fetch.
const DefaultFetchTimeout = 5 * time.Second

// Source supplies active candidates for a key.
type Source interface {
	ListActiveSettings(ctx context.Context, key string) ([]*setting.Setting, error)
}

// Resolver resolves settings. It is safe for concurrent use.
type Resolver struct {
	source       Source
	cache        *cache.Resolution
	fetchTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache memoizes resolutions in c.
func WithCache(c *cache.Resolution) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithFetchTimeout bounds each candidate fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.fetchTimeout = d }
}

// WithClock sets the source of "now".
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a Resolver over source.
func New(source Source, opts ...Option) *Resolver {
	r := &Resolver{
		source:       source,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// cached is the cache payload. A nil Setting records a NotFound outcome.
type cached struct {
	Setting *setting.Setting `json:"setting"`
}

// Resolve returns the setting for key that applies to sc now, or
// ErrNotFound. The cache key uses "now" truncated to the cache bucket;
// resolutions whose candidates change validity inside that bucket are not
// cached.
func (r *Resolver) Resolve(ctx context.Context, key string, sc scope.Context) (*setting.Setting, error) {
	now := r.now()
	ck := cacheKey(key, sc, "b"+strconv.FormatInt(r.cache.Bucket(now).Unix(), 10))
	return r.resolve(ctx, key, sc, now, ck)
}

// ResolveAt returns the setting for key that applies to sc at asOf, or
// ErrNotFound.
func (r *Resolver) ResolveAt(ctx context.Context, key string, sc scope.Context, asOf time.Time) (*setting.Setting, error) {
	ck := cacheKey(key, sc, "t"+strconv.FormatInt(asOf.UnixNano(), 10))
	return r.resolve(ctx, key, sc, asOf, ck)
}

// ResolveValue resolves key and parses the winner's value.
func (r *Resolver) ResolveValue(ctx context.Context, key string, sc scope.Context) (setting.Value, error) {
	s, err := r.Resolve(ctx, key, sc)
	if err != nil {
		return nil, err
	}
	v, err := s.Typed()
	if err != nil {
		return nil, errdefs.Invalid("setting_value", "setting %s (%s): %v", s.ID, s.Key, err)
	}
	return v, nil
}

func (r *Resolver) resolve(ctx context.Context, key string, sc scope.Context, asOf time.Time, ck string) (*setting.Setting, error) {
	if key == "" {
		return nil, errdefs.Invalid("settingKey", "is required")
	}

	res, err := cache.GetOrCompute(ctx, r.cache, ck, func(ctx context.Context) (cached, error) {
		candidates, err := r.fetch(ctx, key)
		if err != nil {
			return cached{}, err
		}
		if start, end := r.cache.Span(asOf); changesWithin(candidates, start, end) {
			cache.MarkVolatile(ctx)
		}
		return cached{Setting: Select(candidates, sc, asOf)}, nil
	})
	if err != nil {
		return nil, err
	}
	if res.Setting == nil {
		return nil, ErrNotFound
	}
	return res.Setting, nil
}

func (r *Resolver) fetch(ctx context.Context, key string) ([]*setting.Setting, error) {
	fctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	candidates, err := r.source.ListActiveSettings(fctx, key)
	if err == nil {
		err = fctx.Err()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			r.logger.Warn("setting candidate fetch timed out",
				slog.String("setting_key", key),
				slog.Duration("timeout", r.fetchTimeout),
			)
		}
		return nil, fmt.Errorf("%w: setting %q: %w", errdefs.ErrCandidateFetch, key, err)
	}
	return candidates, nil
}

// Select returns the highest-ranked candidate valid at asOf that matches
// sc, or nil. The result does not depend on candidate order.
func Select(candidates []*setting.Setting, sc scope.Context, asOf time.Time) *setting.Setting {
	var (
		best     *setting.Setting
		bestRank scope.Rank
	)
	for _, c := range candidates {
		if !c.ValidAt(asOf) {
			continue
		}
		score := scope.Score(c.Scope, sc)
		if score == scope.NoMatch {
			continue
		}
		rank := scope.Rank{Specificity: score, Priority: c.Priority, ID: c.ID}
		if best == nil || rank.Outranks(bestRank) {
			best, bestRank = c, rank
		}
	}
	return best
}

func changesWithin(candidates []*setting.Setting, start, end time.Time) bool {
	for _, c := range candidates {
		if c.ChangesWithin(start, end) {
			return true
		}
	}
	return false
}

func cacheKey(key string, sc scope.Context, at string) string {
	return cache.Key(cache.KindSetting, key, sc.OutletID, sc.CylinderType, sc.CustomerTier, sc.OperationType, at)
}
