package tariff

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/xraph/tariff/audit"
	"github.com/xraph/tariff/cache"
	"github.com/xraph/tariff/plugin"
	"github.com/xraph/tariff/pricing"
	"github.com/xraph/tariff/resolve"
	"github.com/xraph/tariff/store"
)

// Engine is the settings and pricing engine. It resolves scoped settings,
// evaluates pricing rules and performs audited configuration writes.
type Engine struct {
	store    store.Store
	plugins  *plugin.Registry
	logger   *slog.Logger
	cache    *cache.Resolution
	resolver *resolve.Resolver
	pricer   *pricing.Engine
	recorder *audit.Recorder
	locks    *keyLock

	// Configuration
	cacheBackend    cache.Cache
	cacheBucket     time.Duration
	currency        string
	fetchTimeout    time.Duration
	bulkConcurrency int
	skipMigrate     bool
	now             func() time.Time
}

// New creates a new Engine over s.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:           s,
		plugins:         plugin.NewRegistry(),
		logger:          slog.Default(),
		locks:           newKeyLock(),
		cacheBucket:     cache.DefaultBucket,
		currency:        pricing.DefaultCurrency,
		fetchTimeout:    resolve.DefaultFetchTimeout,
		bulkConcurrency: pricing.DefaultBulkLimit,
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.cacheBackend == nil {
		e.cacheBackend = cache.NewMemory(cache.DefaultMaxEntries)
	}
	e.cache = cache.NewResolution(e.cacheBackend, e.cacheBucket, e.logger)
	e.resolver = resolve.New(s,
		resolve.WithCache(e.cache),
		resolve.WithFetchTimeout(e.fetchTimeout),
		resolve.WithClock(e.now),
		resolve.WithLogger(e.logger),
	)
	e.pricer = pricing.NewEngine(s, e.resolver,
		pricing.WithCache(e.cache),
		pricing.WithCurrency(e.currency),
		pricing.WithFetchTimeout(e.fetchTimeout),
		pricing.WithBulkConcurrency(e.bulkConcurrency),
		pricing.WithClock(e.now),
		pricing.WithLogger(e.logger),
	)
	e.recorder = audit.NewRecorder(s, e.now)

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithCache sets the resolution cache backend. The default is an
// in-process cache; use cache.Nop to disable caching.
func WithCache(c cache.Cache) Option {
	return func(e *Engine) {
		e.cacheBackend = c
	}
}

// WithCacheBucket sets the time granularity of cached "now" lookups.
func WithCacheBucket(d time.Duration) Option {
	return func(e *Engine) {
		e.cacheBucket = d
	}
}

// WithCurrency sets the currency prices are expressed in.
func WithCurrency(currency string) Option {
	return func(e *Engine) {
		e.currency = currency
	}
}

// WithFetchTimeout bounds every candidate fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.fetchTimeout = d
	}
}

// WithBulkConcurrency bounds how many bulk lines are evaluated at once.
func WithBulkConcurrency(n int) Option {
	return func(e *Engine) {
		e.bulkConcurrency = n
	}
}

// WithClock sets the source of "now" for resolution, pricing and audit
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithoutMigrate makes Start leave the schema alone, for deployments that
// migrate out of band.
func WithoutMigrate() Option {
	return func(e *Engine) {
		e.skipMigrate = true
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if !e.skipMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return err
		}
	}

	// Initialize plugins
	e.plugins.EmitInit(ctx, e)

	e.logger.Info("tariff started",
		"currency", e.currency,
		"cache_bucket", e.cacheBucket,
		"fetch_timeout", e.fetchTimeout,
		"bulk_concurrency", e.bulkConcurrency,
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop shuts down the Engine. A cache backend that holds connections,
// such as the Redis cache, is closed along with the store.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	if c, ok := e.cacheBackend.(io.Closer); ok {
		if err := c.Close(); err != nil {
			e.logger.Warn("tariff: close cache backend", "error", err)
		}
	}

	return e.store.Close()
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Currency returns the currency prices are expressed in.
func (e *Engine) Currency() string { return e.pricer.Currency() }

// CacheDegraded reports whether the last cache invalidation failed, in
// which case reads bypass the cache until one succeeds.
func (e *Engine) CacheDegraded() bool { return e.cache.Degraded() }

// invalidate drops every cached resolution after a committed write. A
// failure degrades the cache but never fails the write.
func (e *Engine) invalidate(ctx context.Context) {
	err := e.cache.InvalidateAll(ctx)
	e.plugins.EmitCacheInvalidated(ctx, err)
}
