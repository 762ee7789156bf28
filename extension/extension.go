// Package extension provides the Forge extension adapter for Tariff.
//
// It implements the forge.Extension interface to integrate Tariff
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.tariff" or "tariff" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/tariff"
	"github.com/xraph/tariff/cache"
	"github.com/xraph/tariff/seed"
	"github.com/xraph/tariff/store"
	"github.com/xraph/tariff/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "tariff"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Hierarchical business settings and pricing engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Tariff as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *tariff.Engine
	store      store.Store
	tariffOpts []tariff.Option
}

// New creates a new Tariff Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Tariff engine.
// This is nil until Register is called.
func (e *Extension) Engine() *tariff.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the tariff engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	e.engine = tariff.New(e.store, e.buildTariffOpts()...)

	return vessel.Provide(fapp.Container(), func() (*tariff.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("tariff: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	if e.config.SeedFile != "" {
		if err := e.applySeed(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension]. A degraded cache is reported as
// unhealthy even though reads keep working against the store.
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("tariff: store not initialized")
	}
	if err := e.store.Ping(ctx); err != nil {
		return err
	}
	if e.engine != nil && e.engine.CacheDegraded() {
		return tariff.ErrCacheInvalidate
	}
	return nil
}

func (e *Extension) applySeed(ctx context.Context) error {
	cat, err := seed.LoadFile(e.config.SeedFile)
	if err != nil {
		return err
	}
	rep, err := seed.Apply(ctx, e.engine, cat, e.config.SeedActor)
	if err != nil {
		return fmt.Errorf("tariff: seed %s: %w", e.config.SeedFile, err)
	}
	e.Logger().Info("tariff: catalogue seeded",
		forge.F("file", e.config.SeedFile),
		forge.F("categories", rep.CategoriesCreated),
		forge.F("settings", rep.SettingsCreated),
		forge.F("rules", rep.RulesCreated),
		forge.F("skipped", rep.Skipped),
	)
	return nil
}

// buildTariffOpts constructs tariff.Option values from the resolved config.
func (e *Extension) buildTariffOpts() []tariff.Option {
	return append(optionsFromConfig(e.config), e.tariffOpts...)
}

func optionsFromConfig(cfg Config) []tariff.Option {
	opts := []tariff.Option{
		tariff.WithCurrency(cfg.Currency),
		tariff.WithCacheBucket(cfg.CacheBucket),
		tariff.WithFetchTimeout(cfg.FetchTimeout),
		tariff.WithBulkConcurrency(cfg.BulkConcurrency),
	}
	if cfg.DisableMigrate {
		opts = append(opts, tariff.WithoutMigrate())
	}
	if len(cfg.RedisAddrs) > 0 {
		opts = append(opts, tariff.WithCache(cache.NewRedisFromAddrs(
			cfg.RedisAddrs,
			cfg.RedisPassword,
			cfg.RedisCluster,
			cfg.RedisNamespace,
			cfg.RedisTTL,
		)))
	}
	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("tariff: configuration is required but not found in config files; " +
				"ensure 'extensions.tariff' or 'tariff' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("tariff: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("currency", e.config.Currency),
		forge.F("cache_bucket", e.config.CacheBucket),
		forge.F("fetch_timeout", e.config.FetchTimeout),
		forge.F("bulk_concurrency", e.config.BulkConcurrency),
		forge.F("redis", len(e.config.RedisAddrs) > 0),
		forge.F("seed_file", e.config.SeedFile),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.tariff", "tariff"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("tariff: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("tariff: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}
