package extension

import (
	"time"

	"github.com/xraph/tariff/cache"
	"github.com/xraph/tariff/pricing"
	"github.com/xraph/tariff/resolve"
	"github.com/xraph/tariff/seed"
)

// Config holds the Tariff extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.tariff" or "tariff" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Currency is the currency prices are expressed in (default: "ngn").
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`

	// CacheBucket is the width of the time bucket resolutions are cached
	// under (default: 1m).
	CacheBucket time.Duration `json:"cache_bucket" mapstructure:"cache_bucket" yaml:"cache_bucket"`

	// FetchTimeout bounds each candidate fetch from the store (default: 5s).
	FetchTimeout time.Duration `json:"fetch_timeout" mapstructure:"fetch_timeout" yaml:"fetch_timeout"`

	// BulkConcurrency caps how many bulk lines are priced at once (default: 8).
	BulkConcurrency int `json:"bulk_concurrency" mapstructure:"bulk_concurrency" yaml:"bulk_concurrency"`

	// Redis enables the shared Redis resolution cache when RedisAddrs is
	// non-empty. Otherwise each process keeps its own in-memory cache.
	RedisAddrs     []string      `json:"redis_addrs" mapstructure:"redis_addrs" yaml:"redis_addrs"`
	RedisPassword  string        `json:"redis_password" mapstructure:"redis_password" yaml:"redis_password"`
	RedisCluster   bool          `json:"redis_cluster" mapstructure:"redis_cluster" yaml:"redis_cluster"`
	RedisNamespace string        `json:"redis_namespace" mapstructure:"redis_namespace" yaml:"redis_namespace"`
	RedisTTL       time.Duration `json:"redis_ttl" mapstructure:"redis_ttl" yaml:"redis_ttl"`

	// SeedFile is a YAML catalogue applied on start. Entries that already
	// exist are skipped.
	SeedFile string `json:"seed_file" mapstructure:"seed_file" yaml:"seed_file"`

	// SeedActor is recorded as the actor of seeded writes (default: "system:seed").
	SeedActor string `json:"seed_actor" mapstructure:"seed_actor" yaml:"seed_actor"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Currency:        pricing.DefaultCurrency,
		CacheBucket:     cache.DefaultBucket,
		FetchTimeout:    resolve.DefaultFetchTimeout,
		BulkConcurrency: pricing.DefaultBulkLimit,
		RedisNamespace:  "tariff",
		RedisTTL:        cache.DefaultRedisTTL,
		SeedActor:       seed.DefaultActor,
	}
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Currency == "" {
		cfg.Currency = defaults.Currency
	}
	if cfg.CacheBucket == 0 {
		cfg.CacheBucket = defaults.CacheBucket
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = defaults.FetchTimeout
	}
	if cfg.BulkConcurrency == 0 {
		cfg.BulkConcurrency = defaults.BulkConcurrency
	}
	if cfg.RedisNamespace == "" {
		cfg.RedisNamespace = defaults.RedisNamespace
	}
	if cfg.RedisTTL == 0 {
		cfg.RedisTTL = defaults.RedisTTL
	}
	if cfg.SeedActor == "" {
		cfg.SeedActor = defaults.SeedActor
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.RedisCluster {
		yamlConfig.RedisCluster = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Currency == "" {
		yamlConfig.Currency = programmaticConfig.Currency
	}
	if yamlConfig.RedisPassword == "" {
		yamlConfig.RedisPassword = programmaticConfig.RedisPassword
	}
	if yamlConfig.RedisNamespace == "" {
		yamlConfig.RedisNamespace = programmaticConfig.RedisNamespace
	}
	if yamlConfig.SeedFile == "" {
		yamlConfig.SeedFile = programmaticConfig.SeedFile
	}
	if yamlConfig.SeedActor == "" {
		yamlConfig.SeedActor = programmaticConfig.SeedActor
	}
	if len(yamlConfig.RedisAddrs) == 0 {
		yamlConfig.RedisAddrs = programmaticConfig.RedisAddrs
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.CacheBucket == 0 {
		yamlConfig.CacheBucket = programmaticConfig.CacheBucket
	}
	if yamlConfig.FetchTimeout == 0 {
		yamlConfig.FetchTimeout = programmaticConfig.FetchTimeout
	}
	if yamlConfig.BulkConcurrency == 0 {
		yamlConfig.BulkConcurrency = programmaticConfig.BulkConcurrency
	}
	if yamlConfig.RedisTTL == 0 {
		yamlConfig.RedisTTL = programmaticConfig.RedisTTL
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
