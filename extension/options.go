package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tariff"
	"github.com/xraph/tariff/plugin"
	"github.com/xraph/tariff/store"
	"github.com/xraph/tariff/store/mongo"
	"github.com/xraph/tariff/store/postgres"
	"github.com/xraph/tariff/store/sqlite"
)

// Option configures the Tariff Forge extension.
type Option func(*Extension)

// WithStore sets the store for the tariff engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithPostgres backs the engine with the PostgreSQL store over db.
func WithPostgres(db *grove.DB) Option {
	return WithStore(postgres.New(db))
}

// WithSQLite backs the engine with the SQLite store over db.
func WithSQLite(db *grove.DB) Option {
	return WithStore(sqlite.New(db))
}

// WithMongo backs the engine with the MongoDB store over db.
func WithMongo(db *grove.DB) Option {
	return WithStore(mongo.New(db))
}

// WithTariffOption passes a tariff.Option through to the underlying engine.
func WithTariffOption(opt tariff.Option) Option {
	return func(e *Extension) {
		e.tariffOpts = append(e.tariffOpts, opt)
	}
}

// WithPlugin registers a tariff plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.tariffOpts = append(e.tariffOpts, tariff.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithCurrency sets the pricing currency.
func WithCurrency(currency string) Option {
	return func(e *Extension) { e.config.Currency = currency }
}

// WithCacheBucket sets the resolution cache time bucket.
func WithCacheBucket(d time.Duration) Option {
	return func(e *Extension) { e.config.CacheBucket = d }
}

// WithRedis shares the resolution cache across processes through Redis.
func WithRedis(addrs []string, password string) Option {
	return func(e *Extension) {
		e.config.RedisAddrs = addrs
		e.config.RedisPassword = password
	}
}

// WithSeedFile applies the YAML catalogue at path on start.
func WithSeedFile(path string) Option {
	return func(e *Extension) { e.config.SeedFile = path }
}
