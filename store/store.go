// Package store defines the composite persistence interface for Tariff.
// Backends live in the memory, postgres, sqlite and mongo subpackages.
package store

import (
	"context"

	"github.com/xraph/tariff/audit"
	"github.com/xraph/tariff/rule"
	"github.com/xraph/tariff/setting"
)

// Store is the unified storage interface for all Tariff entities. The
// per-entity interfaces use distinct method names, so they embed cleanly.
//
// Every backend returns copies: mutating a returned value never changes
// stored state. ListActiveSettings and ListActiveRules return only active
// rows and leave temporal and scope filtering to the caller.
type Store interface {
	setting.Store
	rule.Store
	audit.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
