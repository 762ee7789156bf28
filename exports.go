package tariff

import (
	"context"

	"github.com/xraph/tariff/cache"
	"github.com/xraph/tariff/pricing"
	"github.com/xraph/tariff/scope"
	"github.com/xraph/tariff/types"
)

// Re-export common types for convenience so users don't have to import the subpackages.

// Money is re-exported from types package.
type Money = types.Money

// Entity is re-exported from types package.
type Entity = types.Entity

// Window is re-exported from types package.
type Window = types.Window

// Scope is re-exported from scope package.
type Scope = scope.Scope

// ScopeContext is re-exported from scope package.
type ScopeContext = scope.Context

// PricingContext is re-exported from pricing package.
type PricingContext = pricing.Context

// Result is re-exported from pricing package.
type Result = pricing.Result

// BulkResult is re-exported from pricing package.
type BulkResult = pricing.BulkResult

// Re-export Money constructors
var (
	NGN  = types.NGN
	Zero = types.Zero
	Sum  = types.Sum
)

// Re-export Entity constructor
var NewEntity = types.NewEntity

// WithoutCache marks ctx so reads skip the resolution cache. Use it to
// read back a value in the same request that wrote it.
func WithoutCache(ctx context.Context) context.Context {
	return cache.WithoutCache(ctx)
}
