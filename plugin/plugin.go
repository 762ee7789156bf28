// Package plugin provides an extensible plugin system for Tariff.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/tariff/audit"
	"github.com/xraph/tariff/pricing"
	"github.com/xraph/tariff/rule"
	"github.com/xraph/tariff/scope"
	"github.com/xraph/tariff/setting"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Category hooks
// ──────────────────────────────────────────────────

// OnCategoryCreated is called after a category is created and audited.
type OnCategoryCreated interface {
	Plugin
	OnCategoryCreated(ctx context.Context, c *setting.Category) error
}

// OnCategoryUpdated is called after a category is updated or deactivated.
type OnCategoryUpdated interface {
	Plugin
	OnCategoryUpdated(ctx context.Context, before, after *setting.Category) error
}

// ──────────────────────────────────────────────────
// Setting hooks
// ──────────────────────────────────────────────────

// OnSettingCreated is called after a setting is created and audited.
type OnSettingCreated interface {
	Plugin
	OnSettingCreated(ctx context.Context, s *setting.Setting) error
}

// OnSettingUpdated is called after a setting is replaced.
type OnSettingUpdated interface {
	Plugin
	OnSettingUpdated(ctx context.Context, before, after *setting.Setting) error
}

// OnSettingDeleted is called after a setting is deactivated.
type OnSettingDeleted interface {
	Plugin
	OnSettingDeleted(ctx context.Context, s *setting.Setting, reason string) error
}

// OnSettingResolved is called after every resolution. s is nil when
// nothing applied.
type OnSettingResolved interface {
	Plugin
	OnSettingResolved(ctx context.Context, key string, sc scope.Context, s *setting.Setting, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Rule hooks
// ──────────────────────────────────────────────────

// OnRuleCreated is called after a pricing rule is created and audited.
type OnRuleCreated interface {
	Plugin
	OnRuleCreated(ctx context.Context, r *rule.Rule) error
}

// OnRuleUpdated is called after a pricing rule is replaced.
type OnRuleUpdated interface {
	Plugin
	OnRuleUpdated(ctx context.Context, before, after *rule.Rule) error
}

// OnRuleDeleted is called after a pricing rule is deactivated.
type OnRuleDeleted interface {
	Plugin
	OnRuleDeleted(ctx context.Context, r *rule.Rule, reason string) error
}

// ──────────────────────────────────────────────────
// Pricing hooks
// ──────────────────────────────────────────────────

// OnPriceEvaluated is called after a successful evaluation.
type OnPriceEvaluated interface {
	Plugin
	OnPriceEvaluated(ctx context.Context, pctx pricing.Context, res *pricing.Result, elapsed time.Duration) error
}

// OnNoPricingConfigured is called when an evaluation finds neither a rule
// nor a fallback.
type OnNoPricingConfigured interface {
	Plugin
	OnNoPricingConfigured(ctx context.Context, pctx pricing.Context, err error) error
}

// OnBulkEvaluated is called after a bulk evaluation. res is nil and err is
// set when the batch failed.
type OnBulkEvaluated interface {
	Plugin
	OnBulkEvaluated(ctx context.Context, lines int, res *pricing.BulkResult, err error, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Audit and cache hooks
// ──────────────────────────────────────────────────

// OnAuditRecorded is called after an audit entry is appended.
type OnAuditRecorded interface {
	Plugin
	OnAuditRecorded(ctx context.Context, e *audit.Entry) error
}

// OnCacheInvalidated is called after every write-triggered invalidation.
// err is non-nil when the invalidation failed and the cache degraded.
type OnCacheInvalidated interface {
	Plugin
	OnCacheInvalidated(ctx context.Context, err error) error
}
