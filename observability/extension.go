// Package observability provides a metrics extension for Tariff that records
// lifecycle event counts via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/tariff/audit"
	"github.com/xraph/tariff/plugin"
	"github.com/xraph/tariff/pricing"
	"github.com/xraph/tariff/rule"
	"github.com/xraph/tariff/scope"
	"github.com/xraph/tariff/setting"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnCategoryCreated     = (*MetricsExtension)(nil)
	_ plugin.OnCategoryUpdated     = (*MetricsExtension)(nil)
	_ plugin.OnSettingCreated      = (*MetricsExtension)(nil)
	_ plugin.OnSettingUpdated      = (*MetricsExtension)(nil)
	_ plugin.OnSettingDeleted      = (*MetricsExtension)(nil)
	_ plugin.OnSettingResolved     = (*MetricsExtension)(nil)
	_ plugin.OnRuleCreated         = (*MetricsExtension)(nil)
	_ plugin.OnRuleUpdated         = (*MetricsExtension)(nil)
	_ plugin.OnRuleDeleted         = (*MetricsExtension)(nil)
	_ plugin.OnPriceEvaluated      = (*MetricsExtension)(nil)
	_ plugin.OnNoPricingConfigured = (*MetricsExtension)(nil)
	_ plugin.OnBulkEvaluated       = (*MetricsExtension)(nil)
	_ plugin.OnAuditRecorded       = (*MetricsExtension)(nil)
	_ plugin.OnCacheInvalidated    = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Tariff plugin to automatically track resolution and
// pricing metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Category metrics
	CategoryCreated Counter
	CategoryUpdated Counter

	// Setting metrics
	SettingCreated    Counter
	SettingUpdated    Counter
	SettingDeleted    Counter
	SettingResolved   Counter
	SettingNotFound   Counter
	ResolutionLatency Histogram

	// Rule metrics
	RuleCreated Counter
	RuleUpdated Counter
	RuleDeleted Counter

	// Pricing metrics
	PriceEvaluated      Counter
	PriceFallback       Counter
	NoPricingConfigured Counter
	EvaluationLatency   Histogram
	PriceTotal          Histogram
	BulkEvaluated       Counter
	BulkFailed          Counter
	BulkLines           Histogram
	BulkLatency         Histogram

	// Audit and cache metrics
	AuditRecorded      Counter
	CacheInvalidated   Counter
	CacheInvalidateErr Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Category metrics
		CategoryCreated: factory.Counter("tariff.category.created"),
		CategoryUpdated: factory.Counter("tariff.category.updated"),

		// Setting metrics
		SettingCreated:    factory.Counter("tariff.setting.created"),
		SettingUpdated:    factory.Counter("tariff.setting.updated"),
		SettingDeleted:    factory.Counter("tariff.setting.deleted"),
		SettingResolved:   factory.Counter("tariff.setting.resolved"),
		SettingNotFound:   factory.Counter("tariff.setting.not_found"),
		ResolutionLatency: factory.Histogram("tariff.setting.resolve.latency_ms"),

		// Rule metrics
		RuleCreated: factory.Counter("tariff.rule.created"),
		RuleUpdated: factory.Counter("tariff.rule.updated"),
		RuleDeleted: factory.Counter("tariff.rule.deleted"),

		// Pricing metrics
		PriceEvaluated:      factory.Counter("tariff.price.evaluated"),
		PriceFallback:       factory.Counter("tariff.price.fallback"),
		NoPricingConfigured: factory.Counter("tariff.price.unconfigured"),
		EvaluationLatency:   factory.Histogram("tariff.price.latency_ms"),
		PriceTotal:          factory.Histogram("tariff.price.total_amount"),
		BulkEvaluated:       factory.Counter("tariff.bulk.evaluated"),
		BulkFailed:          factory.Counter("tariff.bulk.failed"),
		BulkLines:           factory.Histogram("tariff.bulk.lines"),
		BulkLatency:         factory.Histogram("tariff.bulk.latency_ms"),

		// Audit and cache metrics
		AuditRecorded:      factory.Counter("tariff.audit.recorded"),
		CacheInvalidated:   factory.Counter("tariff.cache.invalidated"),
		CacheInvalidateErr: factory.Counter("tariff.cache.invalidate_errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Configuration hooks
// ──────────────────────────────────────────────────

// OnCategoryCreated implements plugin.OnCategoryCreated.
func (m *MetricsExtension) OnCategoryCreated(_ context.Context, _ *setting.Category) error {
	m.CategoryCreated.Inc()
	return nil
}

// OnCategoryUpdated implements plugin.OnCategoryUpdated.
func (m *MetricsExtension) OnCategoryUpdated(_ context.Context, _, _ *setting.Category) error {
	m.CategoryUpdated.Inc()
	return nil
}

// OnSettingCreated implements plugin.OnSettingCreated.
func (m *MetricsExtension) OnSettingCreated(_ context.Context, _ *setting.Setting) error {
	m.SettingCreated.Inc()
	return nil
}

// OnSettingUpdated implements plugin.OnSettingUpdated.
func (m *MetricsExtension) OnSettingUpdated(_ context.Context, _, _ *setting.Setting) error {
	m.SettingUpdated.Inc()
	return nil
}

// OnSettingDeleted implements plugin.OnSettingDeleted.
func (m *MetricsExtension) OnSettingDeleted(_ context.Context, _ *setting.Setting, _ string) error {
	m.SettingDeleted.Inc()
	return nil
}

// OnRuleCreated implements plugin.OnRuleCreated.
func (m *MetricsExtension) OnRuleCreated(_ context.Context, _ *rule.Rule) error {
	m.RuleCreated.Inc()
	return nil
}

// OnRuleUpdated implements plugin.OnRuleUpdated.
func (m *MetricsExtension) OnRuleUpdated(_ context.Context, _, _ *rule.Rule) error {
	m.RuleUpdated.Inc()
	return nil
}

// OnRuleDeleted implements plugin.OnRuleDeleted.
func (m *MetricsExtension) OnRuleDeleted(_ context.Context, _ *rule.Rule, _ string) error {
	m.RuleDeleted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Read path hooks
// ──────────────────────────────────────────────────

// OnSettingResolved implements plugin.OnSettingResolved.
func (m *MetricsExtension) OnSettingResolved(_ context.Context, _ string, _ scope.Context, s *setting.Setting, elapsed time.Duration) error {
	if s == nil {
		m.SettingNotFound.Inc()
	} else {
		m.SettingResolved.Inc()
	}
	m.ResolutionLatency.Observe(float64(elapsed.Microseconds()) / 1000)
	return nil
}

// OnPriceEvaluated implements plugin.OnPriceEvaluated.
func (m *MetricsExtension) OnPriceEvaluated(_ context.Context, _ pricing.Context, res *pricing.Result, elapsed time.Duration) error {
	m.PriceEvaluated.Inc()
	if res.Source == pricing.SourceFallback {
		m.PriceFallback.Inc()
	}
	m.EvaluationLatency.Observe(float64(elapsed.Microseconds()) / 1000)
	m.PriceTotal.Observe(float64(res.TotalAmount.Amount))
	return nil
}

// OnNoPricingConfigured implements plugin.OnNoPricingConfigured.
func (m *MetricsExtension) OnNoPricingConfigured(_ context.Context, _ pricing.Context, _ error) error {
	m.NoPricingConfigured.Inc()
	return nil
}

// OnBulkEvaluated implements plugin.OnBulkEvaluated.
func (m *MetricsExtension) OnBulkEvaluated(_ context.Context, lines int, _ *pricing.BulkResult, err error, elapsed time.Duration) error {
	if err != nil {
		m.BulkFailed.Inc()
	} else {
		m.BulkEvaluated.Inc()
	}
	m.BulkLines.Observe(float64(lines))
	m.BulkLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// ──────────────────────────────────────────────────
// Audit and cache hooks
// ──────────────────────────────────────────────────

// OnAuditRecorded implements plugin.OnAuditRecorded.
func (m *MetricsExtension) OnAuditRecorded(_ context.Context, _ *audit.Entry) error {
	m.AuditRecorded.Inc()
	return nil
}

// OnCacheInvalidated implements plugin.OnCacheInvalidated.
func (m *MetricsExtension) OnCacheInvalidated(_ context.Context, err error) error {
	if err != nil {
		m.CacheInvalidateErr.Inc()
		return nil
	}
	m.CacheInvalidated.Inc()
	return nil
}
