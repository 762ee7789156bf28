package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/tariff/audit"
	"github.com/xraph/tariff/pricing"
	"github.com/xraph/tariff/rule"
	"github.com/xraph/tariff/scope"
	"github.com/xraph/tariff/setting"
)

// DefaultHookTimeout bounds a single plugin call.
const DefaultHookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                []OnInit
	onShutdown            []OnShutdown
	onCategoryCreated     []OnCategoryCreated
	onCategoryUpdated     []OnCategoryUpdated
	onSettingCreated      []OnSettingCreated
	onSettingUpdated      []OnSettingUpdated
	onSettingDeleted      []OnSettingDeleted
	onSettingResolved     []OnSettingResolved
	onRuleCreated         []OnRuleCreated
	onRuleUpdated         []OnRuleUpdated
	onRuleDeleted         []OnRuleDeleted
	onPriceEvaluated      []OnPriceEvaluated
	onNoPricingConfigured []OnNoPricingConfigured
	onBulkEvaluated       []OnBulkEvaluated
	onAuditRecorded       []OnAuditRecorded
	onCacheInvalidated    []OnCacheInvalidated
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets how long a single hook may run before it is abandoned.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnCategoryCreated); ok {
		r.onCategoryCreated = append(r.onCategoryCreated, v)
	}
	if v, ok := p.(OnCategoryUpdated); ok {
		r.onCategoryUpdated = append(r.onCategoryUpdated, v)
	}
	if v, ok := p.(OnSettingCreated); ok {
		r.onSettingCreated = append(r.onSettingCreated, v)
	}
	if v, ok := p.(OnSettingUpdated); ok {
		r.onSettingUpdated = append(r.onSettingUpdated, v)
	}
	if v, ok := p.(OnSettingDeleted); ok {
		r.onSettingDeleted = append(r.onSettingDeleted, v)
	}
	if v, ok := p.(OnSettingResolved); ok {
		r.onSettingResolved = append(r.onSettingResolved, v)
	}
	if v, ok := p.(OnRuleCreated); ok {
		r.onRuleCreated = append(r.onRuleCreated, v)
	}
	if v, ok := p.(OnRuleUpdated); ok {
		r.onRuleUpdated = append(r.onRuleUpdated, v)
	}
	if v, ok := p.(OnRuleDeleted); ok {
		r.onRuleDeleted = append(r.onRuleDeleted, v)
	}
	if v, ok := p.(OnPriceEvaluated); ok {
		r.onPriceEvaluated = append(r.onPriceEvaluated, v)
	}
	if v, ok := p.(OnNoPricingConfigured); ok {
		r.onNoPricingConfigured = append(r.onNoPricingConfigured, v)
	}
	if v, ok := p.(OnBulkEvaluated); ok {
		r.onBulkEvaluated = append(r.onBulkEvaluated, v)
	}
	if v, ok := p.(OnAuditRecorded); ok {
		r.onAuditRecorded = append(r.onAuditRecorded, v)
	}
	if v, ok := p.(OnCacheInvalidated); ok {
		r.onCacheInvalidated = append(r.onCacheInvalidated, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnCategoryCreated", reflect.TypeFor[OnCategoryCreated]()},
	{"OnCategoryUpdated", reflect.TypeFor[OnCategoryUpdated]()},
	{"OnSettingCreated", reflect.TypeFor[OnSettingCreated]()},
	{"OnSettingUpdated", reflect.TypeFor[OnSettingUpdated]()},
	{"OnSettingDeleted", reflect.TypeFor[OnSettingDeleted]()},
	{"OnSettingResolved", reflect.TypeFor[OnSettingResolved]()},
	{"OnRuleCreated", reflect.TypeFor[OnRuleCreated]()},
	{"OnRuleUpdated", reflect.TypeFor[OnRuleUpdated]()},
	{"OnRuleDeleted", reflect.TypeFor[OnRuleDeleted]()},
	{"OnPriceEvaluated", reflect.TypeFor[OnPriceEvaluated]()},
	{"OnNoPricingConfigured", reflect.TypeFor[OnNoPricingConfigured]()},
	{"OnBulkEvaluated", reflect.TypeFor[OnBulkEvaluated]()},
	{"OnAuditRecorded", reflect.TypeFor[OnAuditRecorded]()},
	{"OnCacheInvalidated", reflect.TypeFor[OnCacheInvalidated]()},
}

// implementedInterfaces returns the hook names p implements.
func implementedInterfaces(p Plugin) []string {
	var names []string
	t := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if t.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// dispatch calls fn for every plugin pick returns. Failures are logged and
// never propagate to the caller.
func dispatch[T Plugin](ctx context.Context, r *Registry, hook string, pick func(*Registry) []T, fn func(T) error) {
	if r == nil {
		return
	}
	r.mu.RLock()
	plugins := pick(r)
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	dispatch(ctx, r, "OnInit", func(r *Registry) []OnInit { return r.onInit },
		func(p OnInit) error { return p.OnInit(ctx, engine) })
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	dispatch(ctx, r, "OnShutdown", func(r *Registry) []OnShutdown { return r.onShutdown },
		func(p OnShutdown) error { return p.OnShutdown(ctx) })
}

// EmitCategoryCreated emits a category created event.
func (r *Registry) EmitCategoryCreated(ctx context.Context, c *setting.Category) {
	dispatch(ctx, r, "OnCategoryCreated", func(r *Registry) []OnCategoryCreated { return r.onCategoryCreated },
		func(p OnCategoryCreated) error { return p.OnCategoryCreated(ctx, c) })
}

// EmitCategoryUpdated emits a category updated event.
func (r *Registry) EmitCategoryUpdated(ctx context.Context, before, after *setting.Category) {
	dispatch(ctx, r, "OnCategoryUpdated", func(r *Registry) []OnCategoryUpdated { return r.onCategoryUpdated },
		func(p OnCategoryUpdated) error { return p.OnCategoryUpdated(ctx, before, after) })
}

// EmitSettingCreated emits a setting created event.
func (r *Registry) EmitSettingCreated(ctx context.Context, s *setting.Setting) {
	dispatch(ctx, r, "OnSettingCreated", func(r *Registry) []OnSettingCreated { return r.onSettingCreated },
		func(p OnSettingCreated) error { return p.OnSettingCreated(ctx, s) })
}

// EmitSettingUpdated emits a setting updated event.
func (r *Registry) EmitSettingUpdated(ctx context.Context, before, after *setting.Setting) {
	dispatch(ctx, r, "OnSettingUpdated", func(r *Registry) []OnSettingUpdated { return r.onSettingUpdated },
		func(p OnSettingUpdated) error { return p.OnSettingUpdated(ctx, before, after) })
}

// EmitSettingDeleted emits a setting deleted event.
func (r *Registry) EmitSettingDeleted(ctx context.Context, s *setting.Setting, reason string) {
	dispatch(ctx, r, "OnSettingDeleted", func(r *Registry) []OnSettingDeleted { return r.onSettingDeleted },
		func(p OnSettingDeleted) error { return p.OnSettingDeleted(ctx, s, reason) })
}

// EmitSettingResolved emits a setting resolved event.
func (r *Registry) EmitSettingResolved(ctx context.Context, key string, sc scope.Context, s *setting.Setting, elapsed time.Duration) {
	dispatch(ctx, r, "OnSettingResolved", func(r *Registry) []OnSettingResolved { return r.onSettingResolved },
		func(p OnSettingResolved) error { return p.OnSettingResolved(ctx, key, sc, s, elapsed) })
}

// EmitRuleCreated emits a rule created event.
func (r *Registry) EmitRuleCreated(ctx context.Context, ru *rule.Rule) {
	dispatch(ctx, r, "OnRuleCreated", func(r *Registry) []OnRuleCreated { return r.onRuleCreated },
		func(p OnRuleCreated) error { return p.OnRuleCreated(ctx, ru) })
}

// EmitRuleUpdated emits a rule updated event.
func (r *Registry) EmitRuleUpdated(ctx context.Context, before, after *rule.Rule) {
	dispatch(ctx, r, "OnRuleUpdated", func(r *Registry) []OnRuleUpdated { return r.onRuleUpdated },
		func(p OnRuleUpdated) error { return p.OnRuleUpdated(ctx, before, after) })
}

// EmitRuleDeleted emits a rule deleted event.
func (r *Registry) EmitRuleDeleted(ctx context.Context, ru *rule.Rule, reason string) {
	dispatch(ctx, r, "OnRuleDeleted", func(r *Registry) []OnRuleDeleted { return r.onRuleDeleted },
		func(p OnRuleDeleted) error { return p.OnRuleDeleted(ctx, ru, reason) })
}

// EmitPriceEvaluated emits a price evaluated event.
func (r *Registry) EmitPriceEvaluated(ctx context.Context, pctx pricing.Context, res *pricing.Result, elapsed time.Duration) {
	dispatch(ctx, r, "OnPriceEvaluated", func(r *Registry) []OnPriceEvaluated { return r.onPriceEvaluated },
		func(p OnPriceEvaluated) error { return p.OnPriceEvaluated(ctx, pctx, res, elapsed) })
}

// EmitNoPricingConfigured emits a no pricing configured event.
func (r *Registry) EmitNoPricingConfigured(ctx context.Context, pctx pricing.Context, err error) {
	dispatch(ctx, r, "OnNoPricingConfigured", func(r *Registry) []OnNoPricingConfigured { return r.onNoPricingConfigured },
		func(p OnNoPricingConfigured) error { return p.OnNoPricingConfigured(ctx, pctx, err) })
}

// EmitBulkEvaluated emits a bulk evaluated event.
func (r *Registry) EmitBulkEvaluated(ctx context.Context, lines int, res *pricing.BulkResult, err error, elapsed time.Duration) {
	dispatch(ctx, r, "OnBulkEvaluated", func(r *Registry) []OnBulkEvaluated { return r.onBulkEvaluated },
		func(p OnBulkEvaluated) error { return p.OnBulkEvaluated(ctx, lines, res, err, elapsed) })
}

// EmitAuditRecorded emits an audit recorded event.
func (r *Registry) EmitAuditRecorded(ctx context.Context, e *audit.Entry) {
	dispatch(ctx, r, "OnAuditRecorded", func(r *Registry) []OnAuditRecorded { return r.onAuditRecorded },
		func(p OnAuditRecorded) error { return p.OnAuditRecorded(ctx, e) })
}

// EmitCacheInvalidated emits a cache invalidated event.
func (r *Registry) EmitCacheInvalidated(ctx context.Context, err error) {
	dispatch(ctx, r, "OnCacheInvalidated", func(r *Registry) []OnCacheInvalidated { return r.onCacheInvalidated },
		func(p OnCacheInvalidated) error { return p.OnCacheInvalidated(ctx, err) })
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block resolution or pricing.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
