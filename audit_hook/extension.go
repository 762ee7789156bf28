// Package audithook bridges Tariff lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/tariff/audit"
	"github.com/xraph/tariff/plugin"
	"github.com/xraph/tariff/pricing"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnAuditRecorded       = (*Extension)(nil)
	_ plugin.OnNoPricingConfigured = (*Extension)(nil)
	_ plugin.OnBulkEvaluated       = (*Extension)(nil)
	_ plugin.OnCacheInvalidated    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	ActorID    string         `json:"actor_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Tariff lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Configuration writes
// ──────────────────────────────────────────────────

// OnAuditRecorded implements plugin.OnAuditRecorded. Every configuration
// write produces exactly one internal audit entry, so this is where writes
// are forwarded.
func (e *Extension) OnAuditRecorded(ctx context.Context, entry *audit.Entry) error {
	action, resource, ok := writeAction(entry.EntityType, entry.Action)
	if !ok {
		return nil
	}
	return e.send(ctx, &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   CategoryConfiguration,
		ResourceID: entry.EntityID.String(),
		ActorID:    entry.ActorID,
		Outcome:    OutcomeSuccess,
		Severity:   SeverityInfo,
		Reason:     entry.Reason,
		Metadata: map[string]any{
			"audit_id":  entry.ID.String(),
			"timestamp": entry.Timestamp.Format(time.RFC3339Nano),
		},
	})
}

func writeAction(entityType audit.EntityType, action audit.Action) (name, resource string, ok bool) {
	switch entityType {
	case audit.EntityCategory:
		resource = ResourceCategory
		name = map[audit.Action]string{
			audit.ActionCreate: ActionCategoryCreated,
			audit.ActionUpdate: ActionCategoryUpdated,
			audit.ActionDelete: ActionCategoryDeactivated,
		}[action]
	case audit.EntitySetting:
		resource = ResourceSetting
		name = map[audit.Action]string{
			audit.ActionCreate: ActionSettingCreated,
			audit.ActionUpdate: ActionSettingUpdated,
			audit.ActionDelete: ActionSettingDeleted,
		}[action]
	case audit.EntityRule:
		resource = ResourceRule
		name = map[audit.Action]string{
			audit.ActionCreate: ActionRuleCreated,
			audit.ActionUpdate: ActionRuleUpdated,
			audit.ActionDelete: ActionRuleDeleted,
		}[action]
	}
	return name, resource, name != ""
}

// ──────────────────────────────────────────────────
// Pricing and cache failures
// ──────────────────────────────────────────────────

// OnNoPricingConfigured implements plugin.OnNoPricingConfigured.
func (e *Extension) OnNoPricingConfigured(ctx context.Context, pctx pricing.Context, err error) error {
	return e.record(ctx, ActionNoPricingConfigured, SeverityWarning, OutcomeFailure,
		ResourcePricing, pctx.OperationType, CategoryPricing, err,
		"operation_type", pctx.OperationType,
		"cylinder_type", pctx.CylinderType,
		"outlet_id", pctx.OutletID,
	)
}

// OnBulkEvaluated implements plugin.OnBulkEvaluated. Only failed batches
// are audited.
func (e *Extension) OnBulkEvaluated(ctx context.Context, lines int, _ *pricing.BulkResult, err error, _ time.Duration) error {
	if err == nil {
		return nil
	}
	return e.record(ctx, ActionBulkFailed, SeverityWarning, OutcomeFailure,
		ResourcePricing, "", CategoryPricing, err,
		"lines", lines,
	)
}

// OnCacheInvalidated implements plugin.OnCacheInvalidated. Only failures
// are audited.
func (e *Extension) OnCacheInvalidated(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	return e.record(ctx, ActionCacheDegraded, SeverityError, OutcomeFailure,
		ResourceCache, "", CategoryInfra, err,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	return e.send(ctx, &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	})
}

// send forwards evt unless its action is disabled. Recorder failures are
// logged and never fail the hook.
func (e *Extension) send(ctx context.Context, evt *AuditEvent) error {
	if e.enabled != nil && !e.enabled[evt.Action] {
		return nil
	}
	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", evt.Action,
			"resource_id", evt.ResourceID,
			"error", recErr,
		)
	}
	return nil
}
