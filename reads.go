package tariff

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/tariff/pricing"
	"github.com/xraph/tariff/scope"
	"github.com/xraph/tariff/setting"
)

// ──────────────────────────────────────────────────
// Resolution
// ──────────────────────────────────────────────────

// Resolve returns the setting for key that applies to sc now. When nothing
// applies it returns ErrNotFound, which is an outcome, not a failure.
func (e *Engine) Resolve(ctx context.Context, key string, sc scope.Context) (*setting.Setting, error) {
	start := time.Now()
	s, err := e.resolver.Resolve(ctx, key, sc)
	e.emitResolved(ctx, key, sc, s, err, time.Since(start))
	return s, err
}

// ResolveAt returns the setting for key that applies to sc at asOf.
func (e *Engine) ResolveAt(ctx context.Context, key string, sc scope.Context, asOf time.Time) (*setting.Setting, error) {
	start := time.Now()
	s, err := e.resolver.ResolveAt(ctx, key, sc, asOf)
	e.emitResolved(ctx, key, sc, s, err, time.Since(start))
	return s, err
}

// ResolveValue resolves key and returns the winner's typed value.
func (e *Engine) ResolveValue(ctx context.Context, key string, sc scope.Context) (setting.Value, error) {
	return e.resolver.ResolveValue(ctx, key, sc)
}

func (e *Engine) emitResolved(ctx context.Context, key string, sc scope.Context, s *setting.Setting, err error, elapsed time.Duration) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		return
	}
	e.plugins.EmitSettingResolved(ctx, key, sc, s, elapsed)
}

// ──────────────────────────────────────────────────
// Pricing
// ──────────────────────────────────────────────────

// Evaluate prices one transaction. operationType may be empty when pctx
// carries it.
func (e *Engine) Evaluate(ctx context.Context, operationType string, pctx pricing.Context) (*pricing.Result, error) {
	start := time.Now()
	res, err := e.pricer.Evaluate(ctx, operationType, pctx)
	if pctx.OperationType == "" {
		pctx.OperationType = operationType
	}

	switch {
	case err == nil:
		e.plugins.EmitPriceEvaluated(ctx, pctx, res, time.Since(start))
	case errors.Is(err, ErrNoPricingConfigured):
		e.logger.Warn("no pricing configured",
			"operation_type", pctx.OperationType,
			"cylinder_type", pctx.CylinderType,
			"error", err,
		)
		e.plugins.EmitNoPricingConfigured(ctx, pctx, err)
	}
	return res, err
}

// EvaluateBulk prices every line or none. On failure it returns a
// *BulkError naming the first failing line (1-based).
func (e *Engine) EvaluateBulk(ctx context.Context, lines []pricing.Context) (*pricing.BulkResult, error) {
	start := time.Now()
	res, err := e.pricer.EvaluateBulk(ctx, lines)
	e.plugins.EmitBulkEvaluated(ctx, len(lines), res, err, time.Since(start))
	return res, err
}
