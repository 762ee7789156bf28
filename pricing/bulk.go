package pricing

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/tariff/errdefs"
	"github.com/xraph/tariff/types"
)

// EvaluateBulk prices every line or none. Lines are evaluated concurrently;
// the first failure cancels the rest and is returned as a *BulkError whose
// Line is 1-based.
func (e *Engine) EvaluateBulk(ctx context.Context, lines []Context) (*BulkResult, error) {
	if len(lines) == 0 {
		return nil, errdefs.Invalid("lines", "at least one line is required")
	}

	results := make([]*Result, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.bulkLimit)

	for i, line := range lines {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &errdefs.BulkError{Line: i + 1, Err: err}
			}
			res, err := e.Evaluate(gctx, line.OperationType, line)
			if err != nil {
				return &errdefs.BulkError{Line: i + 1, Err: err}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &BulkResult{
		Lines:         results,
		TotalSubtotal: types.Zero(e.currency),
		TotalTax:      types.Zero(e.currency),
		TotalDeposit:  types.Zero(e.currency),
		TotalAmount:   types.Zero(e.currency),
	}
	for _, r := range results {
		out.TotalSubtotal = out.TotalSubtotal.Add(r.Subtotal)
		out.TotalTax = out.TotalTax.Add(r.TaxAmount)
		out.TotalDeposit = out.TotalDeposit.Add(r.DepositAmount)
		out.TotalAmount = out.TotalAmount.Add(r.TotalAmount)
	}
	return out, nil
}
