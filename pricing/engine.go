package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/xraph/tariff/cache"
	"github.com/xraph/tariff/errdefs"
	"github.com/xraph/tariff/rule"
	"github.com/xraph/tariff/scope"
	"github.com/xraph/tariff/setting"
	"github.com/xraph/tariff/types"
)

// Setting keys the engine reads.
const (
	KeyDeposit       = "deposit.amount"
	KeyTaxRate       = "tax.rate"
	KeyTaxType       = "tax.type"
	BasePriceSuffix  = ".base_price"
	DefaultCurrency  = "ngn"
	DefaultBulkLimit = 8
)

// DefaultFetchTimeout bounds a rule candidate fetch.
const DefaultFetchTimeout = 5 * time.Second

// RuleSource supplies active rules for an operation type.
type RuleSource interface {
	ListActiveRules(ctx context.Context, operationType string) ([]*rule.Rule, error)
}

// SettingResolver resolves the settings the pipeline reads.
type SettingResolver interface {
	ResolveAt(ctx context.Context, key string, sc scope.Context, asOf time.Time) (*setting.Setting, error)
}

// Engine evaluates prices. It is safe for concurrent use.
type Engine struct {
	rules        RuleSource
	settings     SettingResolver
	cache        *cache.Resolution
	currency     string
	fetchTimeout time.Duration
	bulkLimit    int
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache memoizes evaluated prices in c.
func WithCache(c *cache.Resolution) Option { return func(e *Engine) { e.cache = c } }

// WithCurrency sets the currency prices are expressed in.
func WithCurrency(currency string) Option { return func(e *Engine) { e.currency = currency } }

// WithFetchTimeout bounds each rule candidate fetch.
func WithFetchTimeout(d time.Duration) Option { return func(e *Engine) { e.fetchTimeout = d } }

// WithBulkConcurrency bounds how many bulk lines are evaluated at once.
func WithBulkConcurrency(n int) Option { return func(e *Engine) { e.bulkLimit = n } }

// WithClock sets the source of "now".
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// NewEngine creates a pricing engine.
func NewEngine(rules RuleSource, settings SettingResolver, opts ...Option) *Engine {
	e := &Engine{
		rules:        rules,
		settings:     settings,
		currency:     DefaultCurrency,
		fetchTimeout: DefaultFetchTimeout,
		bulkLimit:    DefaultBulkLimit,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.bulkLimit <= 0 {
		e.bulkLimit = DefaultBulkLimit
	}
	return e
}

// Currency returns the currency prices are expressed in.
func (e *Engine) Currency() string { return e.currency }

// Evaluate prices one transaction. operationType may be empty when the
// context carries it; when both are set they must agree.
func (e *Engine) Evaluate(ctx context.Context, operationType string, pctx Context) (*Result, error) {
	switch {
	case pctx.OperationType == "":
		pctx.OperationType = operationType
	case operationType != "" && operationType != pctx.OperationType:
		return nil, errdefs.Invalid("operation_type", "context says %q but %q was requested", pctx.OperationType, operationType)
	}
	if err := pctx.Validate(); err != nil {
		return nil, err
	}

	now := e.now()
	bucket := strconv.FormatInt(e.cache.Bucket(now).Unix(), 10)
	key := cache.Key(cache.KindPrice, append(pctx.cacheParts(), bucket)...)

	return cache.GetOrCompute(ctx, e.cache, key, func(ctx context.Context) (*Result, error) {
		return e.evaluate(ctx, pctx, now)
	})
}

func (e *Engine) evaluate(ctx context.Context, pctx Context, now time.Time) (*Result, error) {
	winner, err := e.match(ctx, pctx, now)
	if err != nil {
		return nil, err
	}

	zero := types.Zero(e.currency)
	res := &Result{
		OperationType: pctx.OperationType,
		Subtotal:      zero,
		TaxAmount:     zero,
		DepositAmount: zero,
		Breakdown:     []Step{},
		Currency:      zero.Currency,
		EvaluatedAt:   now.UTC(),
	}
	// Nested setting reads are covered by the price cache entry.
	p := &pipeline{engine: e, ctx: cache.WithoutCache(ctx), pctx: pctx, now: now, res: res}

	if winner != nil {
		res.Source = SourceRule
		res.RuleID = winner.ID
		res.RuleName = winner.Name
		for _, a := range winner.Actions {
			if err := p.apply(winner, a); err != nil {
				return nil, err
			}
		}
	} else {
		if err := p.fallback(); err != nil {
			return nil, err
		}
	}

	if pctx.IncludeDeposit {
		deposit, err := p.deposit()
		if err != nil {
			return nil, err
		}
		res.DepositAmount = deposit
	}

	res.TotalAmount = types.Sum(res.Currency, res.Subtotal, res.TaxAmount, res.DepositAmount)

	e.logger.Debug("price evaluated",
		slog.String("operation_type", pctx.OperationType),
		slog.String("source", string(res.Source)),
		slog.String("rule_id", res.RuleID.String()),
		slog.Int64("total", res.TotalAmount.Amount),
	)
	return res, nil
}

type ranked struct {
	rule *rule.Rule
	rank scope.Rank
}

// match returns the highest-ranked active rule whose scope and conditions
// fit pctx at now, or nil. Conditions never add to the rank.
func (e *Engine) match(ctx context.Context, pctx Context, now time.Time) (*rule.Rule, error) {
	rules, err := e.fetchRules(ctx, pctx.OperationType)
	if err != nil {
		return nil, err
	}

	start, end := e.cache.Span(now)
	sc := pctx.Scope()
	candidates := make([]ranked, 0, len(rules))
	for _, r := range rules {
		if r.ChangesWithin(start, end) {
			cache.MarkVolatile(ctx)
		}
		if !r.ValidAt(now) {
			continue
		}
		score := scope.Score(r.AppliesTo, sc)
		if score == scope.NoMatch {
			continue
		}
		candidates = append(candidates, ranked{r, scope.Rank{Specificity: score, Priority: r.Priority, ID: r.ID}})
	}
	slices.SortFunc(candidates, func(a, b ranked) int {
		switch {
		case a.rank.Outranks(b.rank):
			return -1
		case b.rank.Outranks(a.rank):
			return 1
		}
		return 0
	})

	data := pctx.data()
	for _, c := range candidates {
		ok, err := rule.Match(c.rule.Conditions, data)
		if err != nil {
			return nil, fmt.Errorf("pricing: rule %s: %w", c.rule.ID, err)
		}
		if ok {
			return c.rule, nil
		}
	}
	return nil, nil
}

func (e *Engine) fetchRules(ctx context.Context, operationType string) ([]*rule.Rule, error) {
	fctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	rules, err := e.rules.ListActiveRules(fctx, operationType)
	if err == nil {
		err = fctx.Err()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			e.logger.Warn("rule candidate fetch timed out",
				slog.String("operation_type", operationType),
				slog.Duration("timeout", e.fetchTimeout),
			)
		}
		return nil, fmt.Errorf("%w: rules for %q: %w", errdefs.ErrCandidateFetch, operationType, err)
	}
	return rules, nil
}
