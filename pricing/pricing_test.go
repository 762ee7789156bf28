package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tariff/errdefs"
	"github.com/xraph/tariff/id"
	"github.com/xraph/tariff/resolve"
	"github.com/xraph/tariff/rule"
	"github.com/xraph/tariff/scope"
	"github.com/xraph/tariff/setting"
	"github.com/xraph/tariff/store/memory"
	"github.com/xraph/tariff/types"
)

type fixture struct {
	t      *testing.T
	store  *memory.Store
	engine *Engine
	cat    id.CategoryID
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	s := memory.New()
	return &fixture{
		t:      t,
		store:  s,
		engine: NewEngine(s, resolve.New(s), opts...),
		cat:    id.NewCategoryID(),
	}
}

func (f *fixture) setting(key, value string, sc scope.Scope) {
	f.t.Helper()
	st := &setting.Setting{
		ID:         id.NewSettingID(),
		CategoryID: f.cat,
		Key:        key,
		Value:      value,
		DataType:   setting.TypeNumber,
		Scope:      sc,
		Priority:   1,
		IsActive:   true,
	}
	if err := f.store.CreateSetting(context.Background(), st); err != nil {
		f.t.Fatal(err)
	}
}

func (f *fixture) rule(name string, appliesTo scope.Scope, priority int, conds []rule.Condition, actions ...rule.Action) *rule.Rule {
	f.t.Helper()
	r := &rule.Rule{
		ID:         id.NewRuleID(),
		CategoryID: f.cat,
		Name:       name,
		Conditions: conds,
		Actions:    actions,
		AppliesTo:  appliesTo,
		Priority:   priority,
		IsActive:   true,
	}
	if err := rule.Validate(r); err != nil {
		f.t.Fatalf("rule %s: %v", name, err)
	}
	if err := f.store.CreateRule(context.Background(), r); err != nil {
		f.t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	return r
}

func (f *fixture) evaluate(op string, pctx Context) *Result {
	f.t.Helper()
	res, err := f.engine.Evaluate(context.Background(), op, pctx)
	if err != nil {
		f.t.Fatalf("Evaluate: %v", err)
	}
	return res
}

func ptr[T any](v T) *T { return &v }

func base(v string) rule.Action {
	return rule.Action{Type: rule.ActionSetBase, Value: v}
}

func TestSwapConditionFeeOnDeposit(t *testing.T) {
	f := newFixture(t)
	f.setting("deposit.amount", "6000", scope.Scope{})
	f.setting("swap.fee.damaged", "25", scope.Scope{})
	f.rule("swap condition fee", scope.Scope{OperationType: "SWAP"}, 1, nil,
		rule.Action{Type: rule.ActionApplyPercentageFee, ValueFrom: "swap.fee.{condition}", Base: rule.BaseDeposit, Label: "swap fee"},
	)

	res := f.evaluate("SWAP", Context{OperationType: "SWAP", CylinderType: "15kg", Condition: "DAMAGED"})

	if len(res.Breakdown) != 1 {
		t.Fatalf("breakdown = %d steps", len(res.Breakdown))
	}
	fee := res.Breakdown[0]
	if !fee.Amount.Equal(types.NGN(150000)) {
		t.Errorf("swap fee = %v, want ₦1500.00", fee.Amount)
	}
	if fee.ValueFrom != "swap.fee.{condition}" || !fee.Value.Equal(decimal.NewFromInt(25)) {
		t.Errorf("unexpected step %+v", fee)
	}
	if !res.TotalAmount.Equal(types.NGN(150000)) || !res.DepositAmount.IsZero() {
		t.Errorf("deposit is not charged unless requested: total=%v deposit=%v", res.TotalAmount, res.DepositAmount)
	}
}

func TestTierSpecificRuleWins(t *testing.T) {
	f := newFixture(t)
	lease := scope.Scope{OperationType: "LEASE", CylinderType: "15kg"}

	f.rule("generic lease", lease, 5, nil, base("5000"))
	f.rule("premium lease", scope.Scope{OperationType: "LEASE", CylinderType: "15kg", CustomerTier: "PREMIUM"}, 1,
		[]rule.Condition{{Field: rule.FieldCustomerTier, Operator: rule.OpEquals, Value: "PREMIUM"}},
		base("4500"),
	)

	res := f.evaluate("LEASE", Context{OperationType: "LEASE", CylinderType: "15kg", CustomerTier: "PREMIUM"})
	if res.RuleName != "premium lease" || !res.Subtotal.Equal(types.NGN(450000)) {
		t.Errorf("got rule %q subtotal %v", res.RuleName, res.Subtotal)
	}
}

func TestConditionDoesNotAddSpecificity(t *testing.T) {
	f := newFixture(t)
	lease := scope.Scope{OperationType: "LEASE", CylinderType: "15kg"}

	f.rule("conditioned", lease, 1,
		[]rule.Condition{{Field: rule.FieldCustomerTier, Operator: rule.OpEquals, Value: "PREMIUM"}},
		base("4500"),
	)
	f.rule("generic higher priority", lease, 2, nil, base("5000"))

	res := f.evaluate("LEASE", Context{OperationType: "LEASE", CylinderType: "15kg", CustomerTier: "PREMIUM"})
	if res.RuleName != "generic higher priority" {
		t.Errorf("with equal appliesTo the higher priority must win, got %q", res.RuleName)
	}
}

func TestFirstMatchWinsSkipsFailedConditions(t *testing.T) {
	f := newFixture(t)
	refill := scope.Scope{OperationType: "REFILL"}

	f.rule("bulk refill", refill, 9,
		[]rule.Condition{{Field: rule.FieldQuantity, Operator: rule.OpGreaterThan, Value: 10}},
		base("900"),
	)
	f.rule("standard refill", refill, 1, nil, base("1000"))

	res := f.evaluate("REFILL", Context{OperationType: "REFILL", CylinderType: "12.5kg", Quantity: ptr(int64(3))})
	if res.RuleName != "standard refill" || len(res.Breakdown) != 1 {
		t.Errorf("got %q with %d steps; rules must not stack", res.RuleName, len(res.Breakdown))
	}

	res = f.evaluate("REFILL", Context{OperationType: "REFILL", CylinderType: "12.5kg", Quantity: ptr(int64(11))})
	if res.RuleName != "bulk refill" {
		t.Errorf("got %q", res.RuleName)
	}
}

func TestActionPipeline(t *testing.T) {
	f := newFixture(t)
	f.rule("refill per kg", scope.Scope{OperationType: "REFILL"}, 1, nil,
		rule.Action{Type: rule.ActionSetBase, Value: "1000.50", Per: rule.PerGasAmount},
		rule.Action{Type: rule.ActionApplyFlatFee, Value: "250", Label: "service"},
		rule.Action{Type: rule.ActionApplyPercentageFee, Value: "2.5"},
		rule.Action{Type: rule.ActionApplyTax, Value: "7.5", TaxType: rule.TaxExclusive},
	)

	gas := decimal.RequireFromString("12.5")
	res := f.evaluate("REFILL", Context{OperationType: "REFILL", CylinderType: "12.5kg", GasAmount: &gas})

	// 1000.50 * 12.5 = 12506.25 -> 1250625 kobo
	// + 25000 flat = 1275625
	// + 2.5% = 31890.625 -> 31891 => 1307516
	// tax 7.5% = 98063.7 -> 98064
	wantSteps := []int64{1250625, 1275625, 1307516, 1307516}
	for i, w := range wantSteps {
		if res.Breakdown[i].Subtotal.Amount != w {
			t.Errorf("step %d subtotal = %d, want %d", i, res.Breakdown[i].Subtotal.Amount, w)
		}
	}
	if res.TaxAmount.Amount != 98064 {
		t.Errorf("tax = %d, want 98064", res.TaxAmount.Amount)
	}
	if res.TotalAmount.Amount != 1307516+98064 {
		t.Errorf("total = %d", res.TotalAmount.Amount)
	}
	if res.TaxType != rule.TaxExclusive || !res.TaxRate.Equal(decimal.RequireFromString("7.5")) {
		t.Errorf("tax metadata %s %s", res.TaxType, res.TaxRate)
	}
}

func TestInclusiveTaxRoundTrip(t *testing.T) {
	for _, price := range []string{"107.50", "1", "999.99", "6000", "0.03"} {
		t.Run(price, func(t *testing.T) {
			f := newFixture(t)
			f.rule("inclusive", scope.Scope{OperationType: "LEASE"}, 1, nil,
				base(price),
				rule.Action{Type: rule.ActionApplyTax, Value: "7.5", TaxType: rule.TaxInclusive},
			)
			res := f.evaluate("LEASE", Context{OperationType: "LEASE", CylinderType: "15kg"})

			gross := types.FromMajor(decimal.RequireFromString(price), "ngn")
			if !res.TotalAmount.Equal(gross) {
				t.Fatalf("inclusive tax must not change the total: %v vs %v", res.TotalAmount, gross)
			}
			if res.Subtotal.Add(res.TaxAmount) != res.TotalAmount {
				t.Fatalf("subtotal + tax != total")
			}
			total := decimal.NewFromInt(res.TotalAmount.Amount)
			exact := total.Sub(total.Div(decimal.RequireFromString("1.075")))
			if exact.Sub(decimal.NewFromInt(res.TaxAmount.Amount)).Abs().GreaterThan(decimal.NewFromInt(1)) {
				t.Errorf("tax %d deviates from %s by more than one minor unit", res.TaxAmount.Amount, exact)
			}
		})
	}
}

func TestSetBaseMultipliers(t *testing.T) {
	f := newFixture(t)
	f.rule("lease per day", scope.Scope{OperationType: "LEASE"}, 1, nil,
		rule.Action{Type: rule.ActionSetBase, Value: "150", Per: rule.PerDuration},
	)
	f.rule("swap per cylinder", scope.Scope{OperationType: "SWAP"}, 1, nil,
		rule.Action{Type: rule.ActionSetBase, Value: "200", Per: rule.PerQuantity},
	)

	res := f.evaluate("LEASE", Context{OperationType: "LEASE", CylinderType: "15kg", Duration: ptr(int64(30))})
	if !res.Subtotal.Equal(types.NGN(450000)) {
		t.Errorf("duration: got %v", res.Subtotal)
	}

	_, err := f.engine.Evaluate(context.Background(), "LEASE", Context{OperationType: "LEASE", CylinderType: "15kg"})
	var ve *errdefs.ValidationError
	if !errors.As(err, &ve) || ve.Field != "duration" {
		t.Errorf("missing duration: got %v", err)
	}

	res = f.evaluate("SWAP", Context{OperationType: "SWAP", CylinderType: "15kg"})
	if !res.Subtotal.Equal(types.NGN(20000)) {
		t.Errorf("quantity defaults to 1: got %v", res.Subtotal)
	}
}

func TestDepositIsNeverTaxed(t *testing.T) {
	f := newFixture(t)
	f.setting("deposit.amount", "6000", scope.Scope{})
	f.setting("deposit.amount", "8000", scope.Scope{CylinderType: "25kg"})
	f.rule("lease", scope.Scope{OperationType: "LEASE"}, 1, nil,
		base("1000"),
		rule.Action{Type: rule.ActionApplyTax, Value: "10", TaxType: rule.TaxExclusive},
	)

	res := f.evaluate("LEASE", Context{OperationType: "LEASE", CylinderType: "25kg", IncludeDeposit: true})
	if !res.DepositAmount.Equal(types.NGN(800000)) {
		t.Errorf("deposit resolves with the request scope: got %v", res.DepositAmount)
	}
	if !res.TaxAmount.Equal(types.NGN(10000)) {
		t.Errorf("tax = %v, want 10%% of subtotal only", res.TaxAmount)
	}
	if !res.TotalAmount.Equal(types.NGN(100000 + 10000 + 800000)) {
		t.Errorf("total = %v", res.TotalAmount)
	}
}

func TestMissingDeposit(t *testing.T) {
	f := newFixture(t)
	f.rule("lease", scope.Scope{OperationType: "LEASE"}, 1, nil, base("1000"))

	_, err := f.engine.Evaluate(context.Background(), "LEASE", Context{OperationType: "LEASE", CylinderType: "15kg", IncludeDeposit: true})
	var npe *errdefs.NoPricingError
	if !errors.As(err, &npe) || npe.Field != "deposit" {
		t.Fatalf("got %v", err)
	}
	if !errors.Is(err, errdefs.ErrNoPricingConfigured) {
		t.Error("expected ErrNoPricingConfigured")
	}
}

func TestFallback(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Evaluate(context.Background(), "REFILL", Context{OperationType: "REFILL", CylinderType: "12.5kg"})
	if !errors.Is(err, errdefs.ErrNoPricingConfigured) {
		t.Fatalf("no rule and no fallback: got %v", err)
	}

	f.setting("refill.base_price", "1200", scope.Scope{})
	res := f.evaluate("REFILL", Context{OperationType: "REFILL", CylinderType: "12.5kg", Quantity: ptr(int64(2))})
	if res.Source != SourceFallback || !res.Subtotal.Equal(types.NGN(240000)) || !res.TaxAmount.IsZero() {
		t.Fatalf("fallback without tax: %+v", res)
	}

	f.setting("tax.rate", "7.5", scope.Scope{})
	f.setting("tax.type", "inclusive", scope.Scope{})
	// tax.type is text; the fixture stores it as NUMBER, so rewrite it.
	all, _ := f.store.ListActiveSettings(context.Background(), "tax.type")
	all[0].DataType = setting.TypeString
	_ = f.store.UpdateSetting(context.Background(), all[0])

	res = f.evaluate("REFILL", Context{OperationType: "REFILL", CylinderType: "12.5kg", Quantity: ptr(int64(2))})
	if !res.TotalAmount.Equal(types.NGN(240000)) || res.TaxType != rule.TaxInclusive {
		t.Errorf("inclusive fallback tax: total=%v type=%s", res.TotalAmount, res.TaxType)
	}
	if res.Subtotal.Add(res.TaxAmount) != res.TotalAmount {
		t.Error("subtotal + tax != total")
	}
}

func TestMissingValueFromSetting(t *testing.T) {
	f := newFixture(t)
	f.setting("deposit.amount", "6000", scope.Scope{})
	f.rule("swap", scope.Scope{OperationType: "SWAP"}, 1, nil,
		rule.Action{Type: rule.ActionApplyPercentageFee, ValueFrom: "swap.fee.{condition}", Base: rule.BaseDeposit},
	)

	_, err := f.engine.Evaluate(context.Background(), "SWAP", Context{OperationType: "SWAP", CylinderType: "15kg", Condition: "GOOD"})
	var npe *errdefs.NoPricingError
	if !errors.As(err, &npe) || npe.Field != "swap.fee.good" {
		t.Fatalf("got %v", err)
	}
}

func TestExpiredRuleIsIgnored(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, WithClock(func() time.Time { return now }))

	r := f.rule("promo", scope.Scope{OperationType: "LEASE"}, 9, nil, base("1"))
	r.ExpiryDate = &now
	_ = f.store.UpdateRule(context.Background(), r)
	f.rule("standard", scope.Scope{OperationType: "LEASE"}, 1, nil, base("5000"))

	res := f.evaluate("LEASE", Context{OperationType: "LEASE", CylinderType: "15kg"})
	if res.RuleName != "standard" {
		t.Errorf("got %q", res.RuleName)
	}
}

func TestEvaluateValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		op    string
		pctx  Context
		field string
	}{
		{"missing cylinder", "LEASE", Context{OperationType: "LEASE"}, "cylinder_type"},
		{"missing operation", "", Context{CylinderType: "15kg"}, "operation_type"},
		{"operation mismatch", "SWAP", Context{OperationType: "LEASE", CylinderType: "15kg"}, "operation_type"},
		{"zero quantity", "LEASE", Context{OperationType: "LEASE", CylinderType: "15kg", Quantity: ptr(int64(0))}, "quantity"},
		{"negative gas", "REFILL", Context{OperationType: "REFILL", CylinderType: "15kg", GasAmount: ptr(decimal.NewFromInt(-1))}, "gas_amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Evaluate(context.Background(), tt.op, tt.pctx)
			var ve *errdefs.ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Errorf("got %v, want ValidationError on %s", err, tt.field)
			}
		})
	}
}

type failingRules struct{}

func (failingRules) ListActiveRules(context.Context, string) ([]*rule.Rule, error) {
	return nil, errors.New("connection reset")
}

func TestRuleFetchFailure(t *testing.T) {
	e := NewEngine(failingRules{}, resolve.New(memory.New()))
	_, err := e.Evaluate(context.Background(), "LEASE", Context{OperationType: "LEASE", CylinderType: "15kg"})
	if !errors.Is(err, errdefs.ErrCandidateFetch) {
		t.Errorf("got %v", err)
	}
}

func TestEvaluateBulk(t *testing.T) {
	f := newFixture(t, WithBulkConcurrency(2))
	f.setting("deposit.amount", "6000", scope.Scope{})
	f.rule("lease", scope.Scope{OperationType: "LEASE"}, 1, nil,
		base("1000"),
		rule.Action{Type: rule.ActionApplyTax, Value: "10", TaxType: rule.TaxExclusive},
	)
	f.rule("refill", scope.Scope{OperationType: "REFILL"}, 1, nil,
		rule.Action{Type: rule.ActionSetBase, Value: "500", Per: rule.PerQuantity},
	)

	lines := []Context{
		{OperationType: "LEASE", CylinderType: "15kg", IncludeDeposit: true},
		{OperationType: "REFILL", CylinderType: "12.5kg", Quantity: ptr(int64(3))},
		{OperationType: "LEASE", CylinderType: "15kg"},
	}
	res, err := f.engine.EvaluateBulk(context.Background(), lines)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Lines) != 3 || res.Lines[1].RuleName != "refill" {
		t.Fatalf("lines out of order: %+v", res.Lines)
	}
	if !res.TotalSubtotal.Equal(types.NGN(100000 + 150000 + 100000)) {
		t.Errorf("TotalSubtotal = %v", res.TotalSubtotal)
	}
	if !res.TotalTax.Equal(types.NGN(20000)) {
		t.Errorf("TotalTax = %v", res.TotalTax)
	}
	if !res.TotalDeposit.Equal(types.NGN(600000)) {
		t.Errorf("TotalDeposit = %v", res.TotalDeposit)
	}
	if !res.TotalAmount.Equal(types.NGN(350000 + 20000 + 600000)) {
		t.Errorf("TotalAmount = %v", res.TotalAmount)
	}
}

func TestEvaluateBulkIsAtomic(t *testing.T) {
	f := newFixture(t)
	f.rule("lease", scope.Scope{OperationType: "LEASE"}, 1, nil, base("1000"))

	lines := make([]Context, 5)
	for i := range lines {
		lines[i] = Context{OperationType: "LEASE", CylinderType: "15kg"}
	}
	lines[2] = Context{OperationType: "SWAP", CylinderType: "15kg"}

	res, err := f.engine.EvaluateBulk(context.Background(), lines)
	if res != nil {
		t.Fatalf("partial results returned: %+v", res)
	}
	var be *errdefs.BulkError
	if !errors.As(err, &be) || be.Line != 3 {
		t.Fatalf("got %v, want BulkError on line 3", err)
	}
	if !errors.Is(err, errdefs.ErrNoPricingConfigured) {
		t.Errorf("BulkError must wrap the line's cause: %v", err)
	}

	if _, err := f.engine.EvaluateBulk(context.Background(), nil); !errors.Is(err, errdefs.ErrValidation) {
		t.Errorf("empty bulk: got %v", err)
	}
}

func TestContextExpand(t *testing.T) {
	c := Context{OperationType: "SWAP", CylinderType: "15kg", CustomerTier: "GOLD", Condition: "DAMAGED"}
	got := c.Expand("{operationType}.fee.{cylinderType}.{customerTier}.{condition}")
	if got != "swap.fee.15kg.gold.damaged" {
		t.Errorf("got %s", got)
	}
	if c.Expand("plain.key") != "plain.key" {
		t.Error("plain keys pass through")
	}
}
