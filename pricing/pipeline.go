package pricing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tariff/errdefs"
	"github.com/xraph/tariff/rule"
	"github.com/xraph/tariff/setting"
	"github.com/xraph/tariff/types"
)

// pipeline applies actions for one evaluation. It is not shared between
// goroutines.
type pipeline struct {
	engine *Engine
	ctx    context.Context
	pctx   Context
	now    time.Time
	res    *Result

	depositResolved bool
	depositAmount   types.Money
}

func (p *pipeline) apply(r *rule.Rule, a rule.Action) error {
	value, err := p.actionValue(a)
	if err != nil {
		return err
	}

	res := p.res
	step := Step{Action: a.Type, Label: a.Label, Value: value, ValueFrom: a.ValueFrom}

	switch a.Type {
	case rule.ActionSetBase:
		factor, err := p.per(r, a.Per)
		if err != nil {
			return err
		}
		res.Subtotal = types.FromMajor(value.Mul(factor), res.Currency)
		step.Amount = res.Subtotal

	case rule.ActionApplyPercentageFee:
		base := res.Subtotal
		if a.Base == rule.BaseDeposit {
			if base, err = p.deposit(); err != nil {
				return err
			}
		}
		step.Amount = base.Percent(value)
		res.Subtotal = res.Subtotal.Add(step.Amount)

	case rule.ActionApplyFlatFee:
		step.Amount = types.FromMajor(value, res.Currency)
		res.Subtotal = res.Subtotal.Add(step.Amount)

	case rule.ActionApplyTax:
		p.applyTax(value, a.TaxType, &step)

	default:
		return errdefs.Invalid("actions.type", "rule %q has unknown action %q", r.Name, a.Type)
	}

	step.Subtotal = res.Subtotal
	step.TaxAmount = res.TaxAmount
	res.Breakdown = append(res.Breakdown, step)
	return nil
}

func (p *pipeline) applyTax(rate decimal.Decimal, taxType rule.TaxType, step *Step) {
	res := p.res
	res.TaxRate = rate
	res.TaxType = taxType

	if taxType == rule.TaxInclusive {
		net, included := res.Subtotal.BackOutPercent(rate)
		res.Subtotal = net
		res.TaxAmount = included
	} else {
		res.TaxAmount = res.Subtotal.Percent(rate)
	}
	step.Amount = res.TaxAmount
}

// per returns the setBase multiplier.
func (p *pipeline) per(r *rule.Rule, per string) (decimal.Decimal, error) {
	switch per {
	case "":
		return decimal.NewFromInt(1), nil
	case rule.PerQuantity:
		return decimal.NewFromInt(p.pctx.quantity()), nil
	case rule.PerDuration:
		if p.pctx.Duration == nil {
			return decimal.Zero, errdefs.Invalid("duration", "is required by rule %q", r.Name)
		}
		return decimal.NewFromInt(*p.pctx.Duration), nil
	case rule.PerGasAmount:
		if p.pctx.GasAmount == nil {
			return decimal.Zero, errdefs.Invalid("gas_amount", "is required by rule %q", r.Name)
		}
		return *p.pctx.GasAmount, nil
	}
	return decimal.Zero, errdefs.Invalid("per", "rule %q has unknown multiplier %q", r.Name, per)
}

func (p *pipeline) actionValue(a rule.Action) (decimal.Decimal, error) {
	if a.ValueFrom == "" {
		d, err := decimal.NewFromString(a.Value)
		if err != nil {
			return decimal.Zero, errdefs.Invalid("actions.value", "%q is not a decimal", a.Value)
		}
		return d, nil
	}

	key := p.pctx.Expand(a.ValueFrom)
	s, err := p.lookup(key)
	if err != nil {
		return decimal.Zero, err
	}
	if s == nil {
		return decimal.Zero, &errdefs.NoPricingError{
			OperationType: p.pctx.OperationType,
			Field:         key,
			Reason:        "setting is not configured",
		}
	}
	return number(s)
}

// deposit resolves the refundable deposit once per evaluation.
func (p *pipeline) deposit() (types.Money, error) {
	if p.depositResolved {
		return p.depositAmount, nil
	}

	s, err := p.lookup(KeyDeposit)
	if err != nil {
		return types.Money{}, err
	}
	if s == nil {
		return types.Money{}, &errdefs.NoPricingError{
			OperationType: p.pctx.OperationType,
			Field:         "deposit",
			Reason:        KeyDeposit + " is not configured",
		}
	}
	d, err := number(s)
	if err != nil {
		return types.Money{}, err
	}

	p.depositAmount = types.FromMajor(d, p.res.Currency)
	p.depositResolved = true
	return p.depositAmount, nil
}

// fallback prices from the "<operation>.base_price" setting when no rule
// matched, with tax from tax.rate and tax.type when configured.
func (p *pipeline) fallback() error {
	res := p.res
	res.Source = SourceFallback

	key := strings.ToLower(p.pctx.OperationType) + BasePriceSuffix
	s, err := p.lookup(key)
	if err != nil {
		return err
	}
	if s == nil {
		return &errdefs.NoPricingError{
			OperationType: p.pctx.OperationType,
			Reason:        "no pricing rule matched and " + key + " is not configured",
		}
	}
	price, err := number(s)
	if err != nil {
		return err
	}

	qty := decimal.NewFromInt(p.pctx.quantity())
	res.Subtotal = types.FromMajor(price.Mul(qty), res.Currency)
	res.Breakdown = append(res.Breakdown, Step{
		Action:    rule.ActionSetBase,
		Label:     "base price",
		Value:     price,
		ValueFrom: key,
		Amount:    res.Subtotal,
		Subtotal:  res.Subtotal,
		TaxAmount: res.TaxAmount,
	})

	rateSetting, err := p.lookup(KeyTaxRate)
	if err != nil || rateSetting == nil {
		return err
	}
	rate, err := number(rateSetting)
	if err != nil {
		return err
	}

	taxType := rule.TaxExclusive
	typeSetting, err := p.lookup(KeyTaxType)
	if err != nil {
		return err
	}
	if typeSetting != nil {
		switch t := rule.TaxType(strings.ToLower(strings.TrimSpace(typeSetting.Value))); t {
		case rule.TaxInclusive, rule.TaxExclusive:
			taxType = t
		default:
			return errdefs.Invalid(KeyTaxType, "setting %s has unknown tax type %q", typeSetting.ID, typeSetting.Value)
		}
	}

	step := Step{Action: rule.ActionApplyTax, Label: "tax", Value: rate, ValueFrom: KeyTaxRate}
	p.applyTax(rate, taxType, &step)
	step.Subtotal = res.Subtotal
	step.TaxAmount = res.TaxAmount
	res.Breakdown = append(res.Breakdown, step)
	return nil
}

// lookup resolves key with the request scope. A missing setting is
// (nil, nil).
func (p *pipeline) lookup(key string) (*setting.Setting, error) {
	s, err := p.engine.settings.ResolveAt(p.ctx, key, p.pctx.Scope(), p.now)
	if errors.Is(err, errdefs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// number reads a setting as a decimal. NUMBER settings are parsed through
// their typed value; other types are accepted when their text is numeric.
func number(s *setting.Setting) (decimal.Decimal, error) {
	if v, err := s.Typed(); err == nil {
		if n, ok := v.(setting.NumberValue); ok {
			return n.Decimal, nil
		}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s.Value))
	if err != nil {
		return decimal.Zero, errdefs.Invalid(s.Key, "setting %s value %q is not a number", s.ID, s.Value)
	}
	return d, nil
}
