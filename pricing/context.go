// Package pricing evaluates pricing rules into exact, itemized prices for
// lease, refill and swap transactions, singly or in atomic batches.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xraph/tariff/errdefs"
	"github.com/xraph/tariff/rule"
	"github.com/xraph/tariff/scope"
	"github.com/xraph/tariff/validate"
)

// Context describes one priced transaction. It is never modified by the
// engine.
type Context struct {
	OperationType  string           `json:"operation_type" yaml:"operationType" validate:"required,max=64"`
	CylinderType   string           `json:"cylinder_type" yaml:"cylinderType" validate:"required,max=64"`
	CustomerTier   string           `json:"customer_tier,omitempty" yaml:"customerTier,omitempty" validate:"max=64"`
	OutletID       string           `json:"outlet_id,omitempty" yaml:"outletId,omitempty" validate:"max=64"`
	Quantity       *int64           `json:"quantity,omitempty" yaml:"quantity,omitempty" validate:"omitempty,gt=0"`
	Duration       *int64           `json:"duration,omitempty" yaml:"duration,omitempty" validate:"omitempty,gte=0"`
	GasAmount      *decimal.Decimal `json:"gas_amount,omitempty" yaml:"gasAmount,omitempty"`
	Condition      string           `json:"condition,omitempty" yaml:"condition,omitempty" validate:"max=64"`
	IncludeDeposit bool             `json:"include_deposit,omitempty" yaml:"includeDeposit,omitempty"`
}

// Validate checks the context shape.
func (c Context) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.GasAmount != nil && c.GasAmount.IsNegative() {
		return errdefs.Invalid("gas_amount", "must not be negative")
	}
	return nil
}

// Scope returns the scope-matching view of the context.
func (c Context) Scope() scope.Context {
	return scope.Context{
		OutletID:      c.OutletID,
		CylinderType:  c.CylinderType,
		CustomerTier:  c.CustomerTier,
		OperationType: c.OperationType,
	}
}

// data is what rule conditions see. Unset optional fields are absent so a
// condition on them evaluates false.
func (c Context) data() map[string]any {
	d := map[string]any{
		rule.FieldOperationType: c.OperationType,
		rule.FieldCylinderType:  c.CylinderType,
	}
	if c.CustomerTier != "" {
		d[rule.FieldCustomerTier] = c.CustomerTier
	}
	if c.OutletID != "" {
		d[rule.FieldOutletID] = c.OutletID
	}
	if c.Condition != "" {
		d[rule.FieldCondition] = c.Condition
	}
	if c.Quantity != nil {
		d[rule.FieldQuantity] = *c.Quantity
	}
	if c.Duration != nil {
		d[rule.FieldDuration] = *c.Duration
	}
	if c.GasAmount != nil {
		d[rule.FieldGasAmount] = c.GasAmount.InexactFloat64()
	}
	return d
}

// Expand fills {operationType}, {cylinderType}, {customerTier} and
// {condition} in a setting key template with the lower-cased context
// values.
func (c Context) Expand(template string) string {
	if !strings.Contains(template, "{") {
		return template
	}
	return strings.NewReplacer(
		"{operationType}", strings.ToLower(c.OperationType),
		"{cylinderType}", strings.ToLower(c.CylinderType),
		"{customerTier}", strings.ToLower(c.CustomerTier),
		"{condition}", strings.ToLower(c.Condition),
	).Replace(template)
}

// quantity returns Quantity or 1.
func (c Context) quantity() int64 {
	if c.Quantity == nil {
		return 1
	}
	return *c.Quantity
}

func (c Context) cacheParts() []string {
	parts := []string{c.OperationType, c.CylinderType, c.CustomerTier, c.OutletID, c.Condition}
	opt := func(set bool, v string) {
		if set {
			parts = append(parts, "1", v)
		} else {
			parts = append(parts, "0", "")
		}
	}
	opt(c.Quantity != nil, ptrString(c.Quantity))
	opt(c.Duration != nil, ptrString(c.Duration))
	if c.GasAmount != nil {
		opt(true, c.GasAmount.String())
	} else {
		opt(false, "")
	}
	if c.IncludeDeposit {
		parts = append(parts, "deposit")
	} else {
		parts = append(parts, "")
	}
	return parts
}

func ptrString(p *int64) string {
	if p == nil {
		return ""
	}
	return decimal.NewFromInt(*p).String()
}
