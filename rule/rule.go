// Package rule defines pricing rules: conditions over a pricing context and
// the ordered actions that build a price when every condition holds.
package rule

import (
	"encoding/json"
	"time"

	"github.com/xraph/tariff/id"
	"github.com/xraph/tariff/scope"
	"github.com/xraph/tariff/types"
)

type ActionType string

const (
	ActionSetBase            ActionType = "setBase"
	ActionApplyPercentageFee ActionType = "applyPercentageFee"
	ActionApplyFlatFee       ActionType = "applyFlatFee"
	ActionApplyTax           ActionType = "applyTax"
)

type TaxType string

const (
	TaxInclusive TaxType = "inclusive"
	TaxExclusive TaxType = "exclusive"
)

// Multipliers for setBase.
const (
	PerQuantity  = "quantity"
	PerDuration  = "duration"
	PerGasAmount = "gasAmount"
)

// BaseDeposit makes applyPercentageFee take its percentage of the resolved
// deposit instead of the running subtotal.
const BaseDeposit = "deposit"

type Rule struct {
	types.Entity
	types.Window
	ID          id.RuleID     `json:"id"`
	CategoryID  id.CategoryID `json:"category_id"`
	Name        string        `json:"rule_name" validate:"required,max=255"`
	Description string        `json:"description,omitempty" validate:"max=1024"`
	Conditions  []Condition   `json:"conditions" validate:"dive"`
	Actions     []Action      `json:"actions" validate:"required,min=1,dive"`
	AppliesTo   scope.Scope   `json:"applies_to"`
	Priority    int           `json:"priority" validate:"gte=0"`
	IsActive    bool          `json:"is_active"`
}

// Action is one pricing step. Value is a decimal in display units (or a
// percentage for fee and tax steps). When ValueFrom is set the value is
// read from the setting with that key instead; the key may contain
// {operationType}, {cylinderType}, {customerTier} and {condition}
// placeholders.
type Action struct {
	Type      ActionType `json:"type" yaml:"type" validate:"required,oneof=setBase applyPercentageFee applyFlatFee applyTax"`
	Value     string     `json:"value,omitempty" yaml:"value,omitempty"`
	ValueFrom string     `json:"value_from,omitempty" yaml:"valueFrom,omitempty" validate:"max=255"`
	Per       string     `json:"per,omitempty" yaml:"per,omitempty" validate:"omitempty,oneof=quantity duration gasAmount"`
	Base      string     `json:"base,omitempty" yaml:"base,omitempty" validate:"omitempty,oneof=deposit"`
	TaxType   TaxType    `json:"tax_type,omitempty" yaml:"taxType,omitempty" validate:"omitempty,oneof=inclusive exclusive"`
	Label     string     `json:"label,omitempty" yaml:"label,omitempty" validate:"max=255"`
}

// ValidAt reports whether r is active and inside its validity window at t.
func (r *Rule) ValidAt(t time.Time) bool {
	return r.IsActive && r.Contains(t)
}

// Clone returns a deep copy of r. Condition values are copied through JSON.
func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}
	c := *r
	if r.EffectiveDate != nil {
		t := *r.EffectiveDate
		c.EffectiveDate = &t
	}
	if r.ExpiryDate != nil {
		t := *r.ExpiryDate
		c.ExpiryDate = &t
	}
	c.Actions = append([]Action(nil), r.Actions...)
	c.Conditions = make([]Condition, len(r.Conditions))
	for i, cond := range r.Conditions {
		c.Conditions[i] = Condition{Field: cond.Field, Operator: cond.Operator, Value: cloneValue(cond.Value)}
	}
	return &c
}

func cloneValue(v any) any {
	switch v.(type) {
	case nil, string, bool, float64, int, int64:
		return v
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if json.Unmarshal(b, &out) != nil {
		return v
	}
	return out
}
