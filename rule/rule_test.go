package rule

import (
	"errors"
	"testing"

	"github.com/xraph/tariff/errdefs"
	"github.com/xraph/tariff/id"
)

func TestMatch(t *testing.T) {
	data := map[string]any{
		FieldOperationType: "SWAP",
		FieldCylinderType:  "15kg",
		FieldCondition:     "DAMAGED",
		FieldOutletID:      "5",
		FieldQuantity:      float64(3),
		FieldGasAmount:     12.5,
	}

	tests := []struct {
		name  string
		conds []Condition
		want  bool
	}{
		{"no conditions", nil, true},
		{"equals", []Condition{{FieldCondition, OpEquals, "DAMAGED"}}, true},
		{"equals miss", []Condition{{FieldCondition, OpEquals, "GOOD"}}, false},
		{"not equals", []Condition{{FieldCylinderType, OpNotEquals, "50kg"}}, true},
		{"equals is strict on type", []Condition{{FieldOutletID, OpEquals, 5}}, false},
		{"not equals is strict on type", []Condition{{FieldOutletID, OpNotEquals, 5}}, true},
		{"equals number", []Condition{{FieldQuantity, OpEquals, 3}}, true},
		{"greater than", []Condition{{FieldQuantity, OpGreaterThan, 2}}, true},
		{"greater than equal value", []Condition{{FieldQuantity, OpGreaterThan, 3}}, false},
		{"less than decimal", []Condition{{FieldGasAmount, OpLessThan, 12.6}}, true},
		{"in", []Condition{{FieldCylinderType, OpIn, []any{"12.5kg", "15kg"}}}, true},
		{"in miss", []Condition{{FieldCylinderType, OpIn, []any{"50kg"}}}, false},
		{"not in", []Condition{{FieldCylinderType, OpNotIn, []any{"50kg"}}}, true},
		{"not in miss", []Condition{{FieldCylinderType, OpNotIn, []any{"15kg"}}}, false},
		{"and all hold", []Condition{
			{FieldOperationType, OpEquals, "SWAP"},
			{FieldCondition, OpEquals, "DAMAGED"},
		}, true},
		{"and one fails", []Condition{
			{FieldOperationType, OpEquals, "SWAP"},
			{FieldCondition, OpEquals, "GOOD"},
		}, false},
		{"missing field is false", []Condition{{FieldCustomerTier, OpNotEquals, "GOLD"}}, false},
		{"missing numeric field is false", []Condition{{FieldDuration, OpLessThan, 100}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Match(tt.conds, data)
			if err != nil {
				t.Fatalf("Match: %v", err)
			}
			if got != tt.want {
				t.Errorf("Match = %v, want %v", got, tt.want)
			}
		})
	}
}

func validRule() *Rule {
	return &Rule{
		ID:         id.NewRuleID(),
		CategoryID: id.NewCategoryID(),
		Name:       "damaged swap",
		Conditions: []Condition{{FieldCondition, OpEquals, "DAMAGED"}},
		Actions: []Action{
			{Type: ActionSetBase, ValueFrom: "swap.base_price"},
			{Type: ActionApplyPercentageFee, Value: "25", Base: BaseDeposit},
			{Type: ActionApplyTax, Value: "7.5", TaxType: TaxExclusive},
		},
		IsActive: true,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(r *Rule)
		field string
	}{
		{"valid", func(*Rule) {}, ""},
		{"missing name", func(r *Rule) { r.Name = "" }, "rule_name"},
		{"negative priority", func(r *Rule) { r.Priority = -1 }, "priority"},
		{"no actions", func(r *Rule) { r.Actions = nil }, "actions"},
		{"missing category", func(r *Rule) { r.CategoryID = id.ID{} }, "category_id"},
		{"unknown operator", func(r *Rule) { r.Conditions[0].Operator = "like" }, "conditions[0].operator"},
		{"unknown field", func(r *Rule) { r.Conditions[0].Field = "color" }, "conditions[0].field"},
		{"in needs list", func(r *Rule) { r.Conditions[0].Operator = OpIn }, "conditions[0].value"},
		{"equals rejects list", func(r *Rule) { r.Conditions[0].Value = []any{"A"} }, "conditions[0].value"},
		{"greater than on text field", func(r *Rule) {
			r.Conditions[0] = Condition{FieldCondition, OpGreaterThan, 1}
		}, "conditions[0].operator"},
		{"greater than needs number", func(r *Rule) {
			r.Conditions[0] = Condition{FieldQuantity, OpGreaterThan, "1"}
		}, "conditions[0].value"},
		{"nil condition value", func(r *Rule) { r.Conditions[0].Value = nil }, "conditions[0].value"},
		{"unknown action", func(r *Rule) { r.Actions[0].Type = "discount" }, "actions[0].type"},
		{"action value and value_from", func(r *Rule) { r.Actions[0].Value = "10" }, "actions[0].value"},
		{"action without value", func(r *Rule) { r.Actions[1].Value = "" }, "actions[1].value"},
		{"bad decimal", func(r *Rule) { r.Actions[1].Value = "ten" }, "actions[1].value"},
		{"per on fee", func(r *Rule) { r.Actions[1].Per = PerQuantity }, "actions[1].per"},
		{"base on setBase", func(r *Rule) { r.Actions[0].Base = BaseDeposit }, "actions[0].base"},
		{"tax without type", func(r *Rule) { r.Actions[2].TaxType = "" }, "actions[2].tax_type"},
		{"tax not last", func(r *Rule) {
			r.Actions = append(r.Actions, Action{Type: ActionApplyFlatFee, Value: "100"})
		}, "actions[3].type"},
		{"tax twice", func(r *Rule) {
			r.Actions = append(r.Actions, Action{Type: ActionApplyTax, Value: "1", TaxType: TaxInclusive})
		}, "actions[3].type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRule()
			tt.mut(r)
			err := Validate(r)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *errdefs.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q (%s)", ve.Field, tt.field, ve.Message)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := validRule()
	r.Conditions[0] = Condition{FieldCylinderType, OpIn, []any{"15kg"}}

	c := r.Clone()
	c.Actions[0].ValueFrom = "other"
	c.Conditions[0].Value.([]any)[0] = "50kg"

	if r.Actions[0].ValueFrom != "swap.base_price" {
		t.Error("actions shared with clone")
	}
	if r.Conditions[0].Value.([]any)[0] != "15kg" {
		t.Error("condition values shared with clone")
	}
}
