package rule

import (
	"fmt"
	"reflect"

	"github.com/shopspring/decimal"

	"github.com/xraph/tariff/errdefs"
	"github.com/xraph/tariff/validate"
)

// Validate checks a rule's shape. Category existence is checked by the
// engine.
func Validate(r *Rule) error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.CategoryID.IsNil() {
		return errdefs.Invalid("category_id", "is required")
	}
	if !r.Window.Valid() {
		return errdefs.Invalid("expiry_date", "must be after effective_date")
	}

	for i, c := range r.Conditions {
		if err := validateCondition(c); err != nil {
			err.Field = fmt.Sprintf("conditions[%d].%s", i, err.Field)
			return err
		}
	}

	taxSeen := false
	for i, a := range r.Actions {
		if taxSeen {
			return errdefs.Invalid(fmt.Sprintf("actions[%d].type", i), "applyTax must be the last action")
		}
		if err := validateAction(a); err != nil {
			err.Field = fmt.Sprintf("actions[%d].%s", i, err.Field)
			return err
		}
		taxSeen = a.Type == ActionApplyTax
	}
	return nil
}

func validateCondition(c Condition) *errdefs.ValidationError {
	if c.Value == nil {
		return errdefs.Invalid("value", "is required")
	}

	switch c.Operator {
	case OpIn, OpNotIn:
		if !isList(c.Value) {
			return errdefs.Invalid("value", "must be a list for operator %s", c.Operator)
		}
	case OpGreaterThan, OpLessThan:
		if !numericFields[c.Field] {
			return errdefs.Invalid("operator", "%s only applies to quantity, duration or gasAmount", c.Operator)
		}
		if !isNumber(c.Value) {
			return errdefs.Invalid("value", "must be a number for operator %s", c.Operator)
		}
	default:
		if isList(c.Value) {
			return errdefs.Invalid("value", "must be a scalar for operator %s", c.Operator)
		}
	}
	return nil
}

func validateAction(a Action) *errdefs.ValidationError {
	switch {
	case a.Value == "" && a.ValueFrom == "":
		return errdefs.Invalid("value", "value or value_from is required")
	case a.Value != "" && a.ValueFrom != "":
		return errdefs.Invalid("value", "value and value_from are mutually exclusive")
	}
	if a.Value != "" {
		if _, err := decimal.NewFromString(a.Value); err != nil {
			return errdefs.Invalid("value", "must be a decimal number")
		}
	}

	if a.Per != "" && a.Type != ActionSetBase {
		return errdefs.Invalid("per", "only applies to setBase")
	}
	if a.Base != "" && a.Type != ActionApplyPercentageFee {
		return errdefs.Invalid("base", "only applies to applyPercentageFee")
	}
	if a.Type == ActionApplyTax && a.TaxType == "" {
		return errdefs.Invalid("tax_type", "is required for applyTax")
	}
	if a.TaxType != "" && a.Type != ActionApplyTax {
		return errdefs.Invalid("tax_type", "only applies to applyTax")
	}
	return nil
}

func isList(v any) bool {
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func isNumber(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
