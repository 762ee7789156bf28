package rule

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/diegoholiveira/jsonlogic/v3"
)

type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "notEquals"
	OpGreaterThan Operator = "greaterThan"
	OpLessThan    Operator = "lessThan"
	OpIn          Operator = "in"
	OpNotIn       Operator = "notIn"
)

// Context fields a condition may test.
const (
	FieldOperationType = "operationType"
	FieldCylinderType  = "cylinderType"
	FieldCustomerTier  = "customerTier"
	FieldOutletID      = "outletId"
	FieldCondition     = "condition"
	FieldQuantity      = "quantity"
	FieldDuration      = "duration"
	FieldGasAmount     = "gasAmount"
)

var numericFields = map[string]bool{
	FieldQuantity:  true,
	FieldDuration:  true,
	FieldGasAmount: true,
}

type Condition struct {
	Field    string   `json:"field" yaml:"field" validate:"required,oneof=operationType cylinderType customerTier outletId condition quantity duration gasAmount"`
	Operator Operator `json:"operator" yaml:"operator" validate:"required,oneof=equals notEquals greaterThan lessThan in notIn"`
	Value    any      `json:"value" yaml:"value"`
}

// Logic returns the JsonLogic expression for c. Equality is strict, so
// the number 5 never equals the string "5".
func (c Condition) Logic() map[string]any {
	v := map[string]any{"var": c.Field}
	switch c.Operator {
	case OpEquals:
		return map[string]any{"===": []any{v, c.Value}}
	case OpNotEquals:
		return map[string]any{"!==": []any{v, c.Value}}
	case OpGreaterThan:
		return map[string]any{">": []any{v, c.Value}}
	case OpLessThan:
		return map[string]any{"<": []any{v, c.Value}}
	case OpIn:
		return map[string]any{"in": []any{v, c.Value}}
	case OpNotIn:
		return map[string]any{"!": map[string]any{"in": []any{v, c.Value}}}
	}
	return map[string]any{"==": []any{true, false}}
}

// Compile joins conditions into a single JsonLogic document.
func Compile(conds []Condition) ([]byte, error) {
	parts := make([]any, len(conds))
	for i, c := range conds {
		parts[i] = c.Logic()
	}
	return json.Marshal(map[string]any{"and": parts})
}

// Match reports whether every condition holds for data. A condition on a
// field data does not carry is false. No conditions always match.
func Match(conds []Condition, data map[string]any) (bool, error) {
	if len(conds) == 0 {
		return true, nil
	}
	for _, c := range conds {
		if _, ok := data[c.Field]; !ok {
			return false, nil
		}
	}

	logic, err := Compile(conds)
	if err != nil {
		return false, fmt.Errorf("rule: compile conditions: %w", err)
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("rule: encode context: %w", err)
	}

	var out bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(logic), bytes.NewReader(dataJSON), &out); err != nil {
		return false, fmt.Errorf("rule: evaluate conditions: %w", err)
	}

	var result any
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &result); err != nil {
		return false, fmt.Errorf("rule: decode result %q: %w", out.String(), err)
	}
	b, ok := result.(bool)
	return ok && b, nil
}
