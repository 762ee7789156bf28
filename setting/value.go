package setting

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Value is the typed form of a setting's text value. It is one of
// StringValue, NumberValue, BoolValue, JSONValue or ArrayValue.
type Value interface {
	DataType() DataType
	String() string
	isValue()
}

type StringValue string

func (StringValue) DataType() DataType { return TypeString }
func (v StringValue) String() string   { return string(v) }
func (StringValue) isValue()           {}

// NumberValue holds an exact decimal.
type NumberValue struct {
	decimal.Decimal
}

func (NumberValue) DataType() DataType { return TypeNumber }
func (NumberValue) isValue()           {}

type BoolValue bool

func (BoolValue) DataType() DataType { return TypeBoolean }
func (v BoolValue) String() string   { return strconv.FormatBool(bool(v)) }
func (BoolValue) isValue()           {}

// JSONValue holds a validated JSON document.
type JSONValue struct {
	Raw json.RawMessage
}

func (JSONValue) DataType() DataType { return TypeJSON }
func (v JSONValue) String() string   { return string(v.Raw) }
func (JSONValue) isValue()           {}

// Decode unmarshals the document into out.
func (v JSONValue) Decode(out any) error {
	return json.Unmarshal(v.Raw, out)
}

// ArrayValue holds the elements of a JSON array.
type ArrayValue struct {
	Items []json.RawMessage
}

func (ArrayValue) DataType() DataType { return TypeArray }
func (ArrayValue) isValue()           {}

func (v ArrayValue) String() string {
	b, _ := json.Marshal(v.Items)
	return string(b)
}

// Strings returns the elements that are JSON strings, in order.
func (v ArrayValue) Strings() []string {
	out := make([]string, 0, len(v.Items))
	for _, item := range v.Items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			out = append(out, s)
		}
	}
	return out
}

// Parse interprets raw according to dt.
func Parse(dt DataType, raw string) (Value, error) {
	switch dt {
	case TypeString:
		return StringValue(raw), nil

	case TypeNumber:
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", raw)
		}
		return NumberValue{d}, nil

	case TypeBoolean:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		}
		return nil, fmt.Errorf("not a boolean: %q", raw)

	case TypeJSON:
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("not valid JSON")
		}
		return JSONValue{Raw: json.RawMessage(raw)}, nil

	case TypeArray:
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, fmt.Errorf("not a JSON array")
		}
		return ArrayValue{Items: items}, nil
	}

	return nil, fmt.Errorf("unknown data type %q", dt)
}
