package setting

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tariff/errdefs"
	"github.com/xraph/tariff/id"
	"github.com/xraph/tariff/scope"
	"github.com/xraph/tariff/types"
)

func validSetting() *Setting {
	return &Setting{
		ID:         id.NewSettingID(),
		CategoryID: id.NewCategoryID(),
		Key:        "lease.base_price",
		Value:      "6000",
		DataType:   TypeNumber,
		Priority:   1,
		IsActive:   true,
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		dt      DataType
		raw     string
		wantErr bool
		check   func(t *testing.T, v Value)
	}{
		{"string", TypeString, "hello", false, func(t *testing.T, v Value) {
			if v.(StringValue) != "hello" {
				t.Errorf("got %v", v)
			}
		}},
		{"number", TypeNumber, " 12.345 ", false, func(t *testing.T, v Value) {
			if !v.(NumberValue).Equal(decimal.RequireFromString("12.345")) {
				t.Errorf("got %v", v)
			}
		}},
		{"bad number", TypeNumber, "twelve", true, nil},
		{"boolean", TypeBoolean, "TRUE", false, func(t *testing.T, v Value) {
			if !bool(v.(BoolValue)) {
				t.Errorf("got %v", v)
			}
		}},
		{"bad boolean", TypeBoolean, "yes", true, nil},
		{"json", TypeJSON, `{"a":1}`, false, func(t *testing.T, v Value) {
			var out map[string]int
			if err := v.(JSONValue).Decode(&out); err != nil || out["a"] != 1 {
				t.Errorf("decode: %v %v", out, err)
			}
		}},
		{"bad json", TypeJSON, `{a:1}`, true, nil},
		{"array", TypeArray, `["EMPTY","FULL",3]`, false, func(t *testing.T, v Value) {
			arr := v.(ArrayValue)
			if len(arr.Items) != 3 {
				t.Fatalf("items = %d", len(arr.Items))
			}
			if got := arr.Strings(); len(got) != 2 || got[1] != "FULL" {
				t.Errorf("strings = %v", got)
			}
		}},
		{"object is not array", TypeArray, `{"a":1}`, true, nil},
		{"unknown type", DataType("DATE"), "x", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse(tt.dt, tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", v)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if v.DataType() != tt.dt {
				t.Errorf("DataType = %s, want %s", v.DataType(), tt.dt)
			}
			tt.check(t, v)
		})
	}
}

func TestValidate(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Hour)

	tests := []struct {
		name  string
		mut   func(s *Setting)
		field string
	}{
		{"valid", func(*Setting) {}, ""},
		{"missing key", func(s *Setting) { s.Key = "" }, "setting_key"},
		{"missing category", func(s *Setting) { s.CategoryID = id.ID{} }, "category_id"},
		{"bad data type", func(s *Setting) { s.DataType = "DATE" }, "data_type"},
		{"priority too low", func(s *Setting) { s.Priority = 0 }, "priority"},
		{"priority too high", func(s *Setting) { s.Priority = 6 }, "priority"},
		{"value does not parse", func(s *Setting) { s.Value = "abc" }, "setting_value"},
		{"expiry before effective", func(s *Setting) {
			s.EffectiveDate, s.ExpiryDate = &later, &now
		}, "expiry_date"},
		{"scope value too long", func(s *Setting) {
			s.Scope = scope.Scope{OutletID: string(make([]byte, 65))}
		}, "scope.outlet_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSetting()
			tt.mut(s)
			err := Validate(s)
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
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
			if !errors.Is(err, errdefs.ErrValidation) {
				t.Error("expected error to unwrap to ErrValidation")
			}
		})
	}
}

func TestValidAt(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	exp := base.Add(24 * time.Hour)

	s := validSetting()
	s.Window = types.Window{EffectiveDate: &base, ExpiryDate: &exp}

	if !s.ValidAt(base) {
		t.Error("effective date should be valid")
	}
	if s.ValidAt(exp) {
		t.Error("expiry date should be excluded")
	}
	s.IsActive = false
	if s.ValidAt(base) {
		t.Error("inactive setting is never valid")
	}
}

func TestCloneIsDeep(t *testing.T) {
	eff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s := validSetting()
	s.EffectiveDate = &eff

	c := s.Clone()
	*c.EffectiveDate = eff.Add(time.Hour)
	c.Value = "1"

	if !s.EffectiveDate.Equal(eff) || s.Value != "6000" {
		t.Error("mutating the clone changed the original")
	}
}
