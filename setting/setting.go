// Package setting defines business setting categories and scoped settings.
package setting

import (
	"time"

	"github.com/xraph/tariff/id"
	"github.com/xraph/tariff/scope"
	"github.com/xraph/tariff/types"
)

// DataType declares how a setting's text value is interpreted.
type DataType string

const (
	TypeString  DataType = "STRING"
	TypeNumber  DataType = "NUMBER"
	TypeBoolean DataType = "BOOLEAN"
	TypeJSON    DataType = "JSON"
	TypeArray   DataType = "ARRAY"
)

// Category groups settings and rules. Categories are deactivated, never
// removed.
type Category struct {
	types.Entity
	ID          id.CategoryID `json:"id"`
	Name        string        `json:"name" yaml:"name" validate:"required,max=128"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty" validate:"max=1024"`
	IsActive    bool          `json:"is_active" yaml:"isActive"`
}

type Setting struct {
	types.Entity
	types.Window
	ID          id.SettingID  `json:"id"`
	CategoryID  id.CategoryID `json:"category_id"`
	Key         string        `json:"setting_key" validate:"required,max=255,printascii"`
	Value       string        `json:"setting_value"`
	DataType    DataType      `json:"data_type" validate:"required,oneof=STRING NUMBER BOOLEAN JSON ARRAY"`
	Scope       scope.Scope   `json:"scope"`
	Priority    int           `json:"priority" validate:"min=1,max=5"`
	IsActive    bool          `json:"is_active"`
	Description string        `json:"description,omitempty" validate:"max=1024"`
}

// ValidAt reports whether s is active and inside its validity window at t.
func (s *Setting) ValidAt(t time.Time) bool {
	return s.IsActive && s.Contains(t)
}

// Typed parses the stored text according to DataType.
func (s *Setting) Typed() (Value, error) {
	return Parse(s.DataType, s.Value)
}

// SameTuple reports whether two settings share key and exact scope.
func (s *Setting) SameTuple(other *Setting) bool {
	return s.Key == other.Key && s.Scope == other.Scope
}

// Clone returns a deep copy of s.
func (s *Setting) Clone() *Setting {
	if s == nil {
		return nil
	}
	c := *s
	c.Window = cloneWindow(s.Window)
	return &c
}

// Clone returns a copy of c.
func (c *Category) Clone() *Category {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func cloneWindow(w types.Window) types.Window {
	out := types.Window{}
	if w.EffectiveDate != nil {
		t := *w.EffectiveDate
		out.EffectiveDate = &t
	}
	if w.ExpiryDate != nil {
		t := *w.ExpiryDate
		out.ExpiryDate = &t
	}
	return out
}
