package setting

import (
	"github.com/xraph/tariff/errdefs"
	"github.com/xraph/tariff/validate"
)

// Validate checks the shape of a setting: required fields, data type,
// priority range, a value that parses as its data type and a well-formed
// validity window. Category existence is checked by the engine.
func Validate(s *Setting) error {
	if err := validate.Struct(s); err != nil {
		return err
	}
	if s.CategoryID.IsNil() {
		return errdefs.Invalid("category_id", "is required")
	}
	if _, err := Parse(s.DataType, s.Value); err != nil {
		return errdefs.Invalid("setting_value", "%v for data type %s", err, s.DataType)
	}
	if !s.Window.Valid() {
		return errdefs.Invalid("expiry_date", "must be after effective_date")
	}
	return nil
}

// ValidateCategory checks the shape of a category.
func ValidateCategory(c *Category) error {
	return validate.Struct(c)
}
