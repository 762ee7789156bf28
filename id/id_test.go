package id_test

import (
	"strings"
	"testing"
	"time"

	"github.com/xraph/tariff/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"CategoryID", id.NewCategoryID, "cat_"},
		{"SettingID", id.NewSettingID, "set_"},
		{"RuleID", id.NewRuleID, "rule_"},
		{"AuditID", id.NewAuditID, "aud_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"CategoryID", id.NewCategoryID, id.ParseCategoryID},
		{"SettingID", id.NewSettingID, id.ParseSettingID},
		{"RuleID", id.NewRuleID, id.ParseRuleID},
		{"AuditID", id.NewAuditID, id.ParseAuditID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseCategoryID rejects set_", id.NewSettingID().String(), id.ParseCategoryID},
		{"ParseSettingID rejects rule_", id.NewRuleID().String(), id.ParseSettingID},
		{"ParseRuleID rejects aud_", id.NewAuditID().String(), id.ParseRuleID},
		{"ParseAuditID rejects cat_", id.NewCategoryID().String(), id.ParseAuditID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.parseFn(tt.input); err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", i.Prefix())
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewSettingID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var restored id.ID
	if unmarshalErr := restored.UnmarshalText(data); unmarshalErr != nil {
		t.Fatalf("UnmarshalText failed: %v", unmarshalErr)
	}
	if restored.String() != original.String() {
		t.Errorf("mismatch: %q != %q", restored.String(), original.String())
	}

	var nilID id.ID
	data, err = nilID.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText(nil) failed: %v", err)
	}
	var restored2 id.ID
	if err := restored2.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText(nil) failed: %v", err)
	}
	if !restored2.IsNil() {
		t.Error("expected nil after round-trip of nil ID")
	}
}

// IDs from a later millisecond compare greater; the resolver relies on
// this for its final tie-break.
func TestCompareIsCreationOrdered(t *testing.T) {
	first := id.NewSettingID()
	time.Sleep(2 * time.Millisecond)
	second := id.NewSettingID()
	if first.Compare(second) >= 0 {
		t.Errorf("expected %q < %q", first, second)
	}
	if second.Compare(first) <= 0 {
		t.Errorf("expected %q > %q", second, first)
	}
	if first.Compare(first) != 0 {
		t.Error("expected ID to compare equal to itself")
	}
}

// Same-millisecond IDs carry no creation order, but Compare must still be a
// total order.
func TestCompareIsTotalWithinMillisecond(t *testing.T) {
	ids := make([]id.ID, 64)
	for i := range ids {
		ids[i] = id.NewSettingID()
	}
	for _, a := range ids {
		for _, b := range ids {
			ab, ba := a.Compare(b), b.Compare(a)
			if ab != -ba {
				t.Fatalf("Compare(%s, %s) = %d but reverse = %d", a, b, ab, ba)
			}
			if (ab == 0) != (a.String() == b.String()) {
				t.Fatalf("Compare(%s, %s) = %d", a, b, ab)
			}
		}
	}
}
