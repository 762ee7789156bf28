// Package types provides common types used across Tariff.
package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value in the smallest currency unit.
// Stored amounts are integer-only; fractional intermediates (percentages,
// per-kg scaling) go through decimal and are rounded half-up back to
// minor units.
//
// Examples:
//   - NGN(650000)         = ₦6,500.00 (650000 kobo)
//   - New(4900, "usd")    = $49.00 (4900 cents)
type Money struct {
	Amount   int64  `json:"amount"`   // Smallest unit (kobo, cents, pesewas)
	Currency string `json:"currency"` // ISO 4217 lowercase: "ngn", "usd", "kes"
}

var hundred = decimal.NewFromInt(100)

// New creates a Money value from a minor-unit amount.
func New(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToLower(currency)}
}

// NGN creates a Money value in Nigerian Naira (kobo).
func NGN(kobo int64) Money { return Money{Amount: kobo, Currency: "ngn"} }

// Zero returns a zero Money value in the specified currency.
func Zero(currency string) Money { return Money{Amount: 0, Currency: strings.ToLower(currency)} }

// FromMajor converts a display-unit decimal (e.g. 12.345) into Money,
// rounding half-up to the currency's minor unit.
func FromMajor(major decimal.Decimal, currency string) Money {
	currency = strings.ToLower(currency)
	minor := major.Shift(int32(Decimals(currency))).Round(0)
	return Money{Amount: minor.IntPart(), Currency: currency}
}

// Arithmetic operations

// Add adds two Money values. Panics if currencies don't match.
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// Subtract subtracts another Money value. Panics if currencies don't match.
func (m Money) Subtract(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}
}

// Scale multiplies the Money by a decimal factor (e.g. 12.5 kg) and
// rounds half-up to the minor unit.
func (m Money) Scale(factor decimal.Decimal) Money {
	scaled := decimal.NewFromInt(m.Amount).Mul(factor).Round(0)
	return Money{Amount: scaled.IntPart(), Currency: m.Currency}
}

// Percent returns rate percent of m (rate 7.5 means 7.5%), rounded half-up
// to the minor unit. The multiplication is exact; only the result is rounded.
func (m Money) Percent(rate decimal.Decimal) Money {
	return m.Scale(rate.Div(hundred))
}

// BackOutPercent splits a gross amount that already includes rate percent
// into its net part and the included portion. net + included == m always.
func (m Money) BackOutPercent(rate decimal.Decimal) (net, included Money) {
	divisor := decimal.NewFromInt(1).Add(rate.Div(hundred))
	netAmount := decimal.NewFromInt(m.Amount).DivRound(divisor, 8).Round(0).IntPart()
	net = Money{Amount: netAmount, Currency: m.Currency}
	return net, m.Subtract(net)
}

// Major returns the amount in display units as an exact decimal.
func (m Money) Major() decimal.Decimal {
	return decimal.New(m.Amount, -int32(Decimals(m.Currency)))
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Equal returns true if both Money values are equal (same amount and currency).
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// Formatting methods

// FormatMajor returns the major unit string without currency symbol.
// For currencies with 2 decimal places: "49.00" for 4900 cents.
func (m Money) FormatMajor() string {
	return m.Major().StringFixed(int32(Decimals(m.Currency)))
}

// String returns a human-readable string with currency symbol.
// Examples: "₦6500.00", "$49.00"
func (m Money) String() string {
	return currencySymbol(m.Currency) + m.FormatMajor()
}

// MarshalJSON implements json.Marshaler. The display field is output only;
// decoding reads amount and currency.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

// Helper functions

// assertSameCurrency panics if currencies don't match.
func (m Money) assertSameCurrency(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
}

var symbols = map[string]string{
	"ngn": "₦",
	"usd": "$",
	"eur": "€",
	"gbp": "£",
	"kes": "KSh ",
	"ghs": "GH₵",
	"zar": "R",
	"jpy": "¥",
}

// currencySymbol returns the symbol for a currency code.
func currencySymbol(currency string) string {
	if sym, ok := symbols[strings.ToLower(currency)]; ok {
		return sym
	}
	return strings.ToUpper(currency) + " "
}

var zeroDecimal = map[string]bool{
	"jpy": true,
	"krw": true,
	"ugx": true,
	"rwf": true,
	"xof": true,
	"xaf": true,
}

// Decimals returns the number of minor-unit decimal places for a currency.
func Decimals(currency string) int {
	if zeroDecimal[strings.ToLower(currency)] {
		return 0
	}
	return 2
}

// Sum calculates the sum of Money values in the given currency.
// All values must share that currency.
func Sum(currency string, values ...Money) Money {
	result := Zero(currency)
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}
