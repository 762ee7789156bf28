package types

import "time"

// Window is an optional [EffectiveDate, ExpiryDate) validity interval.
// A nil bound is open on that side.
type Window struct {
	EffectiveDate *time.Time `json:"effective_date,omitempty"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if w.EffectiveDate != nil && t.Before(*w.EffectiveDate) {
		return false
	}
	if w.ExpiryDate != nil && !t.Before(*w.ExpiryDate) {
		return false
	}
	return true
}

// Overlaps reports whether some instant is contained in both windows.
func (w Window) Overlaps(other Window) bool {
	// Intervals are half-open: [a, b) and [c, d) overlap iff a < d and c < b.
	if w.EffectiveDate != nil && other.ExpiryDate != nil && !w.EffectiveDate.Before(*other.ExpiryDate) {
		return false
	}
	if other.EffectiveDate != nil && w.ExpiryDate != nil && !other.EffectiveDate.Before(*w.ExpiryDate) {
		return false
	}
	return true
}

// Valid reports whether the expiry, when set, is after the effective date.
func (w Window) Valid() bool {
	if w.EffectiveDate == nil || w.ExpiryDate == nil {
		return true
	}
	return w.ExpiryDate.After(*w.EffectiveDate)
}

// ChangesWithin reports whether a bound falls strictly inside (from, to),
// so Contains can give different answers for two instants of that span.
func (w Window) ChangesWithin(from, to time.Time) bool {
	inside := func(b *time.Time) bool { return b != nil && b.After(from) && b.Before(to) }
	return inside(w.EffectiveDate) || inside(w.ExpiryDate)
}
