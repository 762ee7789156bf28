package types

import (
	"testing"
	"time"
)

func TestWindowChangesWithin(t *testing.T) {
	at := func(sec int) *time.Time {
		v := time.Date(2025, 3, 1, 12, 0, sec, 0, time.UTC)
		return &v
	}
	from, to := *at(0), *at(59)

	tests := []struct {
		name string
		w    Window
		want bool
	}{
		{"open", Window{}, false},
		{"expires inside", Window{ExpiryDate: at(30)}, true},
		{"starts inside", Window{EffectiveDate: at(10)}, true},
		{"starts on the lower bound", Window{EffectiveDate: at(0)}, false},
		{"expires on the upper bound", Window{ExpiryDate: at(59)}, false},
		{"outside", Window{EffectiveDate: at(0), ExpiryDate: at(59)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.w.ChangesWithin(from, to); got != tt.want {
				t.Errorf("ChangesWithin = %v, want %v", got, tt.want)
			}
		})
	}
}
