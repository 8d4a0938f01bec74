package recurrence

import (
	"testing"

	"financebro/internal/core"
)

func TestWeeklyAdvancer_Next(t *testing.T) {
	tests := []struct {
		name string
		base core.Date
		want core.Date
	}{
		{"mid month", core.NewDate(2025, 3, 10), core.NewDate(2025, 3, 17)},
		{"crosses month boundary", core.NewDate(2025, 1, 28), core.NewDate(2025, 2, 4)},
		{"crosses year boundary", core.NewDate(2024, 12, 30), core.NewDate(2025, 1, 6)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeeklyAdvancer{}.Next(tt.base)
			if !got.Equal(tt.want.Time) {
				t.Errorf("Next(%v) = %v, want %v", tt.base.Time, got.Time, tt.want.Time)
			}
		})
	}
}

func TestMonthlyAdvancer_Next(t *testing.T) {
	tests := []struct {
		name string
		base core.Date
		want core.Date
	}{
		{"same day next month", core.NewDate(2025, 3, 15), core.NewDate(2025, 4, 15)},
		{"december wraps to january", core.NewDate(2024, 12, 15), core.NewDate(2025, 1, 15)},
		{"jan 31 clamps to feb 28", core.NewDate(2025, 1, 31), core.NewDate(2025, 2, 28)},
		{"jan 31 clamps to feb 29 in leap year", core.NewDate(2024, 1, 31), core.NewDate(2024, 2, 29)},
		{"mar 31 clamps to apr 30", core.NewDate(2025, 3, 31), core.NewDate(2025, 4, 30)},
		{"jan 30 also clamps in february", core.NewDate(2025, 1, 30), core.NewDate(2025, 2, 28)},
		{"day 28 never clamps", core.NewDate(2025, 1, 28), core.NewDate(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthlyAdvancer{}.Next(tt.base)
			if !got.Equal(tt.want.Time) {
				t.Errorf("Next(%v) = %v, want %v", tt.base.Time, got.Time, tt.want.Time)
			}
		})
	}
}

func TestYearlyAdvancer_Next(t *testing.T) {
	tests := []struct {
		name string
		base core.Date
		want core.Date
	}{
		{"ordinary date", core.NewDate(2025, 7, 4), core.NewDate(2026, 7, 4)},
		{"feb 29 clamps to feb 28", core.NewDate(2024, 2, 29), core.NewDate(2025, 2, 28)},
		{"feb 28 stays put", core.NewDate(2024, 2, 28), core.NewDate(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := YearlyAdvancer{}.Next(tt.base)
			if !got.Equal(tt.want.Time) {
				t.Errorf("Next(%v) = %v, want %v", tt.base.Time, got.Time, tt.want.Time)
			}
		})
	}
}

func TestAdvance(t *testing.T) {
	got, err := Advance(core.NewDate(2025, 5, 1), core.Weekly)
	if err != nil {
		t.Fatalf("Advance() unexpected error: %v", err)
	}
	if !got.Equal(core.NewDate(2025, 5, 8).Time) {
		t.Errorf("Advance() = %v, want 2025-05-08", got.Time)
	}

	if _, err := Advance(core.NewDate(2025, 5, 1), "daily"); err == nil {
		t.Error("Advance() accepted unknown frequency")
	}
	if _, err := Advance(core.NewDate(2025, 5, 1), ""); err == nil {
		t.Error("Advance() accepted empty frequency")
	}
}

// Clamping must never overflow into the following month. A Jan 31 anchor
// iterated monthly stays at or near month end and each step advances by
// exactly one calendar month.
func TestMonthlyAdvancer_ClampDoesNotOverflow(t *testing.T) {
	d := core.NewDate(2025, 1, 31)
	for i := 0; i < 12; i++ {
		prev := d
		d = MonthlyAdvancer{}.Next(d)
		wantMonth := prev.Month()%12 + 1
		if d.Month() != wantMonth {
			t.Fatalf("step %d: advanced from month %d to month %d", i+1, prev.Month(), d.Month())
		}
		if d.Day() < 28 {
			t.Fatalf("step %d: day drifted to %d", i+1, d.Day())
		}
	}
}
