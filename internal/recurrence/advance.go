// Package recurrence turns recurring transaction templates into concrete
// transactions.
//
// This file implements the Strategy Pattern for occurrence advancement.
// Each frequency (weekly, monthly, yearly) has its own advancer that
// encapsulates the calendar arithmetic for one step.

package recurrence

import (
	"fmt"
	"time"

	"financebro/internal/core"
)

// Advancer computes the occurrence immediately following base for one
// frequency. Implementations must be deterministic.
type Advancer interface {
	Next(base core.Date) core.Date
}

// WeeklyAdvancer adds exactly seven days.
type WeeklyAdvancer struct{}

func (WeeklyAdvancer) Next(base core.Date) core.Date {
	return core.Date{Time: base.AddDate(0, 0, 7)}
}

// MonthlyAdvancer moves to the same day of the next calendar month.
//
// Clamp policy: when the anchor day does not exist in the target month, the
// occurrence lands on the last day of that month. Jan 31 advances to Feb 28
// (Feb 29 in leap years); Mar 31 advances to Apr 30.
type MonthlyAdvancer struct{}

func (MonthlyAdvancer) Next(base core.Date) core.Date {
	y, m, d := base.Time.Date()
	return clampedDate(y, int(m)+1, d)
}

// YearlyAdvancer moves to the same month and day of the next year.
//
// Clamp policy: Feb 29 on a non-leap target year clamps to Feb 28.
type YearlyAdvancer struct{}

func (YearlyAdvancer) Next(base core.Date) core.Date {
	y, m, d := base.Time.Date()
	return clampedDate(y+1, int(m), d)
}

// clampedDate builds year/month/day with the day clamped to the last day of
// the (normalized) target month, avoiding time.Date's overflow into the
// following month.
func clampedDate(year, month, day int) core.Date {
	// Normalize month overflow (13 -> Jan next year) before clamping.
	norm := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := norm.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return core.Date{Time: time.Date(norm.Year(), norm.Month(), day, 0, 0, 0, 0, time.UTC)}
}

// advancers maps frequencies to their advancement strategies.
var advancers = map[core.Frequency]Advancer{
	core.Weekly:  WeeklyAdvancer{},
	core.Monthly: MonthlyAdvancer{},
	core.Yearly:  YearlyAdvancer{},
}

// advancerFor returns the advancement strategy for a frequency.
// Returns an error for unknown or missing frequencies.
func advancerFor(frequency core.Frequency) (Advancer, error) {
	a, ok := advancers[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %q", frequency)
	}
	return a, nil
}

// Advance returns the occurrence one calendar unit after base. It is the
// exported form of the per-frequency strategies, shared with callers that
// need to preview the next occurrence of a template.
func Advance(base core.Date, frequency core.Frequency) (core.Date, error) {
	a, err := advancerFor(frequency)
	if err != nil {
		return core.Date{}, err
	}
	return a.Next(base), nil
}
