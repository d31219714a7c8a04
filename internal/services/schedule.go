// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurring template schedules.
// Each frequency has its own strategy that maps an occurrence index to a date,
// so the clamp and leap-year rules live in one small function per frequency.

package services

import (
	"fmt"
	"time"

	"pairledger/internal/core"
)

// ScheduleStrategy generates the occurrence dates of one frequency.
type ScheduleStrategy interface {
	// Nth returns occurrence n (n >= 0) counted from the anchor. It is
	// strictly increasing in n. dayOfMonth is already resolved (1-31) for
	// frequencies that use it and ignored otherwise.
	Nth(anchor core.Date, dayOfMonth, n int) core.Date
	// Skip returns an index whose occurrence is not after d. Generation starts
	// there instead of at zero.
	Skip(anchor, d core.Date) int
}

// IntervalSchedule steps a fixed number of days from the anchor.
type IntervalSchedule struct {
	Days int
}

func (s IntervalSchedule) Nth(anchor core.Date, _ int, n int) core.Date {
	return anchor.AddDays(n * s.Days)
}

func (s IntervalSchedule) Skip(anchor, d core.Date) int {
	days := int(d.Sub(anchor.Time).Hours() / 24)
	return max(days/s.Days-1, 0)
}

// MonthlySchedule lands on dayOfMonth every month, clamped to short months.
// Each occurrence is derived from the anchor, never from the previous one, so
// a Feb 28 clamp does not drag March back to the 28th.
type MonthlySchedule struct{}

func (MonthlySchedule) Nth(anchor core.Date, dayOfMonth, n int) core.Date {
	months := anchor.Year()*12 + anchor.Month() - 1 + n
	return core.ClampedDate(months/12, time.Month(months%12+1), dayOfMonth)
}

func (MonthlySchedule) Skip(anchor, d core.Date) int {
	months := (d.Year()-anchor.Year())*12 + d.Month() - anchor.Month()
	return max(months-1, 0)
}

// YearlySchedule lands on the anchor's month every year. Feb 29 clamps to
// Feb 28 outside leap years.
type YearlySchedule struct{}

func (YearlySchedule) Nth(anchor core.Date, dayOfMonth, n int) core.Date {
	return core.ClampedDate(anchor.Year()+n, time.Month(anchor.Month()), dayOfMonth)
}

func (YearlySchedule) Skip(anchor, d core.Date) int {
	return max(d.Year()-anchor.Year()-1, 0)
}

// scheduleStrategies maps frequencies to their schedule.
var scheduleStrategies = map[core.Frequency]ScheduleStrategy{
	core.Weekly:   IntervalSchedule{Days: 7},
	core.Biweekly: IntervalSchedule{Days: 14},
	core.Monthly:  MonthlySchedule{},
	core.Yearly:   YearlySchedule{},
}

// GetScheduleStrategy returns the schedule for a frequency.
// Returns an error if the frequency is not supported.
func GetScheduleStrategy(f core.Frequency) (ScheduleStrategy, error) {
	s, ok := scheduleStrategies[f]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidFrequency, f)
	}
	return s, nil
}

// Occurrences lists the template's due dates up to and including asOf, oldest
// first. Without a cursor the anchor itself is the first candidate; with one,
// only dates strictly after the cursor qualify. Paused templates have none.
func Occurrences(t core.RecurringTemplate, asOf core.Date) ([]core.Date, error) {
	if !t.Active {
		return nil, nil
	}
	s, err := GetScheduleStrategy(t.Frequency)
	if err != nil {
		return nil, err
	}

	anchor := t.Anchor()
	if asOf.Before(anchor) {
		return nil, nil
	}
	cursor := t.LastMaterializedThrough
	if !cursor.IsZero() && !cursor.Before(asOf) {
		return nil, nil
	}

	dom := t.DayOfMonth
	if dom == 0 {
		dom = anchor.Day()
	}

	start := 0
	if !cursor.IsZero() && cursor.After(anchor) {
		start = s.Skip(anchor, cursor)
	}

	var out []core.Date
	for n := start; ; n++ {
		d := s.Nth(anchor, dom, n)
		if d.After(asOf) {
			break
		}
		// a day_of_month earlier than the anchor's day falls before it in the first month
		if d.Before(anchor) {
			continue
		}
		if !cursor.IsZero() && !d.After(cursor) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
