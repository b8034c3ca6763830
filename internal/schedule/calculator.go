// Package schedule implements the recurring due-date engine: a pure
// calculator that finds the next occurrence of an obligation, and a
// reconciler that replays the calculator whenever payment records change.
package schedule

import (
	"log/slog"

	"scadenze/internal/core"
)

// maxCycleScan bounds the candidate search. The whole-cycle fast-forward
// below lands the scan within one cycle of the comparison floor, so hitting
// this cap means the inputs violate a data invariant; the search fails
// cleanly instead of returning a stale candidate.
const maxCycleScan = 100

// cycleMonths maps each recurring frequency to its cycle length in months.
var cycleMonths = map[core.Frequency]int{
	core.Monthly:    1,
	core.Quarterly:  3,
	core.HalfYearly: 6,
	core.Yearly:     12,
}

// NextDueDate returns the earliest recurrence on or after both anchor and
// from, for the given frequency and target day-of-month. The cycle phase is
// taken from the anchor's month; dueDay is clamped to the last day of months
// it overflows (31 in February lands on the 28th or 29th).
//
// Returns false for one_time or unrecognized frequencies, an out-of-range
// dueDay, a zero anchor, or when the safety cap is exceeded.
func NextDueDate(freq core.Frequency, dueDay int, anchor, from core.Date) (core.Date, bool) {
	step, ok := cycleMonths[freq]
	if !ok || dueDay < 1 || dueDay > 31 || anchor.IsZero() {
		return core.Date{}, false
	}

	floor := core.MaxDate(anchor, from)
	year, month := anchor.Year(), anchor.Month()

	// Skip whole cycles so the scan starts at most one cycle before the floor.
	if diff := (floor.Year()-year)*12 + floor.Month() - month; diff > step {
		month += ((diff - 1) / step) * step
		year += (month - 1) / 12
		month = (month-1)%12 + 1
	}

	for i := 0; i < maxCycleScan; i++ {
		candidate := clampToMonth(year, month, dueDay)
		if !candidate.Before(floor) {
			return candidate, true
		}
		month += step
		for month > 12 {
			month -= 12
			year++
		}
	}

	slog.Error("due date cycle scan exceeded safety cap",
		"frequency", string(freq),
		"due_day", dueDay,
		"anchor", anchor.String(),
		"from", from.String())
	return core.Date{}, false
}

// clampToMonth builds the date for day in year/month, clamped to the month's
// last day when day overflows it.
func clampToMonth(year, month, day int) core.Date {
	// Day 0 of the next month is the last day of this one.
	if last := core.NewDate(year, month+1, 0).Day(); day > last {
		day = last
	}
	return core.NewDate(year, month, day)
}
