// Package streak computes consecutive-completion streaks over the days a
// habit was scheduled.
package streak

import (
	"github.com/x0ba/habithing/internal/dates"
)

// Calculate returns the current streak as of today: the number of
// consecutive scheduled days, scanning backward from today, on which
// completion was recorded.
//
// scheduled must be ascending (as produced by schedule.ScheduledInRange);
// dates after today are ignored. A day that is due today but not yet
// completed is skipped rather than counted or treated as a break, so an
// unfinished "due today" never destroys an otherwise intact streak. The
// first past scheduled day without a completion ends the scan.
func Calculate(scheduled []dates.DateKey, completed map[dates.DateKey]struct{}, today dates.DateKey) int {
	count := 0
	for i := len(scheduled) - 1; i >= 0; i-- {
		day := scheduled[i]
		if day > today {
			continue
		}
		if _, done := completed[day]; done {
			count++
			continue
		}
		if day == today {
			continue
		}
		break
	}
	return count
}
