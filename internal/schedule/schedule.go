// Package schedule evaluates habit recurrence rules against calendar days.
// Evaluation is a pure OR across a habit's rule list: a day is due when any
// single rule fires on it.
package schedule

import (
	"github.com/x0ba/habithing/internal/dates"
)

// OccursOn reports whether a single rule fires on the given day. Unknown
// kinds never fire.
func OccursOn(date dates.DateKey, rule Rule) (bool, error) {
	switch rule.Kind {
	case KindDaily:
		// Validate the key even though the answer is constant; malformed
		// input is reported, never coerced.
		if _, _, _, err := dates.Parse(date); err != nil {
			return false, err
		}
		return true, nil
	case KindWeekly:
		dow, err := dates.DayOfWeek(date)
		if err != nil {
			return false, err
		}
		for _, wd := range rule.Weekdays {
			if wd == dow {
				return true, nil
			}
		}
		return false, nil
	case KindMonthly:
		_, _, day, err := dates.Parse(date)
		if err != nil {
			return false, err
		}
		for _, dom := range rule.DaysOfMonth {
			if dom == day {
				return true, nil
			}
		}
		return false, nil
	case KindYearly:
		_, month, day, err := dates.Parse(date)
		if err != nil {
			return false, err
		}
		return month == rule.Month && day == rule.Day, nil
	default:
		if _, _, _, err := dates.Parse(date); err != nil {
			return false, err
		}
		return false, nil
	}
}

// IsDueOn reports whether any rule in the list fires on the given day. An
// empty list is never due.
func IsDueOn(date dates.DateKey, rules []Rule) (bool, error) {
	for _, r := range rules {
		due, err := OccursOn(date, r)
		if err != nil {
			return false, err
		}
		if due {
			return true, nil
		}
	}
	if _, _, _, err := dates.Parse(date); err != nil {
		return false, err
	}
	return false, nil
}

// ScheduledInRange returns every day in [start, end] on which the rules fire,
// ascending, with the same inclusivity as dates.Range.
func ScheduledInRange(rules []Rule, start, end dates.DateKey) ([]dates.DateKey, error) {
	days, err := dates.Range(start, end)
	if err != nil {
		return nil, err
	}
	scheduled := make([]dates.DateKey, 0, len(days))
	for _, day := range days {
		due, err := IsDueOn(day, rules)
		if err != nil {
			return nil, err
		}
		if due {
			scheduled = append(scheduled, day)
		}
	}
	return scheduled, nil
}
