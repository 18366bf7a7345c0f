package schedule

import (
	"fmt"
	"strings"
	"time"
)

var weekdayAbbrev = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

const (
	weekdayMask  = 1<<1 | 1<<2 | 1<<3 | 1<<4 | 1<<5
	weekendMask  = 1<<0 | 1<<6
	everyDayMask = 1<<7 - 1
)

// FormatRule renders a single rule for display. Weekly sets collapse to
// "Every day", "Weekdays" or "Weekends" when they cover exactly those days;
// otherwise weekdays are listed in their stored order.
func FormatRule(rule Rule) string {
	switch rule.Kind {
	case KindDaily:
		return "Every day"
	case KindWeekly:
		var mask int
		for _, wd := range rule.Weekdays {
			if wd >= 0 && wd <= 6 {
				mask |= 1 << wd
			}
		}
		switch mask {
		case everyDayMask:
			return "Every day"
		case weekdayMask:
			return "Weekdays"
		case weekendMask:
			return "Weekends"
		}
		names := make([]string, 0, len(rule.Weekdays))
		for _, wd := range rule.Weekdays {
			if wd >= 0 && wd <= 6 {
				names = append(names, weekdayAbbrev[wd])
			}
		}
		return strings.Join(names, ", ")
	case KindMonthly:
		days := make([]string, 0, len(rule.DaysOfMonth))
		for _, dom := range rule.DaysOfMonth {
			days = append(days, ordinal(dom))
		}
		return strings.Join(days, ", ")
	case KindYearly:
		return fmt.Sprintf("%s %d", time.Month(rule.Month), rule.Day)
	default:
		return string(rule.Kind)
	}
}

// FormatRules renders a habit's whole schedule, joining rules with " + ".
// An empty schedule means the habit is never due.
func FormatRules(rules []Rule) string {
	if len(rules) == 0 {
		return "No schedule"
	}
	parts := make([]string, 0, len(rules))
	for _, r := range rules {
		parts = append(parts, FormatRule(r))
	}
	return strings.Join(parts, " + ")
}

// ordinal renders 1 as "1st", 22 as "22nd", 13 as "13th".
func ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
