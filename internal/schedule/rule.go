package schedule

// RuleKind discriminates the four recurrence-rule variants.
type RuleKind string

const (
	KindDaily   RuleKind = "daily"
	KindWeekly  RuleKind = "weekly"
	KindMonthly RuleKind = "monthly"
	KindYearly  RuleKind = "yearly"
)

// Rule is one recurrence rule of a habit's schedule. The JSON shape is the
// storage contract: a discriminated record with a kind tag and the
// variant-specific fields, which must round-trip exactly.
//
//   - daily: no payload, fires every day
//   - weekly: Weekdays, 0=Sunday through 6=Saturday
//   - monthly: DaysOfMonth in [1,31]; a day with no match in a short month
//     simply never fires there (no clamping)
//   - yearly: Month and Day must both match
type Rule struct {
	Kind        RuleKind `json:"kind"`
	Weekdays    []int    `json:"weekdays,omitempty"`
	DaysOfMonth []int    `json:"daysOfMonth,omitempty"`
	Month       int      `json:"month,omitempty"`
	Day         int      `json:"day,omitempty"`
}

// Daily returns a rule that fires every day.
func Daily() Rule {
	return Rule{Kind: KindDaily}
}

// Weekly returns a rule firing on the given weekdays (0=Sunday). Order is
// preserved; it matters for display, not evaluation.
func Weekly(weekdays ...int) Rule {
	return Rule{Kind: KindWeekly, Weekdays: weekdays}
}

// Monthly returns a rule firing on the given days of month.
func Monthly(daysOfMonth ...int) Rule {
	return Rule{Kind: KindMonthly, DaysOfMonth: daysOfMonth}
}

// Yearly returns a rule firing on one fixed month/day each year.
func Yearly(month, day int) Rule {
	return Rule{Kind: KindYearly, Month: month, Day: day}
}
