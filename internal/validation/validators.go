package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/x0ba/habithing/internal/schedule"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("rule_kind", validateRuleKind); err != nil {
		panic(fmt.Sprintf("failed to register rule_kind validator: %v", err))
	}
	if err := Validate.RegisterValidation("timezone_name", validateTimeZoneName); err != nil {
		panic(fmt.Sprintf("failed to register timezone_name validator: %v", err))
	}
}

// validateRuleKind validates that a string is a valid RuleKind enum value
func validateRuleKind(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	switch schedule.RuleKind(value) {
	case schedule.KindDaily, schedule.KindWeekly, schedule.KindMonthly, schedule.KindYearly:
		return true
	default:
		return false
	}
}

// validateTimeZoneName validates that a string is a loadable IANA timezone name
func validateTimeZoneName(fl validator.FieldLevel) bool {
	return ValidateTimeZone(fl.Field().String()) == nil
}

// ValidateTimeZone checks that the value names a known IANA timezone
func ValidateTimeZone(value string) error {
	if value == "" {
		return fmt.Errorf("time zone cannot be empty")
	}
	if _, err := time.LoadLocation(value); err != nil {
		return fmt.Errorf("invalid time zone: %s", value)
	}
	return nil
}

// ValidateGraceMinutes checks the grace-period setting range. The upper bound
// keeps a "day" from extending past noon of the next day.
func ValidateGraceMinutes(value int) error {
	if value < 0 {
		return fmt.Errorf("grace_minutes must be >= 0")
	}
	if value > 720 {
		return fmt.Errorf("grace_minutes must be <= 720")
	}
	return nil
}

// ValidateRules checks every rule in a schedule for structural validity:
// known kind, weekday values in [0,6], days of month in [1,31], and a
// plausible yearly month/day. An empty list is valid (the habit is never
// due).
func ValidateRules(rules []schedule.Rule) error {
	for i, rule := range rules {
		if err := validateRule(rule); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

func validateRule(rule schedule.Rule) error {
	switch rule.Kind {
	case schedule.KindDaily:
		return nil
	case schedule.KindWeekly:
		if len(rule.Weekdays) == 0 {
			return fmt.Errorf("weekly rule requires at least one weekday")
		}
		for _, wd := range rule.Weekdays {
			if wd < 0 || wd > 6 {
				return fmt.Errorf("weekday %d out of range [0,6]", wd)
			}
		}
		return nil
	case schedule.KindMonthly:
		if len(rule.DaysOfMonth) == 0 {
			return fmt.Errorf("monthly rule requires at least one day of month")
		}
		for _, dom := range rule.DaysOfMonth {
			if dom < 1 || dom > 31 {
				return fmt.Errorf("day of month %d out of range [1,31]", dom)
			}
		}
		return nil
	case schedule.KindYearly:
		if rule.Month < 1 || rule.Month > 12 {
			return fmt.Errorf("month %d out of range [1,12]", rule.Month)
		}
		if rule.Day < 1 || rule.Day > 31 {
			return fmt.Errorf("day %d out of range [1,31]", rule.Day)
		}
		return nil
	default:
		return fmt.Errorf("unknown rule kind: %q", rule.Kind)
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
