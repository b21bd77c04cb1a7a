package storage

import (
	"strings"
)

var weekdayCodes = map[string]struct{}{
	"MO": {}, "TU": {}, "WE": {}, "TH": {}, "FR": {}, "SA": {}, "SU": {},
}

// NormalizeWeekday reduces a weekday name or abbreviation to its two-letter
// uppercase code. The second result is false for unknown values.
func NormalizeWeekday(day string) (string, bool) {
	day = strings.ToUpper(strings.TrimSpace(day))
	if len(day) < 2 {
		return "", false
	}
	code := day[:2]
	if _, ok := weekdayCodes[code]; !ok {
		return "", false
	}
	return code, true
}

func ValidateEvent(e Event) error {
	if e.OwnerID == "" {
		return NewValidationError("event", "ownerId", "owner is required")
	}
	if strings.TrimSpace(e.Title) == "" {
		return NewValidationError("event", "title", "title is required")
	}
	if e.StartTime.IsZero() {
		return NewValidationError("event", "startTime", "start time is required")
	}
	if e.AllDay {
		if e.EndTime.Before(e.StartTime) {
			return NewValidationError("event", "endTime", "end time is before start time")
		}
		return nil
	}
	if !e.EndTime.After(e.StartTime) {
		return NewValidationError("event", "endTime", "end time must be after start time")
	}
	return nil
}

// ValidateRule checks a recurrence rule and normalizes its by-day codes in
// place, so the expander can compare them without re-normalizing.
func ValidateRule(r *RecurrenceRule) error {
	switch r.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyYearly:
	default:
		return NewValidationError("recurrenceRule", "frequency", "unknown frequency "+string(r.Frequency))
	}
	if r.Interval < 1 {
		return NewValidationError("recurrenceRule", "interval", "interval must be a positive integer")
	}
	for i, day := range r.ByDays {
		code, ok := NormalizeWeekday(day)
		if !ok {
			return NewValidationError("recurrenceRule", "byDays", "unknown weekday "+day)
		}
		r.ByDays[i] = code
	}
	for _, m := range r.ByMonths {
		if m < 1 || m > 12 {
			return NewValidationError("recurrenceRule", "byMonths", "month number out of range 1-12")
		}
	}
	for _, d := range r.ByMonthDays {
		if d < 1 || d > 31 {
			return NewValidationError("recurrenceRule", "byMonthDays", "day of month out of range 1-31")
		}
	}
	if r.Count < 0 {
		return NewValidationError("recurrenceRule", "count", "count must not be negative")
	}
	return nil
}

func ValidateReminder(r Reminder) error {
	if r.MinutesBefore < 0 {
		return NewValidationError("reminder", "minutesBefore", "minutes before must not be negative")
	}
	switch r.Method {
	case ReminderMethodPush, ReminderMethodEmail:
		return nil
	default:
		return NewValidationError("reminder", "method", "unknown delivery method "+r.Method)
	}
}
