package recurrence

import (
	"time"

	"github.com/mkovalev/dayboard/internal/storage"
)

// Horizon bounds for open-ended rules. A rule with `until` expands up to
// that timestamp (exclusive); a rule with `count` gets a generous cap so the
// count-based stop fires first; a rule with neither is capped at one year.
const (
	defaultHorizonYears = 1
	countHorizonYears   = 10
)

// Horizon returns the exclusive upper bound for expanding the rule from the
// given series start.
func Horizon(start time.Time, r storage.RecurrenceRule) time.Time {
	if r.Until != nil {
		return *r.Until
	}
	if r.Count > 0 {
		return start.AddDate(countHorizonYears, 0, 0)
	}
	return start.AddDate(defaultHorizonYears, 0, 0)
}

// Expand materializes the occurrence timestamps of a rule anchored at start.
// The result is finite, ordered and deterministic; identical inputs always
// produce identical sequences.
func Expand(start time.Time, r storage.RecurrenceRule) []time.Time {
	return expand(start, r, Horizon(start, r))
}

// ExpandRange expands the rule over a query window instead of the creation
// horizon. Candidates are still stepped from the series start so `count`
// keeps its meaning, then filtered to [from, to] inclusive.
func ExpandRange(start time.Time, r storage.RecurrenceRule, from, to time.Time) []time.Time {
	horizon := to.Add(time.Nanosecond)
	if r.Until != nil && r.Until.Before(horizon) {
		horizon = *r.Until
	}
	times := expand(start, r, horizon)
	out := times[:0]
	for _, t := range times {
		if t.Before(from) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func expand(start time.Time, r storage.RecurrenceRule, horizon time.Time) []time.Time {
	interval := r.Interval
	if interval < 1 {
		interval = 1
	}

	switch r.Frequency {
	case storage.FrequencyMonthly:
		return expandByMonthStep(start, r, horizon, interval, false)
	case storage.FrequencyYearly:
		return expandByMonthStep(start, r, horizon, interval, true)
	case storage.FrequencyWeekly:
		return expandByDayStep(start, r, horizon, 7*interval)
	case storage.FrequencyBiweekly:
		return expandByDayStep(start, r, horizon, 14*interval)
	default:
		return expandByDayStep(start, r, horizon, interval)
	}
}

func expandByDayStep(start time.Time, r storage.RecurrenceRule, horizon time.Time, stepDays int) []time.Time {
	var out []time.Time
	for c := start; c.Before(horizon); c = c.AddDate(0, 0, stepDays) {
		if !matches(c, r) {
			continue
		}
		out = append(out, c)
		if r.Count > 0 && len(out) == r.Count {
			break
		}
	}
	return out
}

// expandByMonthStep steps in whole months (or years) from the anchor's
// day-of-month. A stepped candidate that lands in a month too short for that
// day (Jan 31 + 1 month, Feb 29 + 1 non-leap year) is skipped, not rolled
// over into the following month.
func expandByMonthStep(start time.Time, r storage.RecurrenceRule, horizon time.Time, interval int, yearly bool) []time.Time {
	year, month, day := start.Date()
	hour, minute, sec := start.Clock()

	var out []time.Time
	for i := 0; ; i += interval {
		var c time.Time
		if yearly {
			c = time.Date(year+i, month, day, hour, minute, sec, start.Nanosecond(), start.Location())
		} else {
			c = time.Date(year, month+time.Month(i), day, hour, minute, sec, start.Nanosecond(), start.Location())
		}
		if !c.Before(horizon) {
			break
		}
		if c.Day() != day {
			continue
		}
		if !matches(c, r) {
			continue
		}
		out = append(out, c)
		if r.Count > 0 && len(out) == r.Count {
			break
		}
	}
	return out
}

// matches applies the rule's by-filters with AND semantics. By-day codes are
// pre-normalized to two-letter uppercase by rule validation.
func matches(c time.Time, r storage.RecurrenceRule) bool {
	if len(r.ByDays) > 0 && !containsString(r.ByDays, WeekdayCode(c.Weekday())) {
		return false
	}
	if len(r.ByMonths) > 0 && !containsInt(r.ByMonths, int(c.Month())) {
		return false
	}
	if len(r.ByMonthDays) > 0 && !containsInt(r.ByMonthDays, c.Day()) {
		return false
	}
	return true
}

var weekdayCodes = [...]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

// WeekdayCode returns the two-letter uppercase abbreviation used by
// recurrence rule by-day filters.
func WeekdayCode(d time.Weekday) string {
	return weekdayCodes[d]
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsInt(set []int, v int) bool {
	for _, n := range set {
		if n == v {
			return true
		}
	}
	return false
}
