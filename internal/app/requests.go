package app

import (
	"time"

	"github.com/mkovalev/dayboard/internal/storage"
)

type CreateEventRequest struct {
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	EventType    string            `json:"eventType"`
	StartTime    time.Time         `json:"startTime"`
	EndTime      time.Time         `json:"endTime"`
	AllDay       bool              `json:"allDay"`
	Location     string            `json:"location"`
	Color        string            `json:"color"`
	Transparency string            `json:"transparency"`
	Rule         *RuleRequest      `json:"recurrenceRule,omitempty"`
	Reminders    []ReminderRequest `json:"reminders,omitempty"`
}

type RuleRequest struct {
	Frequency   storage.Frequency `json:"frequency"`
	Interval    int               `json:"interval"`
	ByDays      []string          `json:"byDays,omitempty"`
	ByMonths    []int             `json:"byMonths,omitempty"`
	ByMonthDays []int             `json:"byMonthDays,omitempty"`
	Count       int               `json:"count,omitempty"`
	Until       *time.Time        `json:"until,omitempty"`
}

type ReminderRequest struct {
	MinutesBefore int    `json:"minutesBefore"`
	Method        string `json:"method"`
}

// UpdateEventRequest carries partial updates; nil fields are left untouched.
type UpdateEventRequest struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	EventType    *string    `json:"eventType,omitempty"`
	StartTime    *time.Time `json:"startTime,omitempty"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	AllDay       *bool      `json:"allDay,omitempty"`
	Location     *string    `json:"location,omitempty"`
	Color        *string    `json:"color,omitempty"`
	Transparency *string    `json:"transparency,omitempty"`
}

// UpdateOccurrenceRequest overrides fields of a single occurrence; nil
// fields keep the parent event's values.
type UpdateOccurrenceRequest struct {
	StartTime    *time.Time `json:"startTime,omitempty"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Location     *string    `json:"location,omitempty"`
	Color        *string    `json:"color,omitempty"`
	Transparency *string    `json:"transparency,omitempty"`
}

func (r RuleRequest) toRule() storage.RecurrenceRule {
	return storage.RecurrenceRule{
		Frequency:   r.Frequency,
		Interval:    r.Interval,
		ByDays:      append([]string(nil), r.ByDays...),
		ByMonths:    append([]int(nil), r.ByMonths...),
		ByMonthDays: append([]int(nil), r.ByMonthDays...),
		Count:       r.Count,
		Until:       r.Until,
	}
}
