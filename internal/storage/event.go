package storage

import (
	"time"

	"github.com/google/uuid"
)

type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyYearly   Frequency = "yearly"
)

const (
	ReminderMethodPush  = "push"
	ReminderMethodEmail = "email"
)

const OccurrenceStatusScheduled = "scheduled"

type Event struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	EventType    string    `json:"eventType"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	AllDay       bool      `json:"allDay"`
	Location     string    `json:"location"`
	Color        string    `json:"color"`
	Transparency string    `json:"transparency"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Rule        *RecurrenceRule      `json:"recurrenceRule,omitempty"`
	Reminders   []Reminder           `json:"reminders,omitempty"`
	Occurrences []ResolvedOccurrence `json:"occurrences,omitempty"`
}

type RecurrenceRule struct {
	ID          string     `json:"id"`
	EventID     string     `json:"eventId"`
	Frequency   Frequency  `json:"frequency"`
	Interval    int        `json:"interval"`
	ByDays      []string   `json:"byDays,omitempty"`
	ByMonths    []int      `json:"byMonths,omitempty"`
	ByMonthDays []int      `json:"byMonthDays,omitempty"`
	Count       int        `json:"count,omitempty"`
	Until       *time.Time `json:"until,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type Occurrence struct {
	EventID   string    `json:"eventId"`
	StartTime time.Time `json:"startTime"`
	Status    string    `json:"status"`
}

type Exception struct {
	EventID      string     `json:"eventId"`
	OriginalTime time.Time  `json:"originalTime"`
	StartTime    *time.Time `json:"startTime,omitempty"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Location     *string    `json:"location,omitempty"`
	Color        *string    `json:"color,omitempty"`
	Transparency *string    `json:"transparency,omitempty"`
	Deleted      bool       `json:"deleted"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type Reminder struct {
	ID            string    `json:"id"`
	EventID       string    `json:"eventId"`
	MinutesBefore int       `json:"minutesBefore"`
	Method        string    `json:"method"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ResolvedOccurrence is one occurrence after exceptions have been applied.
// StartTime is the presented time; OriginalTime keeps the identity the
// occurrence had when it was generated from the rule.
type ResolvedOccurrence struct {
	EventID      string     `json:"eventId"`
	OriginalTime time.Time  `json:"originalTime"`
	StartTime    time.Time  `json:"startTime"`
	Override     *Exception `json:"override,omitempty"`
}

type EventFilter struct {
	OwnerID   string
	From      time.Time
	To        time.Time
	EventType string
	Page      int
	PageSize  int
}

// DueReminder is a reminder joined with the occurrence it fires for,
// consumed by the scheduler.
type DueReminder struct {
	EventID       string    `json:"eventId"`
	Title         string    `json:"title"`
	OwnerID       string    `json:"ownerId"`
	StartTime     time.Time `json:"startTime"`
	MinutesBefore int       `json:"minutesBefore"`
	Method        string    `json:"method"`
}

func (d DueReminder) NotifyAt() time.Time {
	return d.StartTime.Add(-time.Duration(d.MinutesBefore) * time.Minute)
}

// Timestamps are stamped explicitly at the call site; there are no save hooks.

func (e *Event) StampNew(now time.Time) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = now
	e.UpdatedAt = now
}

func (e *Event) Touch(now time.Time) {
	e.UpdatedAt = now
}

func (r *RecurrenceRule) StampNew(eventID string, now time.Time) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.EventID = eventID
	r.CreatedAt = now
	r.UpdatedAt = now
}

func (x *Exception) StampNew(now time.Time) {
	x.CreatedAt = now
	x.UpdatedAt = now
}

func (x *Exception) Touch(now time.Time) {
	x.UpdatedAt = now
}

func (r *Reminder) StampNew(eventID string, now time.Time) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.EventID = eventID
	r.CreatedAt = now
	r.UpdatedAt = now
}

func (r *Reminder) Touch(now time.Time) {
	r.UpdatedAt = now
}
