package storage

import (
	"context"
	"time"
)

// Storage is the repository contract consumed by the app layer. Reads run
// directly against the store; every mutation except the standalone reminder
// operations goes through a Tx.
type Storage interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	Begin(ctx context.Context) (Tx, error)

	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	ListOccurrences(ctx context.Context, eventID string, from, to time.Time) ([]Occurrence, error)
	ListExceptions(ctx context.Context, eventID string, from, to time.Time) ([]Exception, error)
	GetException(ctx context.Context, eventID string, originalTime time.Time) (Exception, error)
	GetReminder(ctx context.Context, id string) (Reminder, error)
	DueReminders(ctx context.Context, from, to time.Time) ([]DueReminder, error)

	AddReminder(ctx context.Context, r *Reminder) error
	UpdateReminder(ctx context.Context, r Reminder) error
	RemoveReminder(ctx context.Context, id string) error
}

// Tx scopes a sequence of mutations to one request. Rollback after Commit
// (or after a previous Rollback) is a no-op, so callers can defer it
// unconditionally on non-commit exit paths.
type Tx interface {
	AddEvent(ctx context.Context, e *Event) error
	UpdateEvent(ctx context.Context, e Event) error
	RemoveEvent(ctx context.Context, id string) error
	AddRule(ctx context.Context, r *RecurrenceRule) error
	AddOccurrence(ctx context.Context, o Occurrence) error
	AddException(ctx context.Context, x Exception) error
	UpdateException(ctx context.Context, x Exception) error
	AddReminder(ctx context.Context, r *Reminder) error
	Commit() error
	Rollback() error
}
