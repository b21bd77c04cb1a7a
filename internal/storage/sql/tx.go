package sqlstorage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mkovalev/dayboard/internal/storage"
)

func (s *Storage) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storage.NewTransactionError("begin", err)
	}
	return &Tx{tx: tx}, nil
}

type Tx struct {
	tx   *sqlx.Tx
	done bool
}

func (t *Tx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return storage.NewTransactionError("commit", err)
	}
	return nil
}

func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil {
		return storage.NewTransactionError("rollback", err)
	}
	return nil
}

func (t *Tx) AddEvent(ctx context.Context, e *storage.Event) error {
	_, err := t.tx.ExecContext(
		ctx,
		"INSERT INTO events(id, owner_id, title, description, event_type, start_timestamp, "+
			"end_timestamp, all_day, location, color, transparency, created_at, updated_at) "+
			"VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)",
		e.ID, e.OwnerID, e.Title, e.Description, e.EventType, e.StartTime.UTC(), e.EndTime.UTC(),
		e.AllDay, e.Location, e.Color, e.Transparency, e.CreatedAt.UTC(), e.UpdatedAt.UTC(),
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == dbErrUniqueViolation {
		return storage.NewRepositoryError("event", fmt.Errorf("duplicate id %q", e.ID))
	}
	if err != nil {
		return storage.NewRepositoryError("event", err)
	}
	return nil
}

func (t *Tx) UpdateEvent(ctx context.Context, e storage.Event) error {
	return execExpectingRow(
		ctx, t.tx, "event", e.ID,
		"UPDATE events SET title=$2, description=$3, event_type=$4, start_timestamp=$5, "+
			"end_timestamp=$6, all_day=$7, location=$8, color=$9, transparency=$10, updated_at=$11 "+
			"WHERE id=$1 RETURNING TRUE",
		e.ID, e.Title, e.Description, e.EventType, e.StartTime.UTC(), e.EndTime.UTC(),
		e.AllDay, e.Location, e.Color, e.Transparency, e.UpdatedAt.UTC(),
	)
}

func (t *Tx) RemoveEvent(ctx context.Context, id string) error {
	return execExpectingRow(
		ctx, t.tx, "event", id,
		"DELETE FROM events WHERE id=$1 RETURNING TRUE",
		id,
	)
}

func (t *Tx) AddRule(ctx context.Context, r *storage.RecurrenceRule) error {
	months := make(pq.Int64Array, 0, len(r.ByMonths))
	for _, m := range r.ByMonths {
		months = append(months, int64(m))
	}
	days := make(pq.Int64Array, 0, len(r.ByMonthDays))
	for _, d := range r.ByMonthDays {
		days = append(days, int64(d))
	}
	var until interface{}
	if r.Until != nil {
		until = r.Until.UTC()
	}
	_, err := t.tx.ExecContext(
		ctx,
		"INSERT INTO recurrence_rules(id, event_id, frequency, step_interval, by_days, by_months, "+
			"by_month_days, occurrence_count, until_timestamp, created_at, updated_at) "+
			"VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		r.ID, r.EventID, string(r.Frequency), r.Interval, pq.StringArray(r.ByDays), months, days,
		r.Count, until, r.CreatedAt.UTC(), r.UpdatedAt.UTC(),
	)
	if err != nil {
		return storage.NewRepositoryError("recurrenceRule", err)
	}
	return nil
}

func (t *Tx) AddOccurrence(ctx context.Context, o storage.Occurrence) error {
	_, err := t.tx.ExecContext(
		ctx,
		"INSERT INTO event_occurrences(event_id, start_timestamp, status) VALUES($1, $2, $3) "+
			"ON CONFLICT (event_id, start_timestamp) DO UPDATE SET status=EXCLUDED.status",
		o.EventID, o.StartTime.UTC(), o.Status,
	)
	if err != nil {
		return storage.NewRepositoryError("occurrence", err)
	}
	return nil
}

func (t *Tx) AddException(ctx context.Context, x storage.Exception) error {
	_, err := t.tx.ExecContext(
		ctx,
		"INSERT INTO event_exceptions(event_id, original_timestamp, start_timestamp, end_timestamp, "+
			"title, description, location, color, transparency, deleted, created_at, updated_at) "+
			"VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) "+
			"ON CONFLICT (event_id, original_timestamp) DO UPDATE SET "+
			"start_timestamp=EXCLUDED.start_timestamp, end_timestamp=EXCLUDED.end_timestamp, "+
			"title=EXCLUDED.title, description=EXCLUDED.description, location=EXCLUDED.location, "+
			"color=EXCLUDED.color, transparency=EXCLUDED.transparency, deleted=EXCLUDED.deleted, "+
			"updated_at=EXCLUDED.updated_at",
		x.EventID, x.OriginalTime.UTC(), utcOrNil(x.StartTime), utcOrNil(x.EndTime),
		x.Title, x.Description, x.Location, x.Color, x.Transparency,
		x.Deleted, x.CreatedAt.UTC(), x.UpdatedAt.UTC(),
	)
	if err != nil {
		return storage.NewRepositoryError("exception", err)
	}
	return nil
}

func (t *Tx) UpdateException(ctx context.Context, x storage.Exception) error {
	return execExpectingRow(
		ctx, t.tx, "exception", x.EventID,
		"UPDATE event_exceptions SET start_timestamp=$3, end_timestamp=$4, title=$5, description=$6, "+
			"location=$7, color=$8, transparency=$9, deleted=$10, updated_at=$11 "+
			"WHERE event_id=$1 AND original_timestamp=$2 RETURNING TRUE",
		x.EventID, x.OriginalTime.UTC(), utcOrNil(x.StartTime), utcOrNil(x.EndTime),
		x.Title, x.Description, x.Location, x.Color, x.Transparency, x.Deleted, x.UpdatedAt.UTC(),
	)
}

func (t *Tx) AddReminder(ctx context.Context, r *storage.Reminder) error {
	_, err := t.tx.ExecContext(
		ctx,
		"INSERT INTO event_reminders(id, event_id, minutes_before, method, created_at, updated_at) "+
			"VALUES($1, $2, $3, $4, $5, $6)",
		r.ID, r.EventID, r.MinutesBefore, r.Method, r.CreatedAt.UTC(), r.UpdatedAt.UTC(),
	)
	if err != nil {
		return storage.NewRepositoryError("reminder", err)
	}
	return nil
}

func utcOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
