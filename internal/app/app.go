package app

import (
	"context"
	"time"

	"github.com/mkovalev/dayboard/internal/recurrence"
	"github.com/mkovalev/dayboard/internal/storage"
	log "github.com/sirupsen/logrus"
)

// shiftLookaheadYears bounds how far into the future exception overrides are
// re-anchored when a recurring event's schedule moves.
const shiftLookaheadYears = 10

type App struct {
	Storage storage.Storage
	now     func() time.Time
}

func New(storage storage.Storage) *App {
	return &App{Storage: storage, now: time.Now}
}

// inTx runs fn inside one request-scoped transaction. Every exit path that
// is not a successful commit rolls back, so partial writes are never
// observable.
func (a *App) inTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := a.Storage.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Errorf("rollback failed: %v", rbErr)
		}
		return err
	}
	return tx.Commit()
}

// CreateEvent validates and persists an event together with its recurrence
// rule, materialized occurrences and reminders, all or nothing.
func (a *App) CreateEvent(ctx context.Context, ownerID string, req CreateEventRequest) (storage.Event, error) {
	now := a.now()

	e := storage.Event{
		OwnerID:      ownerID,
		Title:        req.Title,
		Description:  req.Description,
		EventType:    req.EventType,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		AllDay:       req.AllDay,
		Location:     req.Location,
		Color:        req.Color,
		Transparency: req.Transparency,
	}
	e.StampNew(now)
	if err := storage.ValidateEvent(e); err != nil {
		return storage.Event{}, err
	}

	var rule *storage.RecurrenceRule
	if req.Rule != nil {
		r := req.Rule.toRule()
		r.StampNew(e.ID, now)
		if err := storage.ValidateRule(&r); err != nil {
			return storage.Event{}, err
		}
		rule = &r
	}

	reminders := make([]storage.Reminder, 0, len(req.Reminders))
	for _, rr := range req.Reminders {
		r := storage.Reminder{MinutesBefore: rr.MinutesBefore, Method: rr.Method}
		r.StampNew(e.ID, now)
		if err := storage.ValidateReminder(r); err != nil {
			return storage.Event{}, err
		}
		reminders = append(reminders, r)
	}

	err := a.inTx(ctx, func(tx storage.Tx) error {
		if err := tx.AddEvent(ctx, &e); err != nil {
			return err
		}
		if rule != nil {
			if err := tx.AddRule(ctx, rule); err != nil {
				return err
			}
			for _, t := range recurrence.Expand(e.StartTime, *rule) {
				occ := storage.Occurrence{
					EventID:   e.ID,
					StartTime: t,
					Status:    storage.OccurrenceStatusScheduled,
				}
				if err := tx.AddOccurrence(ctx, occ); err != nil {
					return err
				}
			}
		}
		for i := range reminders {
			if err := tx.AddReminder(ctx, &reminders[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storage.Event{}, err
	}

	e.Rule = rule
	e.Reminders = reminders
	return e, nil
}

// UpdateEvent applies partial field updates to an event. When the start or
// end of a recurring event moves, every future exception's override times
// are shifted by the start delta so per-occurrence edits stay consistent
// with the new schedule. Materialized occurrence rows are left as created.
func (a *App) UpdateEvent(ctx context.Context, id string, req UpdateEventRequest) (storage.Event, error) {
	e, err := a.Storage.GetEvent(ctx, id)
	if err != nil {
		return storage.Event{}, err
	}
	now := a.now()

	oldStart := e.StartTime
	startChanged := req.StartTime != nil && !req.StartTime.Equal(e.StartTime)
	endChanged := req.EndTime != nil && !req.EndTime.Equal(e.EndTime)
	var delta time.Duration
	if startChanged {
		delta = req.StartTime.Sub(oldStart)
	}
	// A start-only move keeps the event's duration: the end travels with it.
	if startChanged && req.EndTime == nil {
		end := e.EndTime.Add(delta)
		req.EndTime = &end
	}

	applyEventUpdates(&e, req)
	e.Touch(now)
	if err := storage.ValidateEvent(e); err != nil {
		return storage.Event{}, err
	}

	err = a.inTx(ctx, func(tx storage.Tx) error {
		if err := tx.UpdateEvent(ctx, e); err != nil {
			return err
		}
		if e.Rule == nil || (!startChanged && !endChanged) || delta == 0 {
			return nil
		}
		exceptions, err := a.Storage.ListExceptions(ctx, e.ID, now, now.AddDate(shiftLookaheadYears, 0, 0))
		if err != nil {
			return err
		}
		for _, x := range exceptions {
			if x.StartTime == nil && x.EndTime == nil {
				continue
			}
			if x.StartTime != nil {
				shifted := x.StartTime.Add(delta)
				x.StartTime = &shifted
			}
			if x.EndTime != nil {
				shifted := x.EndTime.Add(delta)
				x.EndTime = &shifted
			}
			x.Touch(now)
			if err := tx.UpdateException(ctx, x); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storage.Event{}, err
	}
	return e, nil
}

func applyEventUpdates(e *storage.Event, req UpdateEventRequest) {
	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.EventType != nil {
		e.EventType = *req.EventType
	}
	if req.StartTime != nil {
		e.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		e.EndTime = *req.EndTime
	}
	if req.AllDay != nil {
		e.AllDay = *req.AllDay
	}
	if req.Location != nil {
		e.Location = *req.Location
	}
	if req.Color != nil {
		e.Color = *req.Color
	}
	if req.Transparency != nil {
		e.Transparency = *req.Transparency
	}
}

func (a *App) DeleteEvent(ctx context.Context, id string) error {
	if _, err := a.Storage.GetEvent(ctx, id); err != nil {
		return err
	}
	return a.inTx(ctx, func(tx storage.Tx) error {
		return tx.RemoveEvent(ctx, id)
	})
}

func (a *App) GetEventByID(ctx context.Context, id string) (storage.Event, error) {
	return a.Storage.GetEvent(ctx, id)
}

// UpdateOccurrence upserts an exception for one occurrence of a recurring
// event. Only the fields present in the request end up overridden.
func (a *App) UpdateOccurrence(
	ctx context.Context,
	eventID string,
	originalTime time.Time,
	req UpdateOccurrenceRequest,
) (storage.Exception, error) {
	x, existing, err := a.loadException(ctx, eventID, originalTime)
	if err != nil {
		return storage.Exception{}, err
	}

	now := a.now()
	if req.StartTime != nil {
		x.StartTime = req.StartTime
	}
	if req.EndTime != nil {
		x.EndTime = req.EndTime
	}
	if req.Title != nil {
		x.Title = req.Title
	}
	if req.Description != nil {
		x.Description = req.Description
	}
	if req.Location != nil {
		x.Location = req.Location
	}
	if req.Color != nil {
		x.Color = req.Color
	}
	if req.Transparency != nil {
		x.Transparency = req.Transparency
	}
	x.Touch(now)

	err = a.upsertException(ctx, x, existing)
	if err != nil {
		return storage.Exception{}, err
	}
	return x, nil
}

// DeleteOccurrence suppresses one occurrence by marking (or creating) its
// exception as deleted. Deleting an already-deleted occurrence is a no-op
// that leaves the single deleted row in place.
func (a *App) DeleteOccurrence(ctx context.Context, eventID string, originalTime time.Time) error {
	x, existing, err := a.loadException(ctx, eventID, originalTime)
	if err != nil {
		return err
	}
	x.Deleted = true
	x.Touch(a.now())
	return a.upsertException(ctx, x, existing)
}

func (a *App) loadException(
	ctx context.Context,
	eventID string,
	originalTime time.Time,
) (storage.Exception, bool, error) {
	e, err := a.Storage.GetEvent(ctx, eventID)
	if err != nil {
		return storage.Exception{}, false, err
	}
	if e.Rule == nil {
		return storage.Exception{}, false,
			storage.NewValidationError("event", "recurrenceRule", "event is not recurring")
	}

	x, err := a.Storage.GetException(ctx, eventID, originalTime)
	switch {
	case storage.IsKind(err, storage.KindNotFound):
		x = storage.Exception{EventID: eventID, OriginalTime: originalTime}
		x.StampNew(a.now())
		return x, false, nil
	case err != nil:
		return storage.Exception{}, false, err
	default:
		return x, true, nil
	}
}

func (a *App) upsertException(ctx context.Context, x storage.Exception, existing bool) error {
	return a.inTx(ctx, func(tx storage.Tx) error {
		if existing {
			return tx.UpdateException(ctx, x)
		}
		return tx.AddException(ctx, x)
	})
}

// ListEvents answers a range query. Recurring events are re-expanded over
// the requested window rather than read from materialized rows, so the
// answer does not depend on how far occurrences were generated at creation
// time.
func (a *App) ListEvents(ctx context.Context, filter storage.EventFilter) ([]storage.Event, error) {
	events, err := a.Storage.ListEvents(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range events {
		e := &events[i]
		if e.Rule == nil {
			continue
		}
		times := recurrence.ExpandRange(e.StartTime, *e.Rule, filter.From, filter.To)
		occurrences := make([]storage.Occurrence, 0, len(times))
		for _, t := range times {
			occurrences = append(occurrences, storage.Occurrence{
				EventID:   e.ID,
				StartTime: t,
				Status:    storage.OccurrenceStatusScheduled,
			})
		}
		exceptions, err := a.Storage.ListExceptions(ctx, e.ID, filter.From, filter.To)
		if err != nil {
			return nil, err
		}
		e.Occurrences = recurrence.Resolve(occurrences, exceptions)
	}
	return events, nil
}

// ListOccurrences reads the materialized occurrences of one event and
// overlays exceptions. Unlike ListEvents it does not re-expand the rule, so
// past the materialization horizon it returns nothing.
func (a *App) ListOccurrences(
	ctx context.Context,
	eventID string,
	from, to time.Time,
) ([]storage.ResolvedOccurrence, error) {
	if _, err := a.Storage.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	occurrences, err := a.Storage.ListOccurrences(ctx, eventID, from, to)
	if err != nil {
		return nil, err
	}
	exceptions, err := a.Storage.ListExceptions(ctx, eventID, from, to)
	if err != nil {
		return nil, err
	}
	return recurrence.Resolve(occurrences, exceptions), nil
}

func (a *App) AddReminder(ctx context.Context, eventID string, req ReminderRequest) (storage.Reminder, error) {
	if _, err := a.Storage.GetEvent(ctx, eventID); err != nil {
		return storage.Reminder{}, err
	}
	r := storage.Reminder{MinutesBefore: req.MinutesBefore, Method: req.Method}
	r.StampNew(eventID, a.now())
	if err := storage.ValidateReminder(r); err != nil {
		return storage.Reminder{}, err
	}
	if err := a.Storage.AddReminder(ctx, &r); err != nil {
		return storage.Reminder{}, err
	}
	return r, nil
}

func (a *App) UpdateReminder(ctx context.Context, id string, req ReminderRequest) (storage.Reminder, error) {
	r, err := a.Storage.GetReminder(ctx, id)
	if err != nil {
		return storage.Reminder{}, err
	}
	r.MinutesBefore = req.MinutesBefore
	r.Method = req.Method
	r.Touch(a.now())
	if err := storage.ValidateReminder(r); err != nil {
		return storage.Reminder{}, err
	}
	if err := a.Storage.UpdateReminder(ctx, r); err != nil {
		return storage.Reminder{}, err
	}
	return r, nil
}

func (a *App) DeleteReminder(ctx context.Context, id string) error {
	return a.Storage.RemoveReminder(ctx, id)
}
