package app

import (
	"context"
	"testing"
	"time"

	"github.com/mkovalev/dayboard/internal/storage"
	memorystorage "github.com/mkovalev/dayboard/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

func ts(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestApp(now time.Time) *App {
	a := New(memorystorage.New())
	a.now = func() time.Time { return now }
	return a
}

func createRequest(start time.Time) CreateEventRequest {
	return CreateEventRequest{
		Title:     "standup",
		EventType: "meeting",
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
	}
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	now := ts("2024-01-01T00:00:00Z")

	t.Run("plain event", func(t *testing.T) {
		a := newTestApp(now)
		e, err := a.CreateEvent(ctx, "alice", createRequest(ts("2024-01-10T09:00:00Z")))
		require.NoError(t, err)
		require.NotEmpty(t, e.ID)
		require.Equal(t, "alice", e.OwnerID)
		require.True(t, e.CreatedAt.Equal(now))

		got, err := a.GetEventByID(ctx, e.ID)
		require.NoError(t, err)
		require.Equal(t, "standup", got.Title)
		require.Nil(t, got.Rule)
	})

	t.Run("validation failure leaves nothing behind", func(t *testing.T) {
		a := newTestApp(now)
		req := createRequest(ts("2024-01-10T09:00:00Z"))
		req.Title = ""
		_, err := a.CreateEvent(ctx, "alice", req)
		require.True(t, storage.IsKind(err, storage.KindValidation))

		events, err := a.Storage.ListEvents(ctx, storage.EventFilter{OwnerID: "alice"})
		require.NoError(t, err)
		require.Empty(t, events)
	})

	t.Run("recurring event materializes occurrences", func(t *testing.T) {
		a := newTestApp(now)
		req := createRequest(ts("2024-01-10T09:00:00Z"))
		req.Rule = &RuleRequest{Frequency: storage.FrequencyDaily, Interval: 1, Count: 5}
		e, err := a.CreateEvent(ctx, "alice", req)
		require.NoError(t, err)
		require.NotNil(t, e.Rule)

		occs, err := a.ListOccurrences(ctx, e.ID, ts("2024-01-01T00:00:00Z"), ts("2024-02-01T00:00:00Z"))
		require.NoError(t, err)
		require.Len(t, occs, 5)
		require.True(t, occs[0].StartTime.Equal(ts("2024-01-10T09:00:00Z")))
		require.True(t, occs[4].StartTime.Equal(ts("2024-01-14T09:00:00Z")))
	})

	t.Run("bad reminder rolls back the whole create", func(t *testing.T) {
		a := newTestApp(now)
		req := createRequest(ts("2024-01-10T09:00:00Z"))
		req.Reminders = []ReminderRequest{{MinutesBefore: 10, Method: "pigeon"}}
		_, err := a.CreateEvent(ctx, "alice", req)
		require.True(t, storage.IsKind(err, storage.KindValidation))

		events, err := a.Storage.ListEvents(ctx, storage.EventFilter{OwnerID: "alice"})
		require.NoError(t, err)
		require.Empty(t, events)
	})

	t.Run("bad rule rejects the create", func(t *testing.T) {
		a := newTestApp(now)
		req := createRequest(ts("2024-01-10T09:00:00Z"))
		req.Rule = &RuleRequest{Frequency: "hourly", Interval: 1}
		_, err := a.CreateEvent(ctx, "alice", req)
		require.True(t, storage.IsKind(err, storage.KindValidation))
	})
}

func TestUpdateEvent(t *testing.T) {
	ctx := context.Background()
	now := ts("2024-01-05T00:00:00Z")

	t.Run("not found", func(t *testing.T) {
		a := newTestApp(now)
		_, err := a.UpdateEvent(ctx, "missing", UpdateEventRequest{})
		require.True(t, storage.IsKind(err, storage.KindNotFound))
	})

	t.Run("partial update", func(t *testing.T) {
		a := newTestApp(now)
		e, err := a.CreateEvent(ctx, "alice", createRequest(ts("2024-01-10T09:00:00Z")))
		require.NoError(t, err)

		title := "renamed"
		updated, err := a.UpdateEvent(ctx, e.ID, UpdateEventRequest{Title: &title})
		require.NoError(t, err)
		require.Equal(t, "renamed", updated.Title)
		require.True(t, updated.StartTime.Equal(e.StartTime))
	})

	t.Run("start-only move keeps the duration", func(t *testing.T) {
		a := newTestApp(now)
		e, err := a.CreateEvent(ctx, "alice", createRequest(ts("2024-01-10T09:00:00Z")))
		require.NoError(t, err)

		// The new start lies past the old end; the end must travel with it.
		newStart := ts("2024-01-12T09:00:00Z")
		updated, err := a.UpdateEvent(ctx, e.ID, UpdateEventRequest{StartTime: &newStart})
		require.NoError(t, err)
		require.True(t, updated.StartTime.Equal(newStart))
		require.True(t, updated.EndTime.Equal(newStart.Add(30*time.Minute)))
	})

	t.Run("explicit end wins over the shifted one", func(t *testing.T) {
		a := newTestApp(now)
		e, err := a.CreateEvent(ctx, "alice", createRequest(ts("2024-01-10T09:00:00Z")))
		require.NoError(t, err)

		newStart := ts("2024-01-12T09:00:00Z")
		newEnd := ts("2024-01-12T11:00:00Z")
		updated, err := a.UpdateEvent(ctx, e.ID, UpdateEventRequest{StartTime: &newStart, EndTime: &newEnd})
		require.NoError(t, err)
		require.True(t, updated.EndTime.Equal(newEnd))
	})

	t.Run("invalid update aborts before persisting", func(t *testing.T) {
		a := newTestApp(now)
		e, err := a.CreateEvent(ctx, "alice", createRequest(ts("2024-01-10T09:00:00Z")))
		require.NoError(t, err)

		badEnd := e.StartTime.Add(-time.Hour)
		_, err = a.UpdateEvent(ctx, e.ID, UpdateEventRequest{EndTime: &badEnd})
		require.True(t, storage.IsKind(err, storage.KindValidation))

		got, err := a.GetEventByID(ctx, e.ID)
		require.NoError(t, err)
		require.True(t, got.EndTime.Equal(e.EndTime))
	})
}

func TestUpdateEventShiftsFutureExceptions(t *testing.T) {
	ctx := context.Background()
	now := ts("2024-01-05T00:00:00Z")
	a := newTestApp(now)

	req := createRequest(ts("2024-01-10T09:00:00Z"))
	req.Rule = &RuleRequest{Frequency: storage.FrequencyWeekly, Interval: 1, Count: 10}
	e, err := a.CreateEvent(ctx, "alice", req)
	require.NoError(t, err)

	// Future occurrence moved by an override.
	futureOverride := ts("2024-01-17T14:00:00Z")
	_, err = a.UpdateOccurrence(ctx, e.ID, ts("2024-01-17T09:00:00Z"),
		UpdateOccurrenceRequest{StartTime: &futureOverride})
	require.NoError(t, err)

	// Override anchored before "now" must stay untouched.
	pastOverride := ts("2023-12-27T11:00:00Z")
	_, err = a.UpdateOccurrence(ctx, e.ID, ts("2023-12-27T09:00:00Z"),
		UpdateOccurrenceRequest{StartTime: &pastOverride})
	require.NoError(t, err)

	newStart := ts("2024-01-12T09:00:00Z")
	_, err = a.UpdateEvent(ctx, e.ID, UpdateEventRequest{StartTime: &newStart})
	require.NoError(t, err)

	future, err := a.Storage.GetException(ctx, e.ID, ts("2024-01-17T09:00:00Z"))
	require.NoError(t, err)
	require.True(t, future.StartTime.Equal(ts("2024-01-19T14:00:00Z")),
		"override start should shift by the two-day delta, got %s", future.StartTime)

	past, err := a.Storage.GetException(ctx, e.ID, ts("2023-12-27T09:00:00Z"))
	require.NoError(t, err)
	require.True(t, past.StartTime.Equal(pastOverride))
}

func TestUpdateOccurrence(t *testing.T) {
	ctx := context.Background()
	now := ts("2024-01-01T00:00:00Z")

	t.Run("rejects non-recurring event", func(t *testing.T) {
		a := newTestApp(now)
		e, err := a.CreateEvent(ctx, "alice", createRequest(ts("2024-01-10T09:00:00Z")))
		require.NoError(t, err)

		_, err = a.UpdateOccurrence(ctx, e.ID, e.StartTime, UpdateOccurrenceRequest{})
		require.True(t, storage.IsKind(err, storage.KindValidation))
	})

	t.Run("override precedence in listing", func(t *testing.T) {
		a := newTestApp(now)
		req := createRequest(ts("2024-01-10T09:00:00Z"))
		req.Rule = &RuleRequest{Frequency: storage.FrequencyDaily, Interval: 1, Count: 3}
		e, err := a.CreateEvent(ctx, "alice", req)
		require.NoError(t, err)

		moved := ts("2024-01-11T15:00:00Z")
		_, err = a.UpdateOccurrence(ctx, e.ID, ts("2024-01-11T09:00:00Z"),
			UpdateOccurrenceRequest{StartTime: &moved})
		require.NoError(t, err)

		occs, err := a.ListOccurrences(ctx, e.ID, ts("2024-01-01T00:00:00Z"), ts("2024-02-01T00:00:00Z"))
		require.NoError(t, err)
		require.Len(t, occs, 3)
		require.True(t, occs[0].StartTime.Equal(ts("2024-01-10T09:00:00Z")))
		require.True(t, occs[1].StartTime.Equal(moved))
		require.True(t, occs[1].OriginalTime.Equal(ts("2024-01-11T09:00:00Z")))
		require.True(t, occs[2].StartTime.Equal(ts("2024-01-12T09:00:00Z")))
	})

	t.Run("second edit mutates the same exception", func(t *testing.T) {
		a := newTestApp(now)
		req := createRequest(ts("2024-01-10T09:00:00Z"))
		req.Rule = &RuleRequest{Frequency: storage.FrequencyDaily, Interval: 1, Count: 3}
		e, err := a.CreateEvent(ctx, "alice", req)
		require.NoError(t, err)

		original := ts("2024-01-11T09:00:00Z")
		title := "moved standup"
		_, err = a.UpdateOccurrence(ctx, e.ID, original, UpdateOccurrenceRequest{Title: &title})
		require.NoError(t, err)

		moved := ts("2024-01-11T15:00:00Z")
		x, err := a.UpdateOccurrence(ctx, e.ID, original, UpdateOccurrenceRequest{StartTime: &moved})
		require.NoError(t, err)

		// Earlier override fields survive the second edit.
		require.NotNil(t, x.Title)
		require.Equal(t, "moved standup", *x.Title)
		require.True(t, x.StartTime.Equal(moved))

		exceptions, err := a.Storage.ListExceptions(ctx, e.ID,
			ts("2024-01-01T00:00:00Z"), ts("2024-02-01T00:00:00Z"))
		require.NoError(t, err)
		require.Len(t, exceptions, 1)
	})
}

func TestDeleteOccurrenceIdempotent(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(ts("2024-01-01T00:00:00Z"))

	req := createRequest(ts("2024-01-10T09:00:00Z"))
	req.Rule = &RuleRequest{Frequency: storage.FrequencyDaily, Interval: 1, Count: 3}
	e, err := a.CreateEvent(ctx, "alice", req)
	require.NoError(t, err)

	target := ts("2024-01-11T09:00:00Z")
	from, to := ts("2024-01-01T00:00:00Z"), ts("2024-02-01T00:00:00Z")

	for i := 0; i < 2; i++ {
		require.NoError(t, a.DeleteOccurrence(ctx, e.ID, target))

		occs, err := a.ListOccurrences(ctx, e.ID, from, to)
		require.NoError(t, err)
		require.Len(t, occs, 2)
		for _, o := range occs {
			require.False(t, o.OriginalTime.Equal(target))
		}

		exceptions, err := a.Storage.ListExceptions(ctx, e.ID, from, to)
		require.NoError(t, err)
		require.Len(t, exceptions, 1)
		require.True(t, exceptions[0].Deleted)
	}
}

func TestListEventsReExpandsOverQueryWindow(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(ts("2024-01-01T00:00:00Z"))

	req := createRequest(ts("2024-01-01T09:00:00Z"))
	req.Rule = &RuleRequest{Frequency: storage.FrequencyWeekly, Interval: 1}
	e, err := a.CreateEvent(ctx, "alice", req)
	require.NoError(t, err)

	single, err := a.CreateEvent(ctx, "alice", createRequest(ts("2025-06-02T10:00:00Z")))
	require.NoError(t, err)

	// Window beyond the one-year materialization horizon: stored occurrence
	// rows end earlier, live expansion still answers.
	from, to := ts("2025-06-01T00:00:00Z"), ts("2025-06-15T00:00:00Z")
	events, err := a.ListEvents(ctx, storage.EventFilter{OwnerID: "alice", From: from, To: to})
	require.NoError(t, err)
	require.Len(t, events, 2)

	var recurring, plain storage.Event
	for _, got := range events {
		if got.ID == e.ID {
			recurring = got
		}
		if got.ID == single.ID {
			plain = got
		}
	}
	require.Len(t, recurring.Occurrences, 2)
	require.True(t, recurring.Occurrences[0].StartTime.Equal(ts("2025-06-02T09:00:00Z")))
	require.True(t, recurring.Occurrences[1].StartTime.Equal(ts("2025-06-09T09:00:00Z")))
	require.Empty(t, plain.Occurrences)

	// The materialized view disagrees past the horizon, by design.
	stored, err := a.ListOccurrences(ctx, e.ID, from, to)
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestListEventsAppliesExceptions(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(ts("2024-01-01T00:00:00Z"))

	req := createRequest(ts("2024-01-10T09:00:00Z"))
	req.Rule = &RuleRequest{Frequency: storage.FrequencyDaily, Interval: 1, Count: 3}
	e, err := a.CreateEvent(ctx, "alice", req)
	require.NoError(t, err)

	require.NoError(t, a.DeleteOccurrence(ctx, e.ID, ts("2024-01-11T09:00:00Z")))

	events, err := a.ListEvents(ctx, storage.EventFilter{
		OwnerID: "alice",
		From:    ts("2024-01-01T00:00:00Z"),
		To:      ts("2024-02-01T00:00:00Z"),
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Len(t, events[0].Occurrences, 2)
	for _, o := range events[0].Occurrences {
		require.False(t, o.OriginalTime.Equal(ts("2024-01-11T09:00:00Z")))
	}
}

func TestReminders(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(ts("2024-01-01T00:00:00Z"))

	e, err := a.CreateEvent(ctx, "alice", createRequest(ts("2024-01-10T09:00:00Z")))
	require.NoError(t, err)

	r, err := a.AddReminder(ctx, e.ID, ReminderRequest{MinutesBefore: 15, Method: storage.ReminderMethodPush})
	require.NoError(t, err)
	require.NotEmpty(t, r.ID)

	_, err = a.AddReminder(ctx, e.ID, ReminderRequest{MinutesBefore: -5, Method: storage.ReminderMethodPush})
	require.True(t, storage.IsKind(err, storage.KindValidation))

	_, err = a.AddReminder(ctx, "missing", ReminderRequest{MinutesBefore: 5, Method: storage.ReminderMethodPush})
	require.True(t, storage.IsKind(err, storage.KindNotFound))

	updated, err := a.UpdateReminder(ctx, r.ID, ReminderRequest{MinutesBefore: 30, Method: storage.ReminderMethodEmail})
	require.NoError(t, err)
	require.Equal(t, 30, updated.MinutesBefore)
	require.Equal(t, storage.ReminderMethodEmail, updated.Method)

	require.NoError(t, a.DeleteReminder(ctx, r.ID))
	err = a.DeleteReminder(ctx, r.ID)
	require.True(t, storage.IsKind(err, storage.KindNotFound))
}

func TestDeleteEvent(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(ts("2024-01-01T00:00:00Z"))

	e, err := a.CreateEvent(ctx, "alice", createRequest(ts("2024-01-10T09:00:00Z")))
	require.NoError(t, err)

	require.NoError(t, a.DeleteEvent(ctx, e.ID))
	err = a.DeleteEvent(ctx, e.ID)
	require.True(t, storage.IsKind(err, storage.KindNotFound))
}
