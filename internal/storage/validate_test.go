package storage_test

import (
	"testing"
	"time"

	"github.com/mkovalev/dayboard/internal/storage"
	"github.com/stretchr/testify/require"
)

func validEvent() storage.Event {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return storage.Event{
		ID:        "e1",
		OwnerID:   "owner",
		Title:     "standup",
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
	}
}

func TestValidateEvent(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, storage.ValidateEvent(validEvent()))
	})

	t.Run("missing title", func(t *testing.T) {
		e := validEvent()
		e.Title = "  "
		err := storage.ValidateEvent(e)
		require.True(t, storage.IsKind(err, storage.KindValidation))
	})

	t.Run("end before start", func(t *testing.T) {
		e := validEvent()
		e.EndTime = e.StartTime.Add(-time.Minute)
		err := storage.ValidateEvent(e)
		require.True(t, storage.IsKind(err, storage.KindValidation))
	})

	t.Run("all-day allows equal start and end", func(t *testing.T) {
		e := validEvent()
		e.AllDay = true
		e.EndTime = e.StartTime
		require.NoError(t, storage.ValidateEvent(e))
	})

	t.Run("missing owner", func(t *testing.T) {
		e := validEvent()
		e.OwnerID = ""
		err := storage.ValidateEvent(e)
		require.True(t, storage.IsKind(err, storage.KindValidation))
	})
}

func TestValidateRule(t *testing.T) {
	t.Run("normalizes by-day codes", func(t *testing.T) {
		r := storage.RecurrenceRule{
			Frequency: storage.FrequencyWeekly,
			Interval:  1,
			ByDays:    []string{"mon", "Wednesday", "FR"},
		}
		require.NoError(t, storage.ValidateRule(&r))
		require.Equal(t, []string{"MO", "WE", "FR"}, r.ByDays)
	})

	t.Run("unknown frequency", func(t *testing.T) {
		r := storage.RecurrenceRule{Frequency: "hourly", Interval: 1}
		err := storage.ValidateRule(&r)
		require.True(t, storage.IsKind(err, storage.KindValidation))
	})

	t.Run("zero interval", func(t *testing.T) {
		r := storage.RecurrenceRule{Frequency: storage.FrequencyDaily}
		err := storage.ValidateRule(&r)
		require.True(t, storage.IsKind(err, storage.KindValidation))
	})

	t.Run("month out of range", func(t *testing.T) {
		r := storage.RecurrenceRule{Frequency: storage.FrequencyDaily, Interval: 1, ByMonths: []int{13}}
		err := storage.ValidateRule(&r)
		require.True(t, storage.IsKind(err, storage.KindValidation))
	})

	t.Run("month day out of range", func(t *testing.T) {
		r := storage.RecurrenceRule{Frequency: storage.FrequencyDaily, Interval: 1, ByMonthDays: []int{0}}
		err := storage.ValidateRule(&r)
		require.True(t, storage.IsKind(err, storage.KindValidation))
	})

	t.Run("unknown weekday", func(t *testing.T) {
		r := storage.RecurrenceRule{Frequency: storage.FrequencyWeekly, Interval: 1, ByDays: []string{"XX"}}
		err := storage.ValidateRule(&r)
		require.True(t, storage.IsKind(err, storage.KindValidation))
	})
}

func TestValidateReminder(t *testing.T) {
	require.NoError(t, storage.ValidateReminder(storage.Reminder{
		MinutesBefore: 10, Method: storage.ReminderMethodPush,
	}))

	err := storage.ValidateReminder(storage.Reminder{MinutesBefore: -1, Method: storage.ReminderMethodPush})
	require.True(t, storage.IsKind(err, storage.KindValidation))

	err = storage.ValidateReminder(storage.Reminder{MinutesBefore: 5, Method: "pigeon"})
	require.True(t, storage.IsKind(err, storage.KindValidation))
}

func TestErrorKinds(t *testing.T) {
	err := storage.NewNotFoundError("event", "nope")
	require.Equal(t, storage.KindNotFound, storage.KindOf(err))
	require.False(t, storage.IsKind(err, storage.KindValidation))
	require.Equal(t, storage.KindUnknown, storage.KindOf(nil))
}
