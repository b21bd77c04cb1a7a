package memorystorage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mkovalev/dayboard/internal/storage"
)

type Storage struct {
	mu          sync.RWMutex
	events      map[string]storage.Event
	rules       map[string]storage.RecurrenceRule
	occurrences map[string]map[int64]storage.Occurrence
	exceptions  map[string]map[int64]storage.Exception
	reminders   map[string]storage.Reminder

	// txMu serializes writers: one transaction mutates the maps at a time
	// and a snapshot taken at Begin is restored on Rollback.
	txMu sync.Mutex
}

func New() *Storage {
	return &Storage{
		events:      make(map[string]storage.Event),
		rules:       make(map[string]storage.RecurrenceRule),
		occurrences: make(map[string]map[int64]storage.Occurrence),
		exceptions:  make(map[string]map[int64]storage.Exception),
		reminders:   make(map[string]storage.Reminder),
	}
}

func (s *Storage) Connect(_ context.Context) error {
	return nil
}

func (s *Storage) Close(_ context.Context) error {
	return nil
}

func timeKey(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func (s *Storage) GetEvent(_ context.Context, id string) (storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return storage.Event{}, storage.NewNotFoundError("event", id)
	}
	s.attachLocked(&e)
	return e, nil
}

func (s *Storage) ListEvents(_ context.Context, filter storage.EventFilter) ([]storage.Event, error) {
	s.mu.RLock()
	events := make([]storage.Event, 0)
	for _, e := range s.events {
		if filter.OwnerID != "" && e.OwnerID != filter.OwnerID {
			continue
		}
		if filter.EventType != "" && e.EventType != filter.EventType {
			continue
		}
		if !s.overlapsLocked(e, filter.From, filter.To) {
			continue
		}
		s.attachLocked(&e)
		events = append(events, e)
	}
	s.mu.RUnlock()

	sort.Slice(events, func(i, j int) bool {
		if events[i].StartTime.Equal(events[j].StartTime) {
			return events[i].ID < events[j].ID
		}
		return events[i].StartTime.Before(events[j].StartTime)
	})
	return paginate(events, filter.Page, filter.PageSize), nil
}

// overlapsLocked reports whether the event can intersect [from, to]. For a
// recurring event the stored end time covers only the first instance, so the
// series is considered live until its `until` bound (or forever).
func (s *Storage) overlapsLocked(e storage.Event, from, to time.Time) bool {
	if from.IsZero() && to.IsZero() {
		return true
	}
	rule, recurring := s.rules[e.ID]
	if !recurring {
		return !e.StartTime.After(to) && !e.EndTime.Before(from)
	}
	if e.StartTime.After(to) {
		return false
	}
	return rule.Until == nil || !rule.Until.Before(from)
}

func (s *Storage) attachLocked(e *storage.Event) {
	if rule, ok := s.rules[e.ID]; ok {
		r := rule
		e.Rule = &r
	}
	var reminders []storage.Reminder
	for _, r := range s.reminders {
		if r.EventID == e.ID {
			reminders = append(reminders, r)
		}
	}
	sort.Slice(reminders, func(i, j int) bool { return reminders[i].ID < reminders[j].ID })
	e.Reminders = reminders
}

func paginate(events []storage.Event, page, pageSize int) []storage.Event {
	if pageSize <= 0 {
		return events
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	if offset >= len(events) {
		return []storage.Event{}
	}
	end := offset + pageSize
	if end > len(events) {
		end = len(events)
	}
	return events[offset:end]
}

func (s *Storage) ListOccurrences(_ context.Context, eventID string, from, to time.Time) ([]storage.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.Occurrence, 0)
	for _, o := range s.occurrences[eventID] {
		if o.StartTime.Before(from) || o.StartTime.After(to) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *Storage) ListExceptions(_ context.Context, eventID string, from, to time.Time) ([]storage.Exception, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.Exception, 0)
	for _, x := range s.exceptions[eventID] {
		if x.OriginalTime.Before(from) || x.OriginalTime.After(to) {
			continue
		}
		out = append(out, x)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OriginalTime.Before(out[j].OriginalTime) })
	return out, nil
}

func (s *Storage) GetException(_ context.Context, eventID string, originalTime time.Time) (storage.Exception, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	x, ok := s.exceptions[eventID][timeKey(originalTime)]
	if !ok {
		return storage.Exception{}, storage.NewNotFoundError("exception", eventID+"@"+originalTime.UTC().Format(time.RFC3339))
	}
	return x, nil
}

func (s *Storage) GetReminder(_ context.Context, id string) (storage.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reminders[id]
	if !ok {
		return storage.Reminder{}, storage.NewNotFoundError("reminder", id)
	}
	return r, nil
}

func (s *Storage) DueReminders(_ context.Context, from, to time.Time) ([]storage.DueReminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.DueReminder, 0)
	for _, r := range s.reminders {
		e, ok := s.events[r.EventID]
		if !ok {
			continue
		}
		// Recurring events remind from materialized occurrence rows only,
		// matching the sql storage's join.
		var starts []time.Time
		if _, recurring := s.rules[e.ID]; recurring {
			for _, o := range s.occurrences[e.ID] {
				starts = append(starts, o.StartTime)
			}
		} else {
			starts = []time.Time{e.StartTime}
		}
		for _, start := range starts {
			due := storage.DueReminder{
				EventID:       e.ID,
				Title:         e.Title,
				OwnerID:       e.OwnerID,
				StartTime:     start,
				MinutesBefore: r.MinutesBefore,
				Method:        r.Method,
			}
			notifyAt := due.NotifyAt()
			if notifyAt.Before(from) || notifyAt.After(to) {
				continue
			}
			out = append(out, due)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NotifyAt().Before(out[j].NotifyAt()) })
	return out, nil
}

func (s *Storage) AddReminder(_ context.Context, r *storage.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders[r.ID] = *r
	return nil
}

func (s *Storage) UpdateReminder(_ context.Context, r storage.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reminders[r.ID]; !ok {
		return storage.NewNotFoundError("reminder", r.ID)
	}
	s.reminders[r.ID] = r
	return nil
}

func (s *Storage) RemoveReminder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reminders[id]; !ok {
		return storage.NewNotFoundError("reminder", id)
	}
	delete(s.reminders, id)
	return nil
}

type snapshot struct {
	events      map[string]storage.Event
	rules       map[string]storage.RecurrenceRule
	occurrences map[string]map[int64]storage.Occurrence
	exceptions  map[string]map[int64]storage.Exception
	reminders   map[string]storage.Reminder
}

func (s *Storage) Begin(_ context.Context) (storage.Tx, error) {
	s.txMu.Lock()
	s.mu.RLock()
	snap := snapshot{
		events:      copyMap(s.events),
		rules:       copyMap(s.rules),
		occurrences: copyNested(s.occurrences),
		exceptions:  copyNested(s.exceptions),
		reminders:   copyMap(s.reminders),
	}
	s.mu.RUnlock()
	return &Tx{s: s, snap: snap}, nil
}

func copyMap[V any](src map[string]V) map[string]V {
	dst := make(map[string]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyNested[V any](src map[string]map[int64]V) map[string]map[int64]V {
	dst := make(map[string]map[int64]V, len(src))
	for k, inner := range src {
		m := make(map[int64]V, len(inner))
		for ik, v := range inner {
			m[ik] = v
		}
		dst[k] = m
	}
	return dst
}

type Tx struct {
	s    *Storage
	snap snapshot
	done bool
}

func (t *Tx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.txMu.Unlock()
	return nil
}

func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.mu.Lock()
	t.s.events = t.snap.events
	t.s.rules = t.snap.rules
	t.s.occurrences = t.snap.occurrences
	t.s.exceptions = t.snap.exceptions
	t.s.reminders = t.snap.reminders
	t.s.mu.Unlock()
	t.s.txMu.Unlock()
	return nil
}

func (t *Tx) AddEvent(_ context.Context, e *storage.Event) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.events[e.ID]; ok {
		return storage.NewRepositoryError("event", fmt.Errorf("duplicate id %q", e.ID))
	}
	t.s.events[e.ID] = *e
	return nil
}

func (t *Tx) UpdateEvent(_ context.Context, e storage.Event) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.events[e.ID]; !ok {
		return storage.NewNotFoundError("event", e.ID)
	}
	e.Rule = nil
	e.Reminders = nil
	e.Occurrences = nil
	t.s.events[e.ID] = e
	return nil
}

func (t *Tx) RemoveEvent(_ context.Context, id string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.events[id]; !ok {
		return storage.NewNotFoundError("event", id)
	}
	delete(t.s.events, id)
	delete(t.s.rules, id)
	delete(t.s.occurrences, id)
	delete(t.s.exceptions, id)
	for rid, r := range t.s.reminders {
		if r.EventID == id {
			delete(t.s.reminders, rid)
		}
	}
	return nil
}

func (t *Tx) AddRule(_ context.Context, r *storage.RecurrenceRule) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.rules[r.EventID] = *r
	return nil
}

func (t *Tx) AddOccurrence(_ context.Context, o storage.Occurrence) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	byTime, ok := t.s.occurrences[o.EventID]
	if !ok {
		byTime = make(map[int64]storage.Occurrence)
		t.s.occurrences[o.EventID] = byTime
	}
	byTime[timeKey(o.StartTime)] = o
	return nil
}

func (t *Tx) AddException(_ context.Context, x storage.Exception) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	byTime, ok := t.s.exceptions[x.EventID]
	if !ok {
		byTime = make(map[int64]storage.Exception)
		t.s.exceptions[x.EventID] = byTime
	}
	byTime[timeKey(x.OriginalTime)] = x
	return nil
}

func (t *Tx) UpdateException(_ context.Context, x storage.Exception) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	byTime := t.s.exceptions[x.EventID]
	if _, ok := byTime[timeKey(x.OriginalTime)]; !ok {
		return storage.NewNotFoundError("exception", x.EventID+"@"+x.OriginalTime.UTC().Format(time.RFC3339))
	}
	byTime[timeKey(x.OriginalTime)] = x
	return nil
}

func (t *Tx) AddReminder(_ context.Context, r *storage.Reminder) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.reminders[r.ID] = *r
	return nil
}
