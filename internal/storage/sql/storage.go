package sqlstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mkovalev/dayboard/internal/storage"
	log "github.com/sirupsen/logrus"
)

var ErrConnectionFailed = errors.New("failed to connect")

const dbErrUniqueViolation = "23505"

type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

type Storage struct {
	host     string
	port     int
	database string
	username string
	password string
	db       *sqlx.DB
}

func New(config Config) *Storage {
	return &Storage{
		host:     config.Host,
		port:     config.Port,
		database: config.Database,
		username: config.Username,
		password: config.Password,
	}
}

func (s *Storage) Connect(ctx context.Context) error {
	db, err := sqlx.ConnectContext(
		ctx,
		"postgres",
		fmt.Sprintf(
			"sslmode=disable host=%s port=%d dbname=%s user=%s password=%s",
			s.host, s.port, s.database, s.username, s.password),
	)
	if err != nil {
		log.Errorf("failed to connect: %v", err)
		return ErrConnectionFailed
	}
	s.db = db
	return nil
}

func (s *Storage) Close(_ context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

const eventColumns = "id, owner_id AS ownerId, title, description, event_type AS eventType, " +
	"start_timestamp AS startTime, end_timestamp AS endTime, all_day AS allDay, location, color, " +
	"transparency, created_at AS createdAt, updated_at AS updatedAt"

const qualifiedEventColumns = "e.id, e.owner_id AS ownerId, e.title, e.description, " +
	"e.event_type AS eventType, e.start_timestamp AS startTime, e.end_timestamp AS endTime, " +
	"e.all_day AS allDay, e.location, e.color, e.transparency, " +
	"e.created_at AS createdAt, e.updated_at AS updatedAt"

func (s *Storage) GetEvent(ctx context.Context, id string) (storage.Event, error) {
	var e storage.Event
	err := s.db.GetContext(ctx, &e, "SELECT "+eventColumns+" FROM events WHERE id=$1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Event{}, storage.NewNotFoundError("event", id)
	}
	if err != nil {
		return storage.Event{}, storage.NewRepositoryError("event", err)
	}
	if err := s.attach(ctx, &e); err != nil {
		return storage.Event{}, err
	}
	return e, nil
}

func (s *Storage) ListEvents(ctx context.Context, filter storage.EventFilter) ([]storage.Event, error) {
	query := "SELECT " + qualifiedEventColumns + " FROM events e " +
		"LEFT JOIN recurrence_rules r ON r.event_id = e.id " +
		"WHERE ($1 = '' OR e.owner_id = $1) AND ($2 = '' OR e.event_type = $2) AND (" +
		"(r.id IS NULL AND e.start_timestamp <= $4 AND e.end_timestamp >= $3) OR " +
		"(r.id IS NOT NULL AND e.start_timestamp <= $4 AND (r.until_timestamp IS NULL OR r.until_timestamp >= $3))" +
		") ORDER BY e.start_timestamp, e.id"
	args := []interface{}{filter.OwnerID, filter.EventType, filter.From.UTC(), filter.To.UTC()}
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += " LIMIT $5 OFFSET $6"
		args = append(args, filter.PageSize, (page-1)*filter.PageSize)
	}

	var events []storage.Event
	if err := s.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, storage.NewRepositoryError("event", err)
	}
	for i := range events {
		if err := s.attach(ctx, &events[i]); err != nil {
			return nil, err
		}
	}
	return events, nil
}

// ruleRow carries the pq array columns that do not scan directly into the
// domain type.
type ruleRow struct {
	ID              string
	EventID         string
	Frequency       string
	StepInterval    int
	ByDays          pq.StringArray
	ByMonths        pq.Int64Array
	ByMonthDays     pq.Int64Array
	OccurrenceCount int
	Until           *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r ruleRow) toRule() *storage.RecurrenceRule {
	rule := &storage.RecurrenceRule{
		ID:        r.ID,
		EventID:   r.EventID,
		Frequency: storage.Frequency(r.Frequency),
		Interval:  r.StepInterval,
		ByDays:    []string(r.ByDays),
		Count:     r.OccurrenceCount,
		Until:     r.Until,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	for _, m := range r.ByMonths {
		rule.ByMonths = append(rule.ByMonths, int(m))
	}
	for _, d := range r.ByMonthDays {
		rule.ByMonthDays = append(rule.ByMonthDays, int(d))
	}
	return rule
}

const ruleColumns = "id, event_id AS eventId, frequency, step_interval AS stepInterval, " +
	"by_days AS byDays, by_months AS byMonths, by_month_days AS byMonthDays, " +
	"occurrence_count AS occurrenceCount, until_timestamp AS until, " +
	"created_at AS createdAt, updated_at AS updatedAt"

func (s *Storage) attach(ctx context.Context, e *storage.Event) error {
	var row ruleRow
	err := s.db.GetContext(ctx, &row, "SELECT "+ruleColumns+" FROM recurrence_rules WHERE event_id=$1", e.ID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return storage.NewRepositoryError("recurrenceRule", err)
	default:
		e.Rule = row.toRule()
	}

	err = s.db.SelectContext(
		ctx,
		&e.Reminders,
		"SELECT id, event_id AS eventId, minutes_before AS minutesBefore, method, "+
			"created_at AS createdAt, updated_at AS updatedAt "+
			"FROM event_reminders WHERE event_id=$1 ORDER BY id",
		e.ID,
	)
	if err != nil {
		return storage.NewRepositoryError("reminder", err)
	}
	return nil
}

func (s *Storage) ListOccurrences(
	ctx context.Context,
	eventID string,
	from, to time.Time,
) ([]storage.Occurrence, error) {
	var out []storage.Occurrence
	err := s.db.SelectContext(
		ctx,
		&out,
		"SELECT event_id AS eventId, start_timestamp AS startTime, status "+
			"FROM event_occurrences WHERE event_id=$1 AND start_timestamp>=$2 AND start_timestamp<=$3 "+
			"ORDER BY start_timestamp",
		eventID, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, storage.NewRepositoryError("occurrence", err)
	}
	return out, nil
}

const exceptionColumns = "event_id AS eventId, original_timestamp AS originalTime, " +
	"start_timestamp AS startTime, end_timestamp AS endTime, title, description, location, color, " +
	"transparency, deleted, created_at AS createdAt, updated_at AS updatedAt"

func (s *Storage) ListExceptions(
	ctx context.Context,
	eventID string,
	from, to time.Time,
) ([]storage.Exception, error) {
	var out []storage.Exception
	err := s.db.SelectContext(
		ctx,
		&out,
		"SELECT "+exceptionColumns+" FROM event_exceptions "+
			"WHERE event_id=$1 AND original_timestamp>=$2 AND original_timestamp<=$3 "+
			"ORDER BY original_timestamp",
		eventID, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, storage.NewRepositoryError("exception", err)
	}
	return out, nil
}

func (s *Storage) GetException(
	ctx context.Context,
	eventID string,
	originalTime time.Time,
) (storage.Exception, error) {
	var x storage.Exception
	err := s.db.GetContext(
		ctx,
		&x,
		"SELECT "+exceptionColumns+" FROM event_exceptions WHERE event_id=$1 AND original_timestamp=$2",
		eventID, originalTime.UTC(),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Exception{}, storage.NewNotFoundError(
			"exception", eventID+"@"+originalTime.UTC().Format(time.RFC3339))
	}
	if err != nil {
		return storage.Exception{}, storage.NewRepositoryError("exception", err)
	}
	return x, nil
}

func (s *Storage) GetReminder(ctx context.Context, id string) (storage.Reminder, error) {
	var r storage.Reminder
	err := s.db.GetContext(
		ctx,
		&r,
		"SELECT id, event_id AS eventId, minutes_before AS minutesBefore, method, "+
			"created_at AS createdAt, updated_at AS updatedAt FROM event_reminders WHERE id=$1",
		id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Reminder{}, storage.NewNotFoundError("reminder", id)
	}
	if err != nil {
		return storage.Reminder{}, storage.NewRepositoryError("reminder", err)
	}
	return r, nil
}

func (s *Storage) DueReminders(ctx context.Context, from, to time.Time) ([]storage.DueReminder, error) {
	var out []storage.DueReminder
	err := s.db.SelectContext(
		ctx,
		&out,
		"SELECT e.id AS eventId, e.title, e.owner_id AS ownerId, o.start_timestamp AS startTime, "+
			"r.minutes_before AS minutesBefore, r.method "+
			"FROM event_reminders r "+
			"JOIN events e ON e.id = r.event_id "+
			"JOIN event_occurrences o ON o.event_id = e.id "+
			"WHERE (o.start_timestamp - (interval '1 minute' * r.minutes_before)) BETWEEN $1 AND $2 "+
			"UNION ALL "+
			"SELECT e.id, e.title, e.owner_id, e.start_timestamp, r.minutes_before, r.method "+
			"FROM event_reminders r "+
			"JOIN events e ON e.id = r.event_id "+
			"WHERE NOT EXISTS (SELECT 1 FROM recurrence_rules rr WHERE rr.event_id = e.id) "+
			"AND (e.start_timestamp - (interval '1 minute' * r.minutes_before)) BETWEEN $1 AND $2 "+
			"ORDER BY 4",
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, storage.NewRepositoryError("reminder", err)
	}
	return out, nil
}

func (s *Storage) AddReminder(ctx context.Context, r *storage.Reminder) error {
	_, err := s.db.ExecContext(
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

func (s *Storage) UpdateReminder(ctx context.Context, r storage.Reminder) error {
	return execExpectingRow(
		ctx, s.db, "reminder", r.ID,
		"UPDATE event_reminders SET minutes_before=$2, method=$3, updated_at=$4 WHERE id=$1 RETURNING TRUE",
		r.ID, r.MinutesBefore, r.Method, r.UpdatedAt.UTC(),
	)
}

func (s *Storage) RemoveReminder(ctx context.Context, id string) error {
	return execExpectingRow(
		ctx, s.db, "reminder", id,
		"DELETE FROM event_reminders WHERE id=$1 RETURNING TRUE",
		id,
	)
}

// execExpectingRow runs a statement with RETURNING TRUE and maps an empty
// result to a not-found error.
func execExpectingRow(
	ctx context.Context,
	q sqlx.QueryerContext,
	entity, id, query string,
	args ...interface{},
) error {
	var found bool
	err := sqlx.GetContext(ctx, q, &found, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.NewNotFoundError(entity, id)
	}
	if err != nil {
		return storage.NewRepositoryError(entity, err)
	}
	return nil
}
