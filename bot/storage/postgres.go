package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"log/slog"

	"github.com/m3rciful/meetbot/bot/models"
	"github.com/m3rciful/meetbot/core/logger"
)

// PostgresDirectory implements Directory on top of a Postgres database.
type PostgresDirectory struct {
	db *sqlx.DB
}

// NewPostgresDirectory wraps an open sqlx connection pool.
func NewPostgresDirectory(db *sqlx.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

var _ Directory = (*PostgresDirectory)(nil)

// UserByTelegramID implements Directory.
func (p *PostgresDirectory) UserByTelegramID(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := p.db.GetContext(ctx, &u,
		`SELECT telegram_id, nickname, fullname, age, activity, stack, hobby, purpose, registration, is_admin
		   FROM users WHERE telegram_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("user by telegram id: %w", err)
	}
	return u, nil
}

// CreateUser implements Directory. An existing row is left untouched.
func (p *PostgresDirectory) CreateUser(ctx context.Context, u models.User) error {
	if u.Registration == "" {
		u.Registration = models.RegistrationIncomplete
	}
	_, err := p.db.NamedExecContext(ctx,
		`INSERT INTO users (telegram_id, nickname, fullname, age, activity, stack, hobby, purpose, registration, is_admin)
		 VALUES (:telegram_id, :nickname, :fullname, :age, :activity, :stack, :hobby, :purpose, :registration, :is_admin)
		 ON CONFLICT (telegram_id) DO NOTHING`, u)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateUser implements Directory.
func (p *PostgresDirectory) UpdateUser(ctx context.Context, u models.User) error {
	res, err := p.db.NamedExecContext(ctx,
		`UPDATE users
		    SET nickname = :nickname,
		        fullname = :fullname,
		        age = :age,
		        activity = :activity,
		        stack = :stack,
		        hobby = :hobby,
		        purpose = :purpose,
		        registration = :registration
		  WHERE telegram_id = :telegram_id`, u)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireRows(res, "update user")
}

// EventByID implements Directory.
func (p *PostgresDirectory) EventByID(ctx context.Context, id int64) (models.Event, error) {
	var e models.Event
	err := p.db.GetContext(ctx, &e,
		`SELECT id, title, description, started_at, finished_at, image FROM events WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Event{}, ErrNotFound
	}
	if err != nil {
		return models.Event{}, fmt.Errorf("event by id: %w", err)
	}
	return e, nil
}

// CurrentOrClosestEvent implements Directory.
func (p *PostgresDirectory) CurrentOrClosestEvent(ctx context.Context, now time.Time) (models.Event, error) {
	var e models.Event
	err := p.db.GetContext(ctx, &e,
		`SELECT id, title, description, started_at, finished_at, image
		   FROM events
		  WHERE started_at IS NOT NULL AND finished_at IS NOT NULL
		    AND (finished_at >= $1)
		  ORDER BY (started_at <= $1 AND finished_at >= $1) DESC, started_at ASC
		  LIMIT 1`, now)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Event{}, ErrNotFound
	}
	if err != nil {
		return models.Event{}, fmt.Errorf("current or closest event: %w", err)
	}
	return e, nil
}

// FutureEvents implements Directory.
func (p *PostgresDirectory) FutureEvents(ctx context.Context, now time.Time) ([]models.Event, error) {
	var out []models.Event
	err := p.db.SelectContext(ctx, &out,
		`SELECT id, title, description, started_at, finished_at, image
		   FROM events
		  WHERE started_at IS NOT NULL AND started_at > $1
		  ORDER BY started_at ASC`, now)
	if err != nil {
		return nil, fmt.Errorf("future events: %w", err)
	}
	return out, nil
}

// CreateEvent implements Directory.
func (p *PostgresDirectory) CreateEvent(ctx context.Context, title string) (int64, error) {
	var id int64
	err := p.db.GetContext(ctx, &id,
		`INSERT INTO events (title) VALUES ($1) RETURNING id`, title)
	if err != nil {
		return 0, fmt.Errorf("create event: %w", err)
	}
	logger.Store.Info("event created",
		slog.String("event", "event.create"),
		slog.Int64("event_id", id),
	)
	return id, nil
}

// UpdateEventTitle implements Directory.
func (p *PostgresDirectory) UpdateEventTitle(ctx context.Context, id int64, title string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE events SET title = $1 WHERE id = $2`, title, id)
	if err != nil {
		return fmt.Errorf("update event title: %w", err)
	}
	return requireRows(res, "update event title")
}

// UpdateEventDescription implements Directory.
func (p *PostgresDirectory) UpdateEventDescription(ctx context.Context, id int64, description string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE events SET description = $1 WHERE id = $2`, description, id)
	if err != nil {
		return fmt.Errorf("update event description: %w", err)
	}
	return requireRows(res, "update event description")
}

// DeleteEvent implements Directory. Join rows and speeches cascade.
func (p *PostgresDirectory) DeleteEvent(ctx context.Context, id int64) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	logger.Store.Info("event deleted",
		slog.String("event", "event.delete"),
		slog.Int64("event_id", id),
	)
	return nil
}

// IsOrganizer implements Directory.
func (p *PostgresDirectory) IsOrganizer(ctx context.Context, eventID, userID int64) (bool, error) {
	return p.inSet(ctx, "event_organizers", eventID, userID)
}

// Organizers implements Directory.
func (p *PostgresDirectory) Organizers(ctx context.Context, eventID int64) ([]int64, error) {
	return p.setMembers(ctx, "event_organizers", eventID)
}

// IsMember implements Directory.
func (p *PostgresDirectory) IsMember(ctx context.Context, eventID, userID int64) (bool, error) {
	return p.inSet(ctx, "event_members", eventID, userID)
}

// AddMember implements Directory.
func (p *PostgresDirectory) AddMember(ctx context.Context, eventID, userID int64) error {
	return p.addToSet(ctx, "event_members", eventID, userID)
}

// IsMeeter implements Directory.
func (p *PostgresDirectory) IsMeeter(ctx context.Context, eventID, userID int64) (bool, error) {
	return p.inSet(ctx, "event_meeters", eventID, userID)
}

// AddMeeter implements Directory.
func (p *PostgresDirectory) AddMeeter(ctx context.Context, eventID, userID int64) error {
	return p.addToSet(ctx, "event_meeters", eventID, userID)
}

// Meeters implements Directory.
func (p *PostgresDirectory) Meeters(ctx context.Context, eventID int64) ([]int64, error) {
	return p.setMembers(ctx, "event_meeters", eventID)
}

// SpeechesByEvent implements Directory.
func (p *PostgresDirectory) SpeechesByEvent(ctx context.Context, eventID int64) ([]models.Speech, error) {
	var out []models.Speech
	err := p.db.SelectContext(ctx, &out,
		`SELECT id, event_id, speaker_id, title, description, started_at, finished_at, do_not_notify
		   FROM speeches WHERE event_id = $1
		  ORDER BY started_at ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("speeches by event: %w", err)
	}
	return out, nil
}

// CurrentSpeech implements Directory.
func (p *PostgresDirectory) CurrentSpeech(ctx context.Context, at time.Time) (models.Speech, error) {
	return p.currentSpeech(ctx, 0, at)
}

// CurrentEventSpeech implements Directory.
func (p *PostgresDirectory) CurrentEventSpeech(ctx context.Context, eventID int64, at time.Time) (models.Speech, error) {
	return p.currentSpeech(ctx, eventID, at)
}

func (p *PostgresDirectory) currentSpeech(ctx context.Context, eventID int64, at time.Time) (models.Speech, error) {
	query := `SELECT id, event_id, speaker_id, title, description, started_at, finished_at, do_not_notify
		   FROM speeches
		  WHERE started_at <= $1 AND finished_at >= $1`
	args := []any{at}
	if eventID != 0 {
		query += ` AND event_id = $2`
		args = append(args, eventID)
	}
	// Earliest start wins on overlap.
	query += ` ORDER BY started_at ASC LIMIT 1`

	var s models.Speech
	err := p.db.GetContext(ctx, &s, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Speech{}, ErrNotFound
	}
	if err != nil {
		return models.Speech{}, fmt.Errorf("current speech: %w", err)
	}
	return s, nil
}

// ExtendSpeech implements Directory.
func (p *PostgresDirectory) ExtendSpeech(ctx context.Context, id int64, by time.Duration) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE speeches SET finished_at = finished_at + $1 * interval '1 second' WHERE id = $2`,
		int64(by.Seconds()), id)
	if err != nil {
		return fmt.Errorf("extend speech: %w", err)
	}
	return requireRows(res, "extend speech")
}

// SetDoNotNotify implements Directory.
func (p *PostgresDirectory) SetDoNotNotify(ctx context.Context, id int64, v bool) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE speeches SET do_not_notify = $1 WHERE id = $2`, v, id)
	if err != nil {
		return fmt.Errorf("set do_not_notify: %w", err)
	}
	return requireRows(res, "set do_not_notify")
}

// inSet/addToSet/setMembers share the three membership join tables; the table
// name is always one of the compile-time constants above, never user input.
func (p *PostgresDirectory) inSet(ctx context.Context, table string, eventID, userID int64) (bool, error) {
	var exists bool
	err := p.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE event_id = $1 AND user_id = $2)`, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("%s lookup: %w", table, err)
	}
	return exists, nil
}

func (p *PostgresDirectory) addToSet(ctx context.Context, table string, eventID, userID int64) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO `+table+` (event_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, eventID, userID)
	if err != nil {
		return fmt.Errorf("%s insert: %w", table, err)
	}
	return nil
}

func (p *PostgresDirectory) setMembers(ctx context.Context, table string, eventID int64) ([]int64, error) {
	var out []int64
	err := p.db.SelectContext(ctx, &out,
		`SELECT user_id FROM `+table+` WHERE event_id = $1 ORDER BY user_id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("%s list: %w", table, err)
	}
	return out, nil
}

func requireRows(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
