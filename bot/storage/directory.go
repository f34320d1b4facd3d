// Package storage provides the Directory: the query and update surface over
// events, speeches and users. The dialogue engine and the notifier consume it
// through the Directory interface; Postgres and in-memory implementations are
// provided.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/m3rciful/meetbot/bot/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Directory is the external store of events, speeches and users.
//
// All writes must be idempotent-safe: the dialogue engine and the extension
// notifier share the store without transactions.
type Directory interface {
	// Users.
	UserByTelegramID(ctx context.Context, id int64) (models.User, error)
	CreateUser(ctx context.Context, u models.User) error
	// UpdateUser rewrites the profile columns of an existing user.
	UpdateUser(ctx context.Context, u models.User) error

	// Events.
	EventByID(ctx context.Context, id int64) (models.Event, error)
	// CurrentOrClosestEvent returns the event running at the given instant,
	// or the next upcoming one. Events without a schedule are skipped.
	CurrentOrClosestEvent(ctx context.Context, now time.Time) (models.Event, error)
	FutureEvents(ctx context.Context, now time.Time) ([]models.Event, error)
	CreateEvent(ctx context.Context, title string) (int64, error)
	UpdateEventTitle(ctx context.Context, id int64, title string) error
	UpdateEventDescription(ctx context.Context, id int64, description string) error
	DeleteEvent(ctx context.Context, id int64) error

	// Membership sets.
	IsOrganizer(ctx context.Context, eventID, userID int64) (bool, error)
	Organizers(ctx context.Context, eventID int64) ([]int64, error)
	IsMember(ctx context.Context, eventID, userID int64) (bool, error)
	AddMember(ctx context.Context, eventID, userID int64) error
	IsMeeter(ctx context.Context, eventID, userID int64) (bool, error)
	AddMeeter(ctx context.Context, eventID, userID int64) error
	Meeters(ctx context.Context, eventID int64) ([]int64, error)

	// Speeches.
	SpeechesByEvent(ctx context.Context, eventID int64) ([]models.Speech, error)
	// CurrentSpeech returns the speech running at the given instant across
	// all events; on overlap the earliest-starting one wins.
	CurrentSpeech(ctx context.Context, at time.Time) (models.Speech, error)
	// CurrentEventSpeech restricts CurrentSpeech to a single event.
	CurrentEventSpeech(ctx context.Context, eventID int64, at time.Time) (models.Speech, error)
	ExtendSpeech(ctx context.Context, id int64, by time.Duration) error
	SetDoNotNotify(ctx context.Context, id int64, v bool) error
}
