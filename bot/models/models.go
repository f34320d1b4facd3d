// Package models declares the domain records shared by storage, dialog and
// notifier layers.
package models

import "time"

// RegistrationStatus tells whether a user completed the profile wizard.
type RegistrationStatus string

const (
	// RegistrationIncomplete marks users that never finished the wizard.
	RegistrationIncomplete RegistrationStatus = "incomplete"
	// RegistrationRegistered marks users with a complete profile.
	RegistrationRegistered RegistrationStatus = "registered"
)

// User is a bot participant identified by their Telegram id.
type User struct {
	TelegramID   int64              `db:"telegram_id"`
	Nickname     string             `db:"nickname"`
	Fullname     string             `db:"fullname"`
	Age          int                `db:"age"`
	Activity     string             `db:"activity"`
	Stack        string             `db:"stack"`
	Hobby        string             `db:"hobby"`
	Purpose      string             `db:"purpose"`
	Registration RegistrationStatus `db:"registration"`
	IsAdmin      bool               `db:"is_admin"`
}

// Registered reports whether the profile wizard has been completed.
func (u User) Registered() bool {
	return u.Registration == RegistrationRegistered
}

// Event is a conference happening with optional schedule.
type Event struct {
	ID          int64      `db:"id"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	StartedAt   *time.Time `db:"started_at"`
	FinishedAt  *time.Time `db:"finished_at"`
	Image       string     `db:"image"`
}

// HasSchedule reports whether both timestamps are known. Events without a
// schedule are excluded from "current" and "future" queries.
func (e Event) HasSchedule() bool {
	return e.StartedAt != nil && e.FinishedAt != nil
}

// IsCurrent reports whether the event is running at the given instant.
func (e Event) IsCurrent(now time.Time) bool {
	if !e.HasSchedule() {
		return false
	}
	return !e.StartedAt.After(now) && !e.FinishedAt.Before(now)
}

// IsFuture reports whether the event starts after the given instant.
func (e Event) IsFuture(now time.Time) bool {
	return e.StartedAt != nil && e.StartedAt.After(now)
}

// Speech is a single talk inside an event.
type Speech struct {
	ID          int64     `db:"id"`
	EventID     int64     `db:"event_id"`
	SpeakerID   int64     `db:"speaker_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	StartedAt   time.Time `db:"started_at"`
	FinishedAt  time.Time `db:"finished_at"`
	DoNotNotify bool      `db:"do_not_notify"`
}

// IsCurrent reports whether the speech window contains the given instant.
func (s Speech) IsCurrent(now time.Time) bool {
	return !s.StartedAt.After(now) && !s.FinishedAt.Before(now)
}

// Remaining returns the time left until the speech end; negative when over.
func (s Speech) Remaining(now time.Time) time.Duration {
	return s.FinishedAt.Sub(now)
}
