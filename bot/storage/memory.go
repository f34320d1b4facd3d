package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m3rciful/meetbot/bot/models"
)

// MemoryDirectory is an in-memory Directory implementation for tests and
// development.
type MemoryDirectory struct {
	mu sync.RWMutex

	users    map[int64]models.User
	events   map[int64]models.Event
	speeches map[int64]models.Speech

	organizers map[int64]map[int64]struct{}
	members    map[int64]map[int64]struct{}
	meeters    map[int64]map[int64]struct{}

	nextEventID  int64
	nextSpeechID int64
}

// NewMemoryDirectory constructs an empty in-memory Directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		users:      make(map[int64]models.User),
		events:     make(map[int64]models.Event),
		speeches:   make(map[int64]models.Speech),
		organizers: make(map[int64]map[int64]struct{}),
		members:    make(map[int64]map[int64]struct{}),
		meeters:    make(map[int64]map[int64]struct{}),
	}
}

var _ Directory = (*MemoryDirectory)(nil)

// UserByTelegramID implements Directory.
func (m *MemoryDirectory) UserByTelegramID(_ context.Context, id int64) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

// CreateUser implements Directory. Creating an existing user overwrites
// nothing and is not an error, matching upsert semantics of the SQL store.
func (m *MemoryDirectory) CreateUser(_ context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[u.TelegramID]; exists {
		return nil
	}
	if u.Registration == "" {
		u.Registration = models.RegistrationIncomplete
	}
	m.users[u.TelegramID] = u
	return nil
}

// UpdateUser implements Directory.
func (m *MemoryDirectory) UpdateUser(_ context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.TelegramID]; !ok {
		return ErrNotFound
	}
	m.users[u.TelegramID] = u
	return nil
}

// EventByID implements Directory.
func (m *MemoryDirectory) EventByID(_ context.Context, id int64) (models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.events[id]
	if !ok {
		return models.Event{}, ErrNotFound
	}
	return e, nil
}

// CurrentOrClosestEvent implements Directory.
func (m *MemoryDirectory) CurrentOrClosestEvent(_ context.Context, now time.Time) (models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var current, closest *models.Event
	for id := range m.events {
		e := m.events[id]
		switch {
		case e.IsCurrent(now):
			if current == nil || e.StartedAt.Before(*current.StartedAt) {
				ev := e
				current = &ev
			}
		case e.IsFuture(now):
			if closest == nil || e.StartedAt.Before(*closest.StartedAt) {
				ev := e
				closest = &ev
			}
		}
	}
	if current != nil {
		return *current, nil
	}
	if closest != nil {
		return *closest, nil
	}
	return models.Event{}, ErrNotFound
}

// FutureEvents implements Directory; results are ordered by start time.
func (m *MemoryDirectory) FutureEvents(_ context.Context, now time.Time) ([]models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Event
	for id := range m.events {
		if e := m.events[id]; e.IsFuture(now) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(*out[j].StartedAt)
	})
	return out, nil
}

// CreateEvent implements Directory.
func (m *MemoryDirectory) CreateEvent(_ context.Context, title string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextEventID++
	id := m.nextEventID
	m.events[id] = models.Event{ID: id, Title: title}
	return id, nil
}

// UpdateEventTitle implements Directory.
func (m *MemoryDirectory) UpdateEventTitle(_ context.Context, id int64, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return ErrNotFound
	}
	e.Title = title
	m.events[id] = e
	return nil
}

// UpdateEventDescription implements Directory.
func (m *MemoryDirectory) UpdateEventDescription(_ context.Context, id int64, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return ErrNotFound
	}
	e.Description = description
	m.events[id] = e
	return nil
}

// DeleteEvent implements Directory.
func (m *MemoryDirectory) DeleteEvent(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.events, id)
	delete(m.organizers, id)
	delete(m.members, id)
	delete(m.meeters, id)
	for sid, s := range m.speeches {
		if s.EventID == id {
			delete(m.speeches, sid)
		}
	}
	return nil
}

// IsOrganizer implements Directory.
func (m *MemoryDirectory) IsOrganizer(_ context.Context, eventID, userID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.organizers[eventID][userID]
	return ok, nil
}

// Organizers implements Directory.
func (m *MemoryDirectory) Organizers(_ context.Context, eventID int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return setToSlice(m.organizers[eventID]), nil
}

// IsMember implements Directory.
func (m *MemoryDirectory) IsMember(_ context.Context, eventID, userID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.members[eventID][userID]
	return ok, nil
}

// AddMember implements Directory.
func (m *MemoryDirectory) AddMember(_ context.Context, eventID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	addToSet(m.members, eventID, userID)
	return nil
}

// IsMeeter implements Directory.
func (m *MemoryDirectory) IsMeeter(_ context.Context, eventID, userID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.meeters[eventID][userID]
	return ok, nil
}

// AddMeeter implements Directory.
func (m *MemoryDirectory) AddMeeter(_ context.Context, eventID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	addToSet(m.meeters, eventID, userID)
	return nil
}

// Meeters implements Directory.
func (m *MemoryDirectory) Meeters(_ context.Context, eventID int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return setToSlice(m.meeters[eventID]), nil
}

// AddOrganizer registers an organizer; used by seeding and tests (the bot
// itself never promotes organizers).
func (m *MemoryDirectory) AddOrganizer(eventID, userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	addToSet(m.organizers, eventID, userID)
}

// PutEvent inserts or replaces a fully populated event; seeding helper.
func (m *MemoryDirectory) PutEvent(e models.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == 0 {
		m.nextEventID++
		e.ID = m.nextEventID
	} else if e.ID > m.nextEventID {
		m.nextEventID = e.ID
	}
	m.events[e.ID] = e
}

// PutSpeech inserts or replaces a speech; seeding helper.
func (m *MemoryDirectory) PutSpeech(s models.Speech) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		m.nextSpeechID++
		s.ID = m.nextSpeechID
	} else if s.ID > m.nextSpeechID {
		m.nextSpeechID = s.ID
	}
	m.speeches[s.ID] = s
}

// SpeechByID returns a speech record; test helper.
func (m *MemoryDirectory) SpeechByID(id int64) (models.Speech, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.speeches[id]
	return s, ok
}

// SpeechesByEvent implements Directory; results are ordered by start time.
func (m *MemoryDirectory) SpeechesByEvent(_ context.Context, eventID int64) ([]models.Speech, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Speech
	for id := range m.speeches {
		if s := m.speeches[id]; s.EventID == eventID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// CurrentSpeech implements Directory.
func (m *MemoryDirectory) CurrentSpeech(_ context.Context, at time.Time) (models.Speech, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentSpeechLocked(0, at)
}

// CurrentEventSpeech implements Directory.
func (m *MemoryDirectory) CurrentEventSpeech(_ context.Context, eventID int64, at time.Time) (models.Speech, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentSpeechLocked(eventID, at)
}

func (m *MemoryDirectory) currentSpeechLocked(eventID int64, at time.Time) (models.Speech, error) {
	var best *models.Speech
	for id := range m.speeches {
		s := m.speeches[id]
		if eventID != 0 && s.EventID != eventID {
			continue
		}
		if !s.IsCurrent(at) {
			continue
		}
		// Earliest start wins on overlap.
		if best == nil || s.StartedAt.Before(best.StartedAt) {
			sp := s
			best = &sp
		}
	}
	if best == nil {
		return models.Speech{}, ErrNotFound
	}
	return *best, nil
}

// ExtendSpeech implements Directory.
func (m *MemoryDirectory) ExtendSpeech(_ context.Context, id int64, by time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.speeches[id]
	if !ok {
		return ErrNotFound
	}
	s.FinishedAt = s.FinishedAt.Add(by)
	m.speeches[id] = s
	return nil
}

// SetDoNotNotify implements Directory.
func (m *MemoryDirectory) SetDoNotNotify(_ context.Context, id int64, v bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.speeches[id]
	if !ok {
		return ErrNotFound
	}
	s.DoNotNotify = v
	m.speeches[id] = s
	return nil
}

func addToSet(sets map[int64]map[int64]struct{}, eventID, userID int64) {
	set, ok := sets[eventID]
	if !ok {
		set = make(map[int64]struct{})
		sets[eventID] = set
	}
	set[userID] = struct{}{}
}

func setToSlice(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
