// Package session provides the per-chat conversation state store: the current
// dialogue state label plus scratch attributes accumulated between updates.
package session

import "sync"

// Session stores conversation state and scratch data for one chat.
//
// Updates for a single chat arrive serially, so handlers mutate the session
// directly; the store mutex only guards the chat map itself.
type Session struct {
	// State is the dialogue state label. An empty or unrecognized label is
	// treated as the start state by the engine, never as an error.
	State string

	// CurrentEvent is the event the user is looking at; 0 means none.
	CurrentEvent int64
	// SpeakerID is the recipient of a pending question; 0 means none.
	SpeakerID int64
	// MsgToDelete is a transient prompt message to clean up; 0 means none.
	MsgToDelete int

	exclusions map[int64]struct{}
}

// Exclude adds a candidate id to the matchmaking exclusion set.
func (s *Session) Exclude(userID int64) {
	if s.exclusions == nil {
		s.exclusions = make(map[int64]struct{})
	}
	s.exclusions[userID] = struct{}{}
}

// Excluded reports whether a candidate was already shown this round.
func (s *Session) Excluded(userID int64) bool {
	_, ok := s.exclusions[userID]
	return ok
}

// ExclusionCount returns the size of the exclusion set.
func (s *Session) ExclusionCount() int {
	return len(s.exclusions)
}

// TakeMsgToDelete returns and clears the pending prompt message id.
func (s *Session) TakeMsgToDelete() int {
	id := s.MsgToDelete
	s.MsgToDelete = 0
	return id
}

// TakeSpeakerID returns and clears the pending question recipient.
func (s *Session) TakeSpeakerID() int64 {
	id := s.SpeakerID
	s.SpeakerID = 0
	return id
}

// Store keeps one session per chat id with create-on-first-contact semantics.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewStore constructs an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Get returns the session for a chat, creating it on first contact.
func (st *Store) Get(chatID int64) *Session {
	st.mu.RLock()
	s, ok := st.sessions[chatID]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[chatID]; ok {
		return s
	}
	s = &Session{}
	st.sessions[chatID] = s
	return s
}

// Peek returns the session without creating one.
func (st *Store) Peek(chatID int64) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[chatID]
	return s, ok
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
