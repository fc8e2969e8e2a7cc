// Package session holds per-conversation state for active patient chats.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message is a single conversation turn.
type Message struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp string            `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Session stores context for a single patient conversation.
// Mutating methods on Session are only safe while holding the owning
// store's lock; callers outside this package should go through Store.
type Session struct {
	ID            string
	PatientName   string
	PatientPhone  string
	PatientID     string
	Messages      []Message
	CurrentIntent string
	PendingAction string
	EmergencyMode bool
	CreatedAt     time.Time
	LastActive    time.Time
}

// ChatMessage is the role/content pair handed to LLM clients.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store is an in-memory session registry. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create registers a new session. A random id is generated when id is empty.
func (s *Store) Create(id, patientName, patientPhone string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(id, patientName, patientPhone)
}

func (s *Store) createLocked(id, patientName, patientPhone string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now().UTC()
	sess := &Session{
		ID:           id,
		PatientName:  patientName,
		PatientPhone: patientPhone,
		CreatedAt:    now,
		LastActive:   now,
	}
	s.sessions[id] = sess
	return sess
}

// Get returns the session for id, or nil if absent.
func (s *Store) Get(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// GetOrCreate returns an existing session, merging any supplied identity
// fields into it, or creates a new one. History is never discarded.
func (s *Store) GetOrCreate(id, patientName, patientPhone string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			if patientName != "" {
				sess.PatientName = patientName
			}
			if patientPhone != "" {
				sess.PatientPhone = patientPhone
			}
			return sess
		}
	}
	return s.createLocked(id, patientName, patientPhone)
}

// Remove deletes a session.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Count returns the number of active sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// AppendMessage appends a turn to the session history and bumps LastActive.
// Messages are append-only and ordered by arrival.
func (s *Store) AppendMessage(id, role, content string, metadata map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	now := s.now().UTC()
	sess.Messages = append(sess.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: now.Format(time.RFC3339),
		Metadata:  metadata,
	})
	if now.After(sess.LastActive) {
		sess.LastActive = now
	}
}

// SetIntent records the most recent classified intent for the session.
func (s *Store) SetIntent(id, intent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.CurrentIntent = intent
	}
}

// SetEmergencyMode flags the session as being in an emergency flow.
func (s *Store) SetEmergencyMode(id string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.EmergencyMode = on
	}
}

// History returns up to max most recent messages for LLM context.
func (s *Store) History(id string, max int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	msgs := sess.Messages
	if max > 0 && len(msgs) > max {
		msgs = msgs[len(msgs)-max:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// LLMMessages formats recent history as chat messages, prefixed with the
// system prompt.
func (s *Store) LLMMessages(id, systemPrompt string, max int) []ChatMessage {
	history := s.History(id, max)
	msgs := make([]ChatMessage, 0, len(history)+1)
	msgs = append(msgs, ChatMessage{Role: "system", Content: systemPrompt})
	for _, m := range history {
		msgs = append(msgs, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return msgs
}

// Snapshot returns a copy of the session's scalar fields, safe to read
// without holding the store lock. Messages are not copied.
func (s *Store) Snapshot(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	cp := *sess
	cp.Messages = nil
	return cp, true
}

// ReapStale removes every session inactive for longer than maxAge and
// returns the number removed.
func (s *Store) ReapStale(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().UTC().Add(-maxAge)
	removed := 0
	for id, sess := range s.sessions {
		if sess.LastActive.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
