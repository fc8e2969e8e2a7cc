// Package hub routes outbound payloads to the right patient session and
// fans alerts out to every connected staff console. Pure routing; no
// business logic.
package hub

import (
	"log/slog"
	"sync"
)

// Channel is one live outbound connection. Send must be safe to call
// from multiple goroutines; an error marks the channel dead and the hub
// prunes it.
type Channel interface {
	Send(payload any) error
}

// Hub is the connection registry. Safe for concurrent use.
type Hub struct {
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]Channel
	staff    map[Channel]struct{}
}

// New creates an empty hub.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:   logger,
		sessions: make(map[string]Channel),
		staff:    make(map[Channel]struct{}),
	}
}

// ConnectSession registers the channel for a session, replacing any
// previous channel for the same id.
func (h *Hub) ConnectSession(sessionID string, ch Channel) {
	h.mu.Lock()
	h.sessions[sessionID] = ch
	h.mu.Unlock()
	h.logger.Info("session connected", "session_id", sessionID)
}

// DisconnectSession removes the session's channel if present.
func (h *Hub) DisconnectSession(sessionID string) {
	h.mu.Lock()
	delete(h.sessions, sessionID)
	h.mu.Unlock()
	h.logger.Info("session disconnected", "session_id", sessionID)
}

// ConnectStaff registers a staff console channel.
func (h *Hub) ConnectStaff(ch Channel) {
	h.mu.Lock()
	h.staff[ch] = struct{}{}
	count := len(h.staff)
	h.mu.Unlock()
	h.logger.Info("staff console connected", "staff_connections", count)
}

// DisconnectStaff removes a staff console channel.
func (h *Hub) DisconnectStaff(ch Channel) {
	h.mu.Lock()
	delete(h.staff, ch)
	count := len(h.staff)
	h.mu.Unlock()
	h.logger.Info("staff console disconnected", "staff_connections", count)
}

// SendToSession delivers a payload to one session. No-op if the session
// has no live channel. A failed send prunes the stale entry.
func (h *Hub) SendToSession(sessionID string, payload any) {
	h.mu.RLock()
	ch, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	if err := ch.Send(payload); err != nil {
		h.logger.Warn("session send failed, pruning", "session_id", sessionID, "error", err)
		h.mu.Lock()
		if h.sessions[sessionID] == ch {
			delete(h.sessions, sessionID)
		}
		h.mu.Unlock()
	}
}

// BroadcastToStaff delivers a payload to every staff console. Channels
// that fail mid-send are pruned; delivery to the rest continues.
func (h *Hub) BroadcastToStaff(payload any) {
	h.mu.RLock()
	targets := make([]Channel, 0, len(h.staff))
	for ch := range h.staff {
		targets = append(targets, ch)
	}
	h.mu.RUnlock()

	var dead []Channel
	for _, ch := range targets {
		if err := ch.Send(payload); err != nil {
			dead = append(dead, ch)
		}
	}

	if len(dead) > 0 {
		h.mu.Lock()
		for _, ch := range dead {
			delete(h.staff, ch)
		}
		h.mu.Unlock()
		h.logger.Warn("pruned dead staff channels", "count", len(dead))
	}
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// StaffCount returns the number of connected staff consoles.
func (h *Hub) StaffCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.staff)
}
