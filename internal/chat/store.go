package chat

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const maxStoredTextLen = 2000

// Conversation is one saved request/reply turn.
type Conversation struct {
	SessionID string
	PatientID string
	Message   string
	Reply     string
	Intent    string
	Urgency   string
}

// ConversationStore persists chat turns for later review. Writes are
// best-effort from the pipeline's point of view.
type ConversationStore interface {
	SaveTurn(ctx context.Context, turn Conversation) error
}

// SQLConversationStore writes turns to the conversations table.
type SQLConversationStore struct {
	db *sql.DB
}

// NewConversationStore creates a SQL-backed conversation store.
func NewConversationStore(db *sql.DB) *SQLConversationStore {
	return &SQLConversationStore{db: db}
}

// SaveTurn inserts one turn. Message and reply are truncated to keep
// rows bounded.
func (s *SQLConversationStore) SaveTurn(ctx context.Context, turn Conversation) error {
	query := `
		INSERT INTO conversations (id, session_id, patient_id, message, ai_response, intent, urgency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(),
		turn.SessionID,
		nullString(turn.PatientID),
		truncate(turn.Message, maxStoredTextLen),
		truncate(turn.Reply, maxStoredTextLen),
		turn.Intent,
		turn.Urgency,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("chat: save conversation: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
