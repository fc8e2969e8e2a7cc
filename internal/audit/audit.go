// Package audit records auditable system actions. Audit writes are
// best-effort: a failed write is logged and never breaks the main flow.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Entry is an immutable audit record.
type Entry struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	Resource  string          `json:"resource"`
	UserID    string          `json:"user_id,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	IPAddress string          `json:"ip_address,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Logger writes audit entries to Postgres.
type Logger struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewLogger creates an audit logger. A nil db disables persistence;
// actions are still written to the structured log.
func NewLogger(db *sql.DB, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{db: db, logger: logger}
}

// LogAction records an auditable action. Failures are swallowed after
// logging so audit can never break the caller.
func (l *Logger) LogAction(ctx context.Context, action, resource, userID string, details map[string]any) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}
	if details == nil {
		detailsJSON = []byte("{}")
	}

	if l.db != nil {
		query := `
			INSERT INTO audit_logs (id, action, resource, user_id, details, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err = l.db.ExecContext(ctx, query,
			uuid.NewString(),
			action,
			resource,
			nullString(userID),
			detailsJSON,
			time.Now().UTC(),
		)
		if err != nil {
			l.logger.Error("audit log failed", "action", action, "resource", resource, "error", err)
			return
		}
	}

	user := userID
	if user == "" {
		user = "system"
	}
	l.logger.Info("audit", "action", action, "resource", resource, "user", user)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
