// Package emergency persists emergency cases raised by the triage
// pipeline so staff can track them to resolution.
package emergency

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrCaseNotFound is returned when a case id matches no stored case.
var ErrCaseNotFound = errors.New("case not found")

// Dispatch status values for an emergency case.
const (
	DispatchPending   = "PENDING"
	DispatchRequested = "REQUESTED"
	DispatchEnRoute   = "EN_ROUTE"
	DispatchArrived   = "ARRIVED"
	DispatchResolved  = "RESOLVED"
)

// Case is a durable emergency record. The pipeline only creates cases;
// status transitions belong to the staff console.
type Case struct {
	ID             string    `json:"id"`
	PatientID      string    `json:"patient_id,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
	Severity       string    `json:"severity"`
	Symptoms       string    `json:"symptoms"`
	ContactNumber  string    `json:"contact_number"`
	DispatchStatus string    `json:"dispatch_status"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// CaseStore persists emergency cases.
type CaseStore interface {
	CreateCase(ctx context.Context, c Case) (string, error)
	ListOpenCases(ctx context.Context, limit int) ([]Case, error)
	UpdateDispatchStatus(ctx context.Context, caseID, status string) error
}

// SQLCaseStore is the Postgres-backed CaseStore.
type SQLCaseStore struct {
	db *sql.DB
}

// NewSQLCaseStore creates a Postgres-backed case store.
func NewSQLCaseStore(db *sql.DB) *SQLCaseStore {
	return &SQLCaseStore{db: db}
}

// CreateCase inserts a new emergency case and returns its id.
func (s *SQLCaseStore) CreateCase(ctx context.Context, c Case) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.DispatchStatus == "" {
		c.DispatchStatus = DispatchPending
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.ContactNumber == "" {
		c.ContactNumber = "UNKNOWN"
	}

	query := `
		INSERT INTO emergency_cases (
			id, patient_id, session_id, severity, symptoms,
			contact_number, dispatch_status, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		c.ID,
		nullString(c.PatientID),
		nullString(c.SessionID),
		c.Severity,
		c.Symptoms,
		c.ContactNumber,
		c.DispatchStatus,
		nullString(c.Notes),
		c.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("emergency: failed to create case: %w", err)
	}

	return c.ID, nil
}

// ListOpenCases returns unresolved cases, newest first.
func (s *SQLCaseStore) ListOpenCases(ctx context.Context, limit int) ([]Case, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, patient_id, session_id, severity, symptoms,
			   contact_number, dispatch_status, notes, created_at
		FROM emergency_cases
		WHERE dispatch_status <> $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, DispatchResolved, limit)
	if err != nil {
		return nil, fmt.Errorf("emergency: failed to list open cases: %w", err)
	}
	defer rows.Close()

	var cases []Case
	for rows.Next() {
		var c Case
		var patientID, sessionID, notes sql.NullString
		err := rows.Scan(
			&c.ID, &patientID, &sessionID, &c.Severity, &c.Symptoms,
			&c.ContactNumber, &c.DispatchStatus, &notes, &c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("emergency: failed to scan case: %w", err)
		}
		c.PatientID = patientID.String
		c.SessionID = sessionID.String
		c.Notes = notes.String
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("emergency: failed to read cases: %w", err)
	}

	return cases, nil
}

// UpdateDispatchStatus moves a case to a new dispatch status.
func (s *SQLCaseStore) UpdateDispatchStatus(ctx context.Context, caseID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE emergency_cases SET dispatch_status = $1 WHERE id = $2`,
		status, caseID,
	)
	if err != nil {
		return fmt.Errorf("emergency: failed to update dispatch status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("emergency: failed to read update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("emergency: case %s: %w", caseID, ErrCaseNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
