package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestLogger_LogAction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	logger := NewLogger(db, nil)

	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	logger.LogAction(context.Background(), "EMERGENCY_CASE_CREATED", "emergency_cases", "", map[string]any{
		"case_id":  "case-1",
		"severity": "CRITICAL",
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogger_LogActionSwallowsWriteFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	logger := NewLogger(db, nil)

	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnError(errors.New("connection reset"))

	// Must not panic or propagate.
	logger.LogAction(context.Background(), "SLOT_LOCKED", "appointments", "patient-1", nil)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogger_NilDBStillLogs(t *testing.T) {
	logger := NewLogger(nil, nil)

	logger.LogAction(context.Background(), "SESSION_REAPED", "sessions", "", nil)
}
