package booking

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, pgxmock.PgxPoolIface, *MemoryLocker) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	locks := NewMemoryLocker()
	return newServiceWithDB(mock, locks, nil, nil), mock, locks
}

func TestService_Book(t *testing.T) {
	svc, mock, locks := newTestService(t)
	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT date_time, duration_minutes").
		WithArgs("doc-1", "", start.Add(30*time.Minute)).
		WillReturnRows(pgxmock.NewRows([]string{"date_time", "duration_minutes"}))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now().UTC()))

	appt, err := svc.Book(context.Background(), BookingRequest{
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		StartTime: start,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, StatusScheduled, appt.Status)
	assert.Equal(t, 30, appt.DurationMinutes)
	require.NoError(t, mock.ExpectationsWereMet())

	// The lock is released after booking.
	locked, err := locks.IsLocked(context.Background(), "doc-1", start)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestService_BookConflict(t *testing.T) {
	svc, mock, _ := newTestService(t)
	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	// Existing 10:15 appointment overlaps a 10:00-10:30 request.
	mock.ExpectQuery("SELECT date_time, duration_minutes").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"date_time", "duration_minutes"}).
			AddRow(start.Add(15*time.Minute), 30))

	_, err := svc.Book(context.Background(), BookingRequest{
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		StartTime: start,
	})

	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestService_BookEarlierNonOverlappingIsIgnored(t *testing.T) {
	svc, mock, _ := newTestService(t)
	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	// A 9:00-9:30 appointment does not conflict with 10:00.
	mock.ExpectQuery("SELECT date_time, duration_minutes").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"date_time", "duration_minutes"}).
			AddRow(start.Add(-time.Hour), 30))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now().UTC()))

	_, err := svc.Book(context.Background(), BookingRequest{
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		StartTime: start,
	})

	require.NoError(t, err)
}

func TestService_BookWhileSlotLocked(t *testing.T) {
	svc, _, locks := newTestService(t)
	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, locks.Acquire(context.Background(), "doc-1", start))

	_, err := svc.Book(context.Background(), BookingRequest{
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		StartTime: start,
	})

	assert.ErrorIs(t, err, ErrSlotLocked)
}

func appointmentRows(id string, start time.Time, status string) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "patient_id", "doctor_id", "date_time", "duration_minutes", "status", "notes", "created_at",
	}).AddRow(id, "pat-1", "doc-1", start, 30, status, "", start.Add(-24*time.Hour))
}

func TestService_Cancel(t *testing.T) {
	svc, mock, _ := newTestService(t)
	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, patient_id, doctor_id").
		WithArgs("appt-1").
		WillReturnRows(appointmentRows("appt-1", start, StatusScheduled))
	mock.ExpectExec("UPDATE appointments SET status").
		WithArgs(StatusCancelled, "appt-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, svc.Cancel(context.Background(), "appt-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CancelTwice(t *testing.T) {
	svc, mock, _ := newTestService(t)
	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, patient_id, doctor_id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(appointmentRows("appt-1", start, StatusCancelled))

	err := svc.Cancel(context.Background(), "appt-1")

	assert.ErrorIs(t, err, ErrAlreadyCancelled)
}

func TestService_CancelMissing(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery("SELECT id, patient_id, doctor_id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_id", "doctor_id", "date_time", "duration_minutes", "status", "notes", "created_at",
		}))

	err := svc.Cancel(context.Background(), "ghost")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Reschedule(t *testing.T) {
	svc, mock, _ := newTestService(t)
	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	newTime := start.Add(2 * time.Hour)

	mock.ExpectQuery("SELECT id, patient_id, doctor_id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(appointmentRows("appt-1", start, StatusScheduled))
	mock.ExpectQuery("SELECT date_time, duration_minutes").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"date_time", "duration_minutes"}))
	mock.ExpectExec("UPDATE appointments SET date_time").
		WithArgs(newTime, StatusRescheduled, "appt-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	appt, err := svc.Reschedule(context.Background(), "appt-1", newTime)

	require.NoError(t, err)
	assert.Equal(t, newTime, appt.StartTime)
	assert.Equal(t, StatusRescheduled, appt.Status)
}

func TestService_RescheduleCompletedRejected(t *testing.T) {
	svc, mock, _ := newTestService(t)
	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, patient_id, doctor_id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(appointmentRows("appt-1", start, StatusCompleted))

	_, err := svc.Reschedule(context.Background(), "appt-1", start.Add(time.Hour))

	assert.ErrorIs(t, err, ErrNotModifiable)
}

func TestService_AvailableSlots(t *testing.T) {
	svc, mock, locks := newTestService(t)
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	booked := time.Date(2026, 4, 1, 11, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT date_time, duration_minutes").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"date_time", "duration_minutes"}).
			AddRow(booked, 30))

	// 10:30 is live-locked by another booking in progress.
	lockedSlot := time.Date(2026, 4, 1, 10, 30, 0, 0, time.UTC)
	require.NoError(t, locks.Acquire(context.Background(), "doc-1", lockedSlot))

	slots, err := svc.AvailableSlots(context.Background(), "doc-1", day, 30)

	require.NoError(t, err)
	// 16 half-hour slots from 9:00 to 17:00, minus the locked one.
	assert.Len(t, slots, 15)

	byStart := make(map[time.Time]Slot, len(slots))
	for _, s := range slots {
		byStart[s.Start] = s
	}

	assert.False(t, byStart[booked].Available)
	assert.Equal(t, "booked", byStart[booked].Reason)

	_, lockedListed := byStart[lockedSlot]
	assert.False(t, lockedListed)

	first := byStart[time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)]
	assert.True(t, first.Available)
}
