package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medassist-ai/triage-platform/internal/audit"
)

// Appointment status values.
const (
	StatusScheduled   = "SCHEDULED"
	StatusConfirmed   = "CONFIRMED"
	StatusRescheduled = "RESCHEDULED"
	StatusCancelled   = "CANCELLED"
	StatusCompleted   = "COMPLETED"
)

// Working day for slot generation.
const (
	dayStartHour = 9
	dayEndHour   = 17
)

var (
	// ErrSlotConflict signals the requested time overlaps an existing
	// appointment.
	ErrSlotConflict = errors.New("booking: slot conflicts with an existing appointment")
	// ErrNotFound signals the appointment does not exist.
	ErrNotFound = errors.New("booking: appointment not found")
	// ErrAlreadyCancelled signals a repeated cancellation.
	ErrAlreadyCancelled = errors.New("booking: appointment is already cancelled")
	// ErrNotModifiable signals the appointment is cancelled or completed.
	ErrNotModifiable = errors.New("booking: appointment can no longer be modified")
)

// Appointment is a booked visit.
type Appointment struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"patient_id"`
	DoctorID        string    `json:"doctor_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// BookingRequest carries the fields needed to book an appointment.
type BookingRequest struct {
	PatientID       string    `json:"patient_id"`
	DoctorID        string    `json:"doctor_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           string    `json:"notes,omitempty"`
}

// Slot is one entry in the availability grid.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
	Reason    string    `json:"reason,omitempty"`
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service books, reschedules and cancels appointments. All writes to a
// slot happen under its SlotLock.
type Service struct {
	db     querier
	locks  SlotLocker
	audit  *audit.Logger
	logger *slog.Logger
}

// NewService creates a booking service backed by pgx pool.
func NewService(pool *pgxpool.Pool, locks SlotLocker, auditLogger *audit.Logger, logger *slog.Logger) *Service {
	if pool == nil {
		panic("booking: pgx pool required")
	}
	return newServiceWithDB(pool, locks, auditLogger, logger)
}

func newServiceWithDB(db querier, locks SlotLocker, auditLogger *audit.Logger, logger *slog.Logger) *Service {
	if locks == nil {
		locks = NewMemoryLocker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:     db,
		locks:  locks,
		audit:  auditLogger,
		logger: logger,
	}
}

// Book reserves the slot, checks for conflicts and inserts the
// appointment. Contention surfaces as ErrSlotLocked, an overlap as
// ErrSlotConflict.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = 30
	}

	if err := s.locks.Acquire(ctx, req.DoctorID, req.StartTime); err != nil {
		return nil, err
	}
	defer func() {
		_ = s.locks.Release(ctx, req.DoctorID, req.StartTime)
	}()

	conflict, err := s.hasConflict(ctx, req.DoctorID, "", req.StartTime, req.DurationMinutes)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrSlotConflict
	}

	appt := Appointment{
		ID:              uuid.NewString(),
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		StartTime:       req.StartTime.UTC(),
		DurationMinutes: req.DurationMinutes,
		Status:          StatusScheduled,
		Notes:           req.Notes,
	}

	query := `
		INSERT INTO appointments (id, patient_id, doctor_id, date_time, duration_minutes, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	if err := s.db.QueryRow(ctx, query,
		appt.ID,
		appt.PatientID,
		appt.DoctorID,
		appt.StartTime,
		appt.DurationMinutes,
		appt.Status,
		appt.Notes,
	).Scan(&appt.CreatedAt); err != nil {
		return nil, fmt.Errorf("booking: insert appointment: %w", err)
	}

	if s.audit != nil {
		s.audit.LogAction(ctx, "BOOK_APPOINTMENT", "appointments", req.PatientID, map[string]any{
			"appointment_id": appt.ID,
			"doctor_id":      req.DoctorID,
			"start_time":     appt.StartTime.Format(time.RFC3339),
		})
	}

	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"doctor_id", req.DoctorID,
		"start_time", appt.StartTime,
	)

	return &appt, nil
}

// Reschedule moves an appointment to a new time after re-checking
// conflicts against the doctor's other appointments.
func (s *Service) Reschedule(ctx context.Context, appointmentID string, newTime time.Time) (*Appointment, error) {
	existing, err := s.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if existing.Status == StatusCancelled || existing.Status == StatusCompleted {
		return nil, ErrNotModifiable
	}

	conflict, err := s.hasConflict(ctx, existing.DoctorID, appointmentID, newTime, existing.DurationMinutes)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrSlotConflict
	}

	query := `
		UPDATE appointments SET date_time = $1, status = $2 WHERE id = $3
	`
	if _, err := s.db.Exec(ctx, query, newTime.UTC(), StatusRescheduled, appointmentID); err != nil {
		return nil, fmt.Errorf("booking: reschedule appointment: %w", err)
	}

	if s.audit != nil {
		s.audit.LogAction(ctx, "RESCHEDULE_APPOINTMENT", "appointments", existing.PatientID, map[string]any{
			"appointment_id": appointmentID,
			"old_time":       existing.StartTime.Format(time.RFC3339),
			"new_time":       newTime.UTC().Format(time.RFC3339),
		})
	}

	existing.StartTime = newTime.UTC()
	existing.Status = StatusRescheduled
	return existing, nil
}

// Cancel marks an appointment cancelled.
func (s *Service) Cancel(ctx context.Context, appointmentID string) error {
	existing, err := s.Get(ctx, appointmentID)
	if err != nil {
		return err
	}
	if existing.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}

	if _, err := s.db.Exec(ctx,
		`UPDATE appointments SET status = $1 WHERE id = $2`,
		StatusCancelled, appointmentID,
	); err != nil {
		return fmt.Errorf("booking: cancel appointment: %w", err)
	}

	if s.audit != nil {
		s.audit.LogAction(ctx, "CANCEL_APPOINTMENT", "appointments", existing.PatientID, map[string]any{
			"appointment_id": appointmentID,
		})
	}

	return nil
}

// Get loads one appointment.
func (s *Service) Get(ctx context.Context, appointmentID string) (*Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, date_time, duration_minutes, status, notes, created_at
		FROM appointments
		WHERE id = $1
	`
	var appt Appointment
	err := s.db.QueryRow(ctx, query, appointmentID).Scan(
		&appt.ID, &appt.PatientID, &appt.DoctorID, &appt.StartTime,
		&appt.DurationMinutes, &appt.Status, &appt.Notes, &appt.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("booking: load appointment: %w", err)
	}
	return &appt, nil
}

// AvailableSlots builds the 9:00-17:00 availability grid for a doctor
// on one day. Slots held by a live lock are omitted; booked slots are
// listed as unavailable.
func (s *Service) AvailableSlots(ctx context.Context, doctorID string, day time.Time, durationMinutes int) ([]Slot, error) {
	if durationMinutes <= 0 {
		durationMinutes = 30
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), dayStartHour, 0, 0, 0, time.UTC)
	dayEnd := time.Date(day.Year(), day.Month(), day.Day(), dayEndHour, 0, 0, 0, time.UTC)

	query := `
		SELECT date_time, duration_minutes
		FROM appointments
		WHERE doctor_id = $1
		  AND status IN ('SCHEDULED', 'CONFIRMED', 'RESCHEDULED')
		  AND date_time >= $2 AND date_time < $3
		ORDER BY date_time
	`
	rows, err := s.db.Query(ctx, query, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("booking: load day schedule: %w", err)
	}
	defer rows.Close()

	type interval struct{ start, end time.Time }
	var occupied []interval
	for rows.Next() {
		var start time.Time
		var duration int
		if err := rows.Scan(&start, &duration); err != nil {
			return nil, fmt.Errorf("booking: scan appointment: %w", err)
		}
		occupied = append(occupied, interval{start, start.Add(time.Duration(duration) * time.Minute)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: read day schedule: %w", err)
	}

	step := time.Duration(durationMinutes) * time.Minute
	var slots []Slot
	for current := dayStart; !current.Add(step).After(dayEnd); current = current.Add(step) {
		slotEnd := current.Add(step)

		free := true
		for _, occ := range occupied {
			if current.Before(occ.end) && slotEnd.After(occ.start) {
				free = false
				break
			}
		}

		locked, err := s.locks.IsLocked(ctx, doctorID, current)
		if err != nil {
			return nil, err
		}

		switch {
		case free && !locked:
			slots = append(slots, Slot{Start: current, End: slotEnd, Available: true})
		case !free:
			slots = append(slots, Slot{Start: current, End: slotEnd, Available: false, Reason: "booked"})
		}
	}

	return slots, nil
}

// hasConflict reports whether the doctor has an overlapping live
// appointment. excludeID skips the appointment being rescheduled.
func (s *Service) hasConflict(ctx context.Context, doctorID, excludeID string, start time.Time, durationMinutes int) (bool, error) {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	query := `
		SELECT date_time, duration_minutes
		FROM appointments
		WHERE doctor_id = $1
		  AND id <> $2
		  AND status IN ('SCHEDULED', 'CONFIRMED', 'RESCHEDULED')
		  AND date_time < $3
	`
	rows, err := s.db.Query(ctx, query, doctorID, excludeID, end.UTC())
	if err != nil {
		return false, fmt.Errorf("booking: conflict check: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var otherStart time.Time
		var otherDuration int
		if err := rows.Scan(&otherStart, &otherDuration); err != nil {
			return false, fmt.Errorf("booking: scan conflict row: %w", err)
		}
		if otherStart.Add(time.Duration(otherDuration) * time.Minute).After(start.UTC()) {
			return true, nil
		}
	}
	return false, rows.Err()
}
