package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/careloop/appointment-scheduler/internal/redis"
)

// SlotCheck is the result of a conflict probe for one exact slot.
type SlotCheck struct {
	Available bool
	Conflict  *Appointment
}

// OpenSlot is the result of the buffered grid search.
type OpenSlot struct {
	Time    *TimeOfDay
	Message string
}

// Service owns appointment creation, conflict detection, slot suggestion,
// rescheduling, cancellation and status transitions. The store, lock,
// clock and id generator are injected so tests run against fakes.
type Service struct {
	repo   Repository
	locker redisclient.Locker
	cfg    Config
	log    zerolog.Logger

	now   func() time.Time
	newID func() uuid.UUID
}

func NewService(repo Repository, locker redisclient.Locker, cfg Config, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		log:    log.With().Str("component", "scheduler").Logger(),
		now:    time.Now,
		newID:  uuid.New,
	}
}

func slotKey(doctorID uuid.UUID, date time.Time, start TimeOfDay) string {
	return fmt.Sprintf("%s:%s:%s", doctorID, FormatDate(date), start)
}

// CheckSlotAvailability probes the store for an active appointment on the
// exact (doctorID, date, start) slot. exclude, when non-nil, is skipped so
// a reschedule never conflicts with itself. Pure read.
func (s *Service) CheckSlotAvailability(ctx context.Context, doctorID uuid.UUID, date time.Time, start TimeOfDay, exclude uuid.UUID) (*SlotCheck, error) {
	conflict, err := s.repo.FindActiveConflict(ctx, doctorID, date, start, exclude)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return &SlotCheck{Available: true}, nil
		}
		return nil, fmt.Errorf("check slot availability: %w", err)
	}
	return &SlotCheck{Available: false, Conflict: conflict}, nil
}

// CreateAppointment books a slot. The precheck inside the per-slot lock
// gives callers a ConflictError with the blocking record attached; the
// partial unique index underneath is the actual correctness guarantee, so
// a constraint violation from the insert is translated the same way.
func (s *Service) CreateAppointment(ctx context.Context, in BookingInput) (*Appointment, error) {
	if err := ValidateBookingInput(in, s.now()); err != nil {
		return nil, err
	}

	doctorID, err := uuid.Parse(in.DoctorID)
	if err != nil {
		return nil, &ValidationError{Field: "doctorId", Reason: "must be a valid UUID"}
	}
	patientID, err := uuid.Parse(in.PatientID)
	if err != nil {
		return nil, &ValidationError{Field: "patientId", Reason: "must be a valid UUID"}
	}

	date, _ := ParseDate(in.Date)
	start, _ := ParseTimeAny(in.Time)

	status := StatusPending
	if in.Status != "" {
		status, _ = ParseStatus(in.Status)
	}

	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	var created *Appointment

	err = s.locker.WithSlotLock(ctx, slotKey(doctorID, date, start), func(lockCtx context.Context) error {
		check, err := s.CheckSlotAvailability(lockCtx, doctorID, date, start, uuid.Nil)
		if err != nil {
			return err
		}
		if !check.Available {
			return &ConflictError{Conflict: check.Conflict}
		}

		now := s.now()
		appt := &Appointment{
			ID:        s.newID(),
			DoctorID:  doctorID,
			PatientID: patientID,
			VisitDate: date,
			Start:     start,
			Status:    status,
			Payment:   Payment{Status: PaymentPending},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if in.Notes != "" {
			appt.Notes = &in.Notes
		}

		created, err = s.repo.InsertAppointment(lockCtx, appt)
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return s.conflictFor(lockCtx, doctorID, date, start)
			}
			return fmt.Errorf("insert appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("doctor_id", doctorID.String()).
		Str("date", FormatDate(date)).
		Str("time", start.String()).
		Msg("appointment created")

	return created, nil
}

// conflictFor re-reads the blocking record after a store-level rejection so
// the caller still gets a populated ConflictError.
func (s *Service) conflictFor(ctx context.Context, doctorID uuid.UUID, date time.Time, start TimeOfDay) error {
	conflict, err := s.repo.FindActiveConflict(ctx, doctorID, date, start, uuid.Nil)
	if err != nil {
		return &ConflictError{}
	}
	return &ConflictError{Conflict: conflict}
}

// NextAvailableSlots steps forward from `from` in fixed increments inside
// the working-hours window, probing each candidate, and collects up to
// count free times. The scan is capped, so the result may be short; that
// is a bound on search depth, not an error.
func (s *Service) NextAvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time, from TimeOfDay, count int) ([]TimeOfDay, error) {
	if count <= 0 {
		count = s.cfg.SuggestionCount
	}

	var found []TimeOfDay
	candidate := from
	for scanned := 0; scanned < s.cfg.ProbeScanCap && len(found) < count; scanned++ {
		candidate += TimeOfDay(s.cfg.ProbeStepMin)
		if candidate < s.cfg.WorkDayStart {
			continue
		}
		if candidate >= s.cfg.WorkDayEnd {
			break
		}

		check, err := s.CheckSlotAvailability(ctx, doctorID, date, candidate, uuid.Nil)
		if err != nil {
			return nil, err
		}
		if check.Available {
			found = append(found, candidate)
		}
	}
	return found, nil
}

// FindNextOpenSlot answers a different question than NextAvailableSlots:
// not "is this exact slot free" but "what slot avoids crowding". It loads
// the doctor's active appointments for the day once, then walks a coarser
// grid and returns the first time after `after` that keeps the configured
// buffer to every existing appointment.
func (s *Service) FindNextOpenSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, after TimeOfDay) (*OpenSlot, error) {
	existing, err := s.repo.ListActiveByDoctorDate(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("load day schedule: %w", err)
	}

	for t := s.cfg.WorkDayStart; t < s.cfg.GridEnd; t += TimeOfDay(s.cfg.GridStepMin) {
		if t <= after {
			continue
		}
		clear := true
		for i := range existing {
			if t.DistanceTo(existing[i].Start) < s.cfg.SlotBufferMin {
				clear = false
				break
			}
		}
		if clear {
			slot := t
			return &OpenSlot{
				Time:    &slot,
				Message: fmt.Sprintf("next open slot at %s", slot.Format12()),
			}, nil
		}
	}

	return &OpenSlot{
		Message: fmt.Sprintf("no open slots after %s on %s", after.Format12(), FormatDate(date)),
	}, nil
}

// rescheduleGate enforces the eligibility rules: terminal appointments
// cannot move, and nothing moves inside the buffer window before the
// scheduled start.
func (s *Service) rescheduleGate(a *Appointment) error {
	if a.Status.Terminal() {
		return ErrInvalidTransition
	}
	startsAt := a.StartsAt(time.UTC)
	if startsAt.Sub(s.now()) < s.cfg.RescheduleBuffer {
		return ErrRescheduleTooLate
	}
	return nil
}

// CanReschedule is the advisory form of the eligibility gate. The gate is
// also enforced inside RescheduleAppointment, so skipping this call cannot
// bypass the rule.
func (s *Service) CanReschedule(ctx context.Context, id uuid.UUID) error {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return err
	}
	return s.rescheduleGate(appt)
}

// RescheduleAppointment moves an appointment to a new slot in place,
// recording the previous slot. The record keeps its identity; status
// becomes rescheduled. The current slot is excluded from the conflict
// check, so rescheduling onto the appointment's own slot succeeds.
func (s *Service) RescheduleAppointment(ctx context.Context, id uuid.UUID, newDate time.Time, newStart TimeOfDay, by string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.rescheduleGate(appt); err != nil {
		return nil, err
	}

	var moved *Appointment

	err = s.locker.WithSlotLock(ctx, slotKey(appt.DoctorID, newDate, newStart), func(lockCtx context.Context) error {
		check, err := s.CheckSlotAvailability(lockCtx, appt.DoctorID, newDate, newStart, id)
		if err != nil {
			return err
		}
		if !check.Available {
			return &ConflictError{Conflict: check.Conflict}
		}

		moved, err = s.repo.Reschedule(lockCtx, id, newDate, newStart, by, s.now())
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return s.conflictFor(lockCtx, appt.DoctorID, newDate, newStart)
			}
			return fmt.Errorf("reschedule appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", id.String()).
		Str("new_date", FormatDate(newDate)).
		Str("new_time", newStart.String()).
		Str("by", by).
		Msg("appointment rescheduled")

	return moved, nil
}

// CancelAppointment transitions to cancelled with audit stamps. Unlike
// reschedule there is no lead-time rule: any active appointment cancels,
// however close to its start. Completed, cancelled and no-show records are
// final and return ErrInvalidTransition rather than being stamped again.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, by, reason string) (*Appointment, error) {
	cancelled, err := s.repo.Cancel(ctx, id, by, reason, s.now())
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Distinguish a missing record from an already-terminal one.
			if _, getErr := s.repo.GetAppointmentByID(ctx, id); getErr == nil {
				return nil, ErrInvalidTransition
			}
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.log.Info().
		Str("appointment_id", id.String()).
		Str("by", by).
		Msg("appointment cancelled")

	return cancelled, nil
}

// UpdateStatus applies a caller-driven transition (completed by care
// delivery, confirmed by the booking flow). Terminal states are sinks.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, ErrInvalidTransition
	}
	if appt.Status == to {
		return appt, nil
	}

	updated, err := s.repo.UpdateStatus(ctx, id, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update status: %w", err)
	}
	return updated, nil
}

// MarkNoShows transitions active appointments whose start passed more than
// the grace period ago to no_show. Called periodically by the worker.
// Returns how many records were marked.
func (s *Service) MarkNoShows(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.cfg.NoShowGrace)
	cutoffDate := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.UTC)
	cutoffTime := TimeOfDay(cutoff.Hour()*60 + cutoff.Minute())

	overdue, err := s.repo.FindPastDueActive(ctx, cutoffDate, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("find past-due appointments: %w", err)
	}

	marked := 0
	for i := range overdue {
		_, err := s.repo.UpdateStatus(ctx, overdue[i].ID, overdue[i].Status, StatusNoShow)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				continue // raced with another transition
			}
			s.log.Error().Err(err).
				Str("appointment_id", overdue[i].ID.String()).
				Msg("failed to mark no-show")
			continue
		}
		marked++
	}
	return marked, nil
}

// SuggestAlternativeDoctors offers up to the configured number of active
// doctors with the same specialization, excluding the given one. Used when
// a preferred doctor's slot is unavailable.
func (s *Service) SuggestAlternativeDoctors(ctx context.Context, specialization string, exclude uuid.UUID) ([]Doctor, error) {
	doctors, err := s.repo.FindActiveDoctorsBySpecialization(ctx, specialization, exclude, s.cfg.AlternativeDoctorLimit)
	if err != nil {
		return nil, fmt.Errorf("suggest alternative doctors: %w", err)
	}
	return doctors, nil
}

// Read surface

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) TodayAppointments(ctx context.Context) ([]Appointment, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.repo.ListByDate(ctx, today)
}

// DoctorSchedule returns the doctor's active appointments for one date,
// ordered by start time.
func (s *Service) DoctorSchedule(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	return s.repo.ListActiveByDoctorDate(ctx, doctorID, date)
}

func (s *Service) CountByDateRange(ctx context.Context, from, to time.Time) (int64, error) {
	return s.repo.CountByDateRange(ctx, from, to)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
