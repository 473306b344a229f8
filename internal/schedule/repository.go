package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all store interactions needed by the scheduler.
// Implementations must return the package sentinel errors for missing rows
// and ErrSlotTaken when the active-slot uniqueness constraint rejects a
// write.
type Repository interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	FindActiveDoctorsBySpecialization(ctx context.Context, specialization string, exclude uuid.UUID, limit int) ([]Doctor, error)

	InsertAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// FindActiveConflict returns the active appointment occupying
	// (doctorID, date, start), skipping exclude when non-nil. Returns
	// ErrAppointmentNotFound when the slot is free.
	FindActiveConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, start TimeOfDay, exclude uuid.UUID) (*Appointment, error)

	ListActiveByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error)

	// Reschedule moves an active appointment in place, recording the
	// previous slot. Returns ErrAppointmentNotFound when the row is
	// missing or no longer active, ErrSlotTaken on constraint violation.
	Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time, newStart TimeOfDay, by string, at time.Time) (*Appointment, error)

	// Cancel transitions a non-terminal appointment to cancelled.
	// Returns ErrAppointmentNotFound when no non-terminal row matches.
	Cancel(ctx context.Context, id uuid.UUID, by, reason string, at time.Time) (*Appointment, error)

	// UpdateStatus is a compare-and-swap transition, guarded by the
	// current status so concurrent writers cannot clobber each other.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListByDate(ctx context.Context, date time.Time) ([]Appointment, error)
	CountByDateRange(ctx context.Context, from, to time.Time) (int64, error)

	// FindPastDueActive returns active appointments scheduled strictly
	// before the (date, start) cutoff, for no-show marking.
	FindPastDueActive(ctx context.Context, date time.Time, start TimeOfDay) ([]Appointment, error)
}
