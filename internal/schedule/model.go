package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusRescheduled Status = "rescheduled"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusNoShow      Status = "no_show"
)

// ActiveStatuses is the set of statuses that occupy a slot. Cancelled,
// completed and no-show appointments free their slot.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed, StatusRescheduled}

// Terminal reports whether no further transition is expected from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Active reports whether s occupies a slot.
func (s Status) Active() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// ParseStatus normalizes a status string. "scheduled" is an accepted alias
// of confirmed and "missed" of no_show; both appear in older client payloads.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusRescheduled,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return Status(s), nil
	}
	switch s {
	case "scheduled":
		return StatusConfirmed, nil
	case "missed", "no-show":
		return StatusNoShow, nil
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment is the embedded payment sub-record. It is independent of the
// appointment status; the booking flow settles it before confirming.
type Payment struct {
	Status        PaymentStatus
	Method        *string
	TransactionID *string
	PaidAmount    *float64
	PaidAt        *time.Time
}

type Doctor struct {
	ID             uuid.UUID
	Name           string
	Specialization *string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is the sole entity this service owns. A slot is the
// (DoctorID, VisitDate, Start) triple; at most one appointment with an
// active status may hold it. Records are never physically deleted.
type Appointment struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	VisitDate time.Time // date only, midnight UTC
	Start     TimeOfDay
	Status    Status
	Notes     *string
	Payment   Payment

	// Reschedule audit
	PreviousDate  *time.Time
	PreviousStart *TimeOfDay
	RescheduledBy *string
	RescheduledAt *time.Time

	// Cancellation audit
	CancelledBy        *string
	CancellationReason *string
	CancelledAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StartsAt is the appointment's scheduled instant in loc.
func (a *Appointment) StartsAt(loc *time.Location) time.Time {
	return a.Start.At(a.VisitDate, loc)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// FormatDate renders the YYYY-MM-DD form.
func FormatDate(d time.Time) string { return d.Format("2006-01-02") }
