package schedule

import "errors"

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken is the bare sentinel; service paths wrap it in a
	// ConflictError carrying the blocking appointment when one is known.
	ErrSlotTaken = errors.New("slot already has an active appointment")

	ErrRescheduleTooLate = errors.New("cannot reschedule within the buffer window before the appointment")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSlotBeingBooked   = errors.New("slot is currently being booked, please retry")
)

// ConflictError is returned when a booking or reschedule collides with an
// existing active appointment. Conflict may be nil when the store rejected
// the write but the blocking record could not be re-read.
type ConflictError struct {
	Conflict *Appointment
}

func (e *ConflictError) Error() string { return ErrSlotTaken.Error() }

func (e *ConflictError) Unwrap() error { return ErrSlotTaken }

// ValidationError reports structurally malformed input. It is a typed
// failure, not a panic: validation never throws.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
