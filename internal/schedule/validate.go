package schedule

import (
	"regexp"
	"time"
)

var reDate = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`)

// BookingInput is the raw booking payload before any scheduling logic runs.
// Date and Time arrive as strings because clients send both 12-hour and
// 24-hour forms.
type BookingInput struct {
	DoctorID  string
	PatientID string
	Date      string // YYYY-MM-DD
	Time      string // "H:MM AM/PM" or "HH:MM"
	Notes     string
	Status    string // optional; defaults to pending
}

// ValidateBookingInput is the structural gate: required fields, date and
// time formats, and a date-only not-in-the-past check against today.
// It returns a typed ValidationError and never panics.
func ValidateBookingInput(in BookingInput, today time.Time) error {
	if in.DoctorID == "" {
		return &ValidationError{Field: "doctorId", Reason: "required"}
	}
	if in.PatientID == "" {
		return &ValidationError{Field: "patientId", Reason: "required"}
	}
	if in.Date == "" {
		return &ValidationError{Field: "date", Reason: "required"}
	}
	if in.Time == "" {
		return &ValidationError{Field: "time", Reason: "required"}
	}

	if !reDate.MatchString(in.Date) {
		return &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	d, err := ParseDate(in.Date)
	if err != nil {
		return &ValidationError{Field: "date", Reason: "must be a real calendar date"}
	}

	if _, err := ParseTimeAny(in.Time); err != nil {
		return &ValidationError{Field: "time", Reason: "must be H:MM AM/PM or HH:MM"}
	}

	// Date-only comparison; time of day is ignored.
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if d.Before(day) {
		return &ValidationError{Field: "date", Reason: "must not be in the past"}
	}

	if in.Status != "" {
		st, err := ParseStatus(in.Status)
		if err != nil {
			return &ValidationError{Field: "status", Reason: "unknown status"}
		}
		// A record born rescheduled, cancelled or completed would skip
		// slot occupancy from the start.
		if st != StatusPending && st != StatusConfirmed {
			return &ValidationError{Field: "status", Reason: "new appointments must be pending or confirmed"}
		}
	}

	return nil
}
