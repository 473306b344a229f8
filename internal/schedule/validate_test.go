package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validateToday = time.Date(2025, 5, 30, 15, 0, 0, 0, time.UTC)

func TestValidateBookingInput_Accepts(t *testing.T) {
	err := ValidateBookingInput(BookingInput{
		DoctorID:  "d1",
		PatientID: "p1",
		Date:      "2099-01-01",
		Time:      "09:00 AM",
	}, validateToday)
	assert.NoError(t, err)
}

func TestValidateBookingInput_AcceptsToday(t *testing.T) {
	// Date-only comparison: today passes even late in the day.
	err := ValidateBookingInput(BookingInput{
		DoctorID:  "d1",
		PatientID: "p1",
		Date:      "2025-05-30",
		Time:      "09:00 AM",
	}, validateToday)
	assert.NoError(t, err)
}

func TestValidateBookingInput_Accepts24HourTime(t *testing.T) {
	err := ValidateBookingInput(BookingInput{
		DoctorID:  "d1",
		PatientID: "p1",
		Date:      "2099-01-01",
		Time:      "14:30",
	}, validateToday)
	assert.NoError(t, err)
}

func TestValidateBookingInput_Rejects(t *testing.T) {
	base := BookingInput{
		DoctorID:  "d1",
		PatientID: "p1",
		Date:      "2099-01-01",
		Time:      "09:00 AM",
	}

	cases := []struct {
		name   string
		mutate func(*BookingInput)
		field  string
	}{
		{"missing doctor", func(in *BookingInput) { in.DoctorID = "" }, "doctorId"},
		{"missing patient", func(in *BookingInput) { in.PatientID = "" }, "patientId"},
		{"missing date", func(in *BookingInput) { in.Date = "" }, "date"},
		{"missing time", func(in *BookingInput) { in.Time = "" }, "time"},
		{"month out of range", func(in *BookingInput) { in.Date = "2024-13-01" }, "date"},
		{"day out of range", func(in *BookingInput) { in.Date = "2024-01-32" }, "date"},
		{"wrong date shape", func(in *BookingInput) { in.Date = "01-01-2099" }, "date"},
		{"impossible calendar date", func(in *BookingInput) { in.Date = "2025-02-30" }, "date"},
		{"bad time", func(in *BookingInput) { in.Time = "25:00" }, "time"},
		{"bad meridiem hour", func(in *BookingInput) { in.Time = "13:00 PM" }, "time"},
		{"past date", func(in *BookingInput) { in.Date = "2025-05-29" }, "date"},
		{"unknown status", func(in *BookingInput) { in.Status = "tentative" }, "status"},
		{"born cancelled", func(in *BookingInput) { in.Status = "cancelled" }, "status"},
		{"born completed", func(in *BookingInput) { in.Status = "completed" }, "status"},
		{"born no-show", func(in *BookingInput) { in.Status = "missed" }, "status"},
		{"born rescheduled", func(in *BookingInput) { in.Status = "rescheduled" }, "status"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)

			err := ValidateBookingInput(in, validateToday)
			require.Error(t, err)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestValidateBookingInput_StatusAliases(t *testing.T) {
	in := BookingInput{
		DoctorID:  "d1",
		PatientID: "p1",
		Date:      "2099-01-01",
		Time:      "09:00 AM",
		Status:    "scheduled",
	}
	assert.NoError(t, ValidateBookingInput(in, validateToday))

	got, err := ParseStatus("scheduled")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got)

	got, err = ParseStatus("missed")
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, got)
}
