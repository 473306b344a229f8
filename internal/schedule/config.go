package schedule

import "time"

// Config holds the scheduling knobs. Defaults mirror the clinic's booking
// rules: 09:00-17:00 bookable window, 15-minute booking probe, a coarser
// 30-minute suggestion grid that runs until 18:00 and keeps a 30-minute
// buffer around existing appointments.
type Config struct {
	WorkDayStart TimeOfDay // first bookable time, inclusive
	WorkDayEnd   TimeOfDay // probe window end, exclusive

	ProbeStepMin int // increment for NextAvailableSlots
	ProbeScanCap int // candidates examined before giving up

	GridEnd         TimeOfDay // suggestion grid end, exclusive
	GridStepMin     int       // increment for FindNextOpenSlot
	SlotBufferMin   int       // required gap to every existing appointment
	SuggestionCount int

	RescheduleBuffer time.Duration // lead time below which reschedules are refused
	NoShowGrace      time.Duration // how far past start before marking no_show

	AlternativeDoctorLimit int
}

func DefaultConfig() Config {
	return Config{
		WorkDayStart:           9 * 60,
		WorkDayEnd:             17 * 60,
		ProbeStepMin:           15,
		ProbeScanCap:           10,
		GridEnd:                18 * 60,
		GridStepMin:            30,
		SlotBufferMin:          30,
		SuggestionCount:        3,
		RescheduleBuffer:       2 * time.Hour,
		NoShowGrace:            30 * time.Minute,
		AlternativeDoctorLimit: 3,
	}
}
