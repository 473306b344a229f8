package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory Repository that enforces the same active-slot
// uniqueness the partial index does, so conflict paths behave like the
// real store.
type memRepo struct {
	mu           sync.Mutex
	doctors      map[uuid.UUID]*Doctor
	patients     map[uuid.UUID]*Patient
	appointments map[uuid.UUID]*Appointment
}

func newMemRepo() *memRepo {
	return &memRepo{
		doctors:      make(map[uuid.UUID]*Doctor),
		patients:     make(map[uuid.UUID]*Patient),
		appointments: make(map[uuid.UUID]*Appointment),
	}
}

func (r *memRepo) addDoctor(specialization string) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.doctors[id] = &Doctor{ID: id, Name: "Dr. Test", Specialization: &specialization, Active: true}
	return id
}

func (r *memRepo) addPatient() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.patients[id] = &Patient{ID: id, Name: "Pat Test"}
	return id
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.appointments)
}

func (r *memRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.doctors[id]; ok {
		return d, nil
	}
	return nil, ErrDoctorNotFound
}

func (r *memRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.patients[id]; ok {
		return p, nil
	}
	return nil, ErrPatientNotFound
}

func (r *memRepo) FindActiveDoctorsBySpecialization(_ context.Context, specialization string, exclude uuid.UUID, limit int) ([]Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Doctor
	for _, d := range r.doctors {
		if d.ID == exclude || !d.Active {
			continue
		}
		if d.Specialization == nil || *d.Specialization != specialization {
			continue
		}
		out = append(out, *d)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memRepo) findConflictLocked(doctorID uuid.UUID, date time.Time, start TimeOfDay, exclude uuid.UUID) *Appointment {
	for _, a := range r.appointments {
		if a.ID == exclude {
			continue
		}
		if a.DoctorID == doctorID && a.VisitDate.Equal(date) && a.Start == start && a.Status.Active() {
			return a
		}
	}
	return nil
}

func (r *memRepo) InsertAppointment(_ context.Context, a *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findConflictLocked(a.DoctorID, a.VisitDate, a.Start, uuid.Nil) != nil {
		return nil, ErrSlotTaken
	}
	cp := *a
	r.appointments[a.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.appointments[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, ErrAppointmentNotFound
}

func (r *memRepo) FindActiveConflict(_ context.Context, doctorID uuid.UUID, date time.Time, start TimeOfDay, exclude uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a := r.findConflictLocked(doctorID, date, start, exclude); a != nil {
		cp := *a
		return &cp, nil
	}
	return nil, ErrAppointmentNotFound
}

func (r *memRepo) ListActiveByDoctorDate(_ context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && a.VisitDate.Equal(date) && a.Status.Active() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memRepo) Reschedule(_ context.Context, id uuid.UUID, newDate time.Time, newStart TimeOfDay, by string, at time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || !a.Status.Active() {
		return nil, ErrAppointmentNotFound
	}
	if r.findConflictLocked(a.DoctorID, newDate, newStart, id) != nil {
		return nil, ErrSlotTaken
	}
	prevDate, prevStart := a.VisitDate, a.Start
	a.PreviousDate = &prevDate
	a.PreviousStart = &prevStart
	a.VisitDate = newDate
	a.Start = newStart
	a.Status = StatusRescheduled
	a.RescheduledBy = &by
	a.RescheduledAt = &at
	a.UpdatedAt = at
	cp := *a
	return &cp, nil
}

func (r *memRepo) Cancel(_ context.Context, id uuid.UUID, by, reason string, at time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || a.Status.Terminal() {
		return nil, ErrAppointmentNotFound
	}
	a.Status = StatusCancelled
	a.CancelledBy = &by
	a.CancellationReason = &reason
	a.CancelledAt = &at
	a.UpdatedAt = at
	cp := *a
	return &cp, nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	cp := *a
	return &cp, nil
}

func (r *memRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appointments {
		if a.DoctorID == doctorID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appointments {
		if a.PatientID == patientID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memRepo) ListByDate(_ context.Context, date time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appointments {
		if a.VisitDate.Equal(date) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memRepo) CountByDateRange(_ context.Context, from, to time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.appointments {
		if !a.VisitDate.Before(from) && !a.VisitDate.After(to) {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) FindPastDueActive(_ context.Context, date time.Time, start TimeOfDay) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appointments {
		if !a.Status.Active() {
			continue
		}
		if a.VisitDate.Before(date) || (a.VisitDate.Equal(date) && a.Start < start) {
			out = append(out, *a)
		}
	}
	return out, nil
}

// noopLocker runs the critical section inline; lock behavior is covered by
// the redis package's own contract.
type noopLocker struct{}

func (noopLocker) WithSlotLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fixedNow is well before any test appointment, so bookings are never "in
// the past" and reschedule-buffer math is deterministic.
var fixedNow = time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC)

func newTestService(repo *memRepo) *Service {
	svc := NewService(repo, noopLocker{}, DefaultConfig(), zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestCreateAppointment_BooksFreeSlot(t *testing.T) {
	repo := newMemRepo()
	doctorID := repo.addDoctor("Cardiology")
	patientID := repo.addPatient()
	svc := newTestService(repo)

	appt, err := svc.CreateAppointment(context.Background(), BookingInput{
		DoctorID:  doctorID.String(),
		PatientID: patientID.String(),
		Date:      "2025-06-01",
		Time:      "09:00 AM",
	})
	require.NoError(t, err)

	assert.Equal(t, doctorID, appt.DoctorID)
	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, PaymentPending, appt.Payment.Status)
	assert.Equal(t, "09:00", appt.Start.String())

	persisted, err := svc.GetAppointment(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, persisted.ID)
	assert.Equal(t, appt.Start, persisted.Start)
}

func TestCreateAppointment_ConflictLeavesStoreUnchanged(t *testing.T) {
	repo := newMemRepo()
	doctorID := repo.addDoctor("Cardiology")
	patientID := repo.addPatient()
	svc := newTestService(repo)

	first, err := svc.CreateAppointment(context.Background(), BookingInput{
		DoctorID:  doctorID.String(),
		PatientID: patientID.String(),
		Date:      "2025-06-01",
		Time:      "09:00 AM",
	})
	require.NoError(t, err)

	_, err = svc.CreateAppointment(context.Background(), BookingInput{
		DoctorID:  doctorID.String(),
		PatientID: repo.addPatient().String(),
		Date:      "2025-06-01",
		Time:      "09:00 AM",
	})
	require.ErrorIs(t, err, ErrSlotTaken)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.NotNil(t, conflict.Conflict)
	assert.Equal(t, first.ID, conflict.Conflict.ID)

	assert.Equal(t, 1, repo.count(), "failed booking must not persist anything")
}

func TestCreateAppointment_SameSlotDifferentDoctor(t *testing.T) {
	repo := newMemRepo()
	patientID := repo.addPatient()
	svc := newTestService(repo)

	for _, spec := range []string{"Cardiology", "Dermatology"} {
		_, err := svc.CreateAppointment(context.Background(), BookingInput{
			DoctorID:  repo.addDoctor(spec).String(),
			PatientID: patientID.String(),
			Date:      "2025-06-01",
			Time:      "09:00 AM",
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, repo.count())
}

func TestCreateAppointment_UnknownDoctor(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	_, err := svc.CreateAppointment(context.Background(), BookingInput{
		DoctorID:  uuid.NewString(),
		PatientID: repo.addPatient().String(),
		Date:      "2025-06-01",
		Time:      "09:00 AM",
	})
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestCreateAppointment_RejectsTerminalBirthStatus(t *testing.T) {
	repo := newMemRepo()
	doctorID := repo.addDoctor("Cardiology")
	patientID := repo.addPatient()
	svc := newTestService(repo)

	for _, status := range []string{"cancelled", "completed", "missed", "rescheduled"} {
		_, err := svc.CreateAppointment(context.Background(), BookingInput{
			DoctorID:  doctorID.String(),
			PatientID: patientID.String(),
			Date:      "2025-06-01",
			Time:      "09:00 AM",
			Status:    status,
		})

		var ve *ValidationError
		require.ErrorAs(t, err, &ve, status)
		assert.Equal(t, "status", ve.Field)
	}
	assert.Equal(t, 0, repo.count())

	// The booking-flow statuses are still accepted.
	appt, err := svc.CreateAppointment(context.Background(), BookingInput{
		DoctorID:  doctorID.String(),
		PatientID: patientID.String(),
		Date:      "2025-06-01",
		Time:      "09:00 AM",
		Status:    "scheduled",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, appt.Status)
}

func TestCancelFreesSlotForRebooking(t *testing.T) {
	repo := newMemRepo()
	doctorID := repo.addDoctor("Cardiology")
	svc := newTestService(repo)

	first, err := svc.CreateAppointment(context.Background(), BookingInput{
		DoctorID:  doctorID.String(),
		PatientID: repo.addPatient().String(),
		Date:      "2025-06-01",
		Time:      "09:00 AM",
	})
	require.NoError(t, err)

	_, err = svc.CreateAppointment(context.Background(), BookingInput{
		DoctorID:  doctorID.String(),
		PatientID: repo.addPatient().String(),
		Date:      "2025-06-01",
		Time:      "09:00 AM",
	})
	require.ErrorIs(t, err, ErrSlotTaken)

	cancelled, err := svc.CancelAppointment(context.Background(), first.ID, "patient", "feeling better")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, "patient", *cancelled.CancelledBy)

	rebooked, err := svc.CreateAppointment(context.Background(), BookingInput{
		DoctorID:  doctorID.String(),
		PatientID: repo.addPatient().String(),
		Date:      "2025-06-01",
		Time:      "09:00 AM",
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, rebooked.ID)
}

func TestCancel_TerminalAppointment(t *testing.T) {
	repo := newMemRepo()
	doctorID := repo.addDoctor("Cardiology")
	svc := newTestService(repo)

	appt, err := svc.CreateAppointment(context.Background(), BookingInput{
		DoctorID:  doctorID.String(),
		PatientID: repo.addPatient().String(),
		Date:      "2025-06-01",
		Time:      "09:00 AM",
	})
	require.NoError(t, err)

	_, err = svc.CancelAppointment(context.Background(), appt.ID, "patient", "")
	require.NoError(t, err)

	_, err = svc.CancelAppointment(context.Background(), appt.ID, "patient", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.CancelAppointment(context.Background(), uuid.New(), "patient", "")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestReschedule_MovesRecordInPlace(t *testing.T) {
	repo := newMemRepo()
	doctorID := repo.addDoctor("Cardiology")
	svc := newTestService(repo)

	appt, err := svc.CreateAppointment(context.Background(), BookingInput{
		DoctorID:  doctorID.String(),
		PatientID: repo.addPatient().String(),
		Date:      "2025-06-01",
		Time:      "09:00 AM",
	})
	require.NoError(t, err)

	moved, err := svc.RescheduleAppointment(context.Background(), appt.ID,
		mustDate(t, "2025-06-02"), mustParse12(t, "10:30 AM"), "patient")
	require.NoError(t, err)

	assert.Equal(t, appt.ID, moved.ID, "reschedule mutates in place, no new record")
	assert.Equal(t, StatusRescheduled, moved.Status)
	assert.Equal(t, "10:30", moved.Start.String())
	require.NotNil(t, moved.PreviousDate)
	assert.Equal(t, "2025-06-01", FormatDate(*moved.PreviousDate))
	require.NotNil(t, moved.PreviousStart)
	assert.Equal(t, "09:00", moved.PreviousStart.String())
	assert.Equal(t, 1, repo.count())
}

func TestReschedule_ConflictWithOtherAppointment(t *testing.T) {
	repo := newMemRepo()
	doctorID := repo.addDoctor("Cardiology")
	svc := newTestService(repo)

	blocker, err := svc.CreateAppointment(context.Background(), BookingInput{
		DoctorID:  doctorID.String(),
		PatientID: repo.addPatient().String(),
		Date:      "2025-06-01",
		Time:      "10:00 AM",
	})
	require.NoError(t, err)

	appt, err := svc.CreateAppointment(context.Background(), BookingInput{
		DoctorID:  doctorID.String(),
		PatientID: repo.addPatient().String(),
		Date:      "2025-06-01",
		Time:      "09:00 AM",
	})
	require.NoError(t, err)

	_, err = svc.RescheduleAppointment(context.Background(), appt.ID,
		mustDate(t, "2025-06-01"), mustParse12(t, "10:00 AM"), "patient")
	require.ErrorIs(t, err, ErrSlotTaken)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, blocker.ID, conflict.Conflict.ID)
}

func TestReschedule_OwnSlotIsNotAConflict(t *testing.T) {
	repo := newMemRepo()
	doctorID := repo.addDoctor("Cardiology")
	svc := newTestService(repo)

	appt, err := svc.CreateAppointment(context.Background(), BookingInput{
		DoctorID:  doctorID.String(),
		PatientID: repo.addPatient().String(),
		Date:      "2025-06-01",
		Time:      "09:00 AM",
	})
	require.NoError(t, err)

	moved, err := svc.RescheduleAppointment(context.Background(), appt.ID,
		appt.VisitDate, appt.Start, "patient")
	require.NoError(t, err, "self-exclusion must hold")
	assert.Equal(t, StatusRescheduled, moved.Status)
}

func TestRescheduleGate_InsideBufferWindow(t *testing.T) {
	repo := newMemRepo()
	doctorID := repo.addDoctor("Cardiology")
	svc := newTestService(repo)

	// 90 minutes from the fixed clock: inside the 2-hour buffer.
	appt, err := svc.CreateAppointment(context.Background(), BookingInput{
		DoctorID:  doctorID.String(),
		PatientID: repo.addPatient().String(),
		Date:      "2025-05-30",
		Time:      "01:30 PM",
	})
	require.NoError(t, err)

	err = svc.CanReschedule(context.Background(), appt.ID)
	assert.ErrorIs(t, err, ErrRescheduleTooLate)

	// The gate is enforced by the mutator too, not just the advisory check.
	_, err = svc.RescheduleAppointment(context.Background(), appt.ID,
		mustDate(t, "2025-06-02"), mustParse12(t, "10:00 AM"), "patient")
	assert.ErrorIs(t, err, ErrRescheduleTooLate)
}

func TestRescheduleGate_OutsideBufferWindow(t *testing.T) {
	repo := newMemRepo()
	doctorID := repo.addDoctor("Cardiology")
	svc := newTestService(repo)

	// 3 hours out: allowed.
	appt, err := svc.CreateAppointment(context.Background(), BookingInput{
		DoctorID:  doctorID.String(),
		PatientID: repo.addPatient().String(),
		Date:      "2025-05-30",
		Time:      "03:00 PM",
	})
	require.NoError(t, err)

	assert.NoError(t, svc.CanReschedule(context.Background(), appt.ID))
}

func TestRescheduleGate_TerminalStatus(t *testing.T) {
	repo := newMemRepo()
	doctorID := repo.addDoctor("Cardiology")
	svc := newTestService(repo)

	appt, err := svc.CreateAppointment(context.Background(), BookingInput{
		DoctorID:  doctorID.String(),
		PatientID: repo.addPatient().String(),
		Date:      "2025-06-01",
		Time:      "09:00 AM",
	})
	require.NoError(t, err)

	_, err = svc.CancelAppointment(context.Background(), appt.ID, "patient", "")
	require.NoError(t, err)

	err = svc.CanReschedule(context.Background(), appt.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.RescheduleAppointment(context.Background(), appt.ID,
		mustDate(t, "2025-06-02"), mustParse12(t, "10:00 AM"), "patient")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestNextAvailableSlots_EmptyCalendar(t *testing.T) {
	repo := newMemRepo()
	doctorID := repo.addDoctor("Cardiology")
	svc := newTestService(repo)

	slots, err := svc.NextAvailableSlots(context.Background(), doctorID,
		mustDate(t, "2025-06-01"), mustParse12(t, "09:00 AM"), 3)
	require.NoError(t, err)

	var got []string
	for _, s := range slots {
		got = append(got, s.String())
	}
	assert.Equal(t, []string{"09:15", "09:30", "09:45"}, got)
}

func TestNextAvailableSlots_SkipsBookedSlots(t *testing.T) {
	repo := newMemRepo()
	doctorID := repo.addDoctor("Cardiology")
	svc := newTestService(repo)

	_, err := svc.CreateAppointment(context.Background(), BookingInput{
		DoctorID:  doctorID.String(),
		PatientID: repo.addPatient().String(),
		Date:      "2025-06-01",
		Time:      "09:15 AM",
	})
	require.NoError(t, err)

	slots, err := svc.NextAvailableSlots(context.Background(), doctorID,
		mustDate(t, "2025-06-01"), mustParse12(t, "09:00 AM"), 3)
	require.NoError(t, err)

	var got []string
	for _, s := range slots {
		got = append(got, s.String())
	}
	assert.Equal(t, []string{"09:30", "09:45", "10:00"}, got)
}

func TestNextAvailableSlots_ScanCapBoundsResult(t *testing.T) {
	repo := newMemRepo()
	doctorID := repo.addDoctor("Cardiology")
	svc := newTestService(repo)

	// Fill 09:15 through 11:30; the 10-candidate scan exhausts before any
	// free slot, so a short (empty) result is expected, not an error.
	for _, at := range []string{"09:15 AM", "09:30 AM", "09:45 AM", "10:00 AM", "10:15 AM",
		"10:30 AM", "10:45 AM", "11:00 AM", "11:15 AM", "11:30 AM"} {
		_, err := svc.CreateAppointment(context.Background(), BookingInput{
			DoctorID:  doctorID.String(),
			PatientID: repo.addPatient().String(),
			Date:      "2025-06-01",
			Time:      at,
		})
		require.NoError(t, err)
	}

	slots, err := svc.NextAvailableSlots(context.Background(), doctorID,
		mustDate(t, "2025-06-01"), mustParse12(t, "09:00 AM"), 3)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestNextAvailableSlots_StopsAtWorkDayEnd(t *testing.T) {
	repo := newMemRepo()
	doctorID := repo.addDoctor("Cardiology")
	svc := newTestService(repo)

	slots, err := svc.NextAvailableSlots(context.Background(), doctorID,
		mustDate(t, "2025-06-01"), mustParse12(t, "04:45 PM"), 3)
	require.NoError(t, err)
	assert.Empty(t, slots, "17:00 is exclusive")
}

func TestFindNextOpenSlot_RespectsBuffer(t *testing.T) {
	repo := newMemRepo()
	doctorID := repo.addDoctor("Cardiology")
	svc := newTestService(repo)

	for _, at := range []string{"09:00 AM", "09:30 AM"} {
		_, err := svc.CreateAppointment(context.Background(), BookingInput{
			DoctorID:  doctorID.String(),
			PatientID: repo.addPatient().String(),
			Date:      "2025-06-01",
			Time:      at,
		})
		require.NoError(t, err)
	}

	slot, err := svc.FindNextOpenSlot(context.Background(), doctorID,
		mustDate(t, "2025-06-01"), mustParse12(t, "09:00 AM"))
	require.NoError(t, err)
	require.NotNil(t, slot.Time)
	assert.Equal(t, "10:00", slot.Time.String(), "09:30 is too close to an existing appointment")
}

func TestFindNextOpenSlot_NoneLeft(t *testing.T) {
	repo := newMemRepo()
	doctorID := repo.addDoctor("Cardiology")
	svc := newTestService(repo)

	slot, err := svc.FindNextOpenSlot(context.Background(), doctorID,
		mustDate(t, "2025-06-01"), mustParse12(t, "05:45 PM"))
	require.NoError(t, err)
	assert.Nil(t, slot.Time)
	assert.NotEmpty(t, slot.Message)
}

func TestUpdateStatus_TerminalIsSink(t *testing.T) {
	repo := newMemRepo()
	doctorID := repo.addDoctor("Cardiology")
	svc := newTestService(repo)

	appt, err := svc.CreateAppointment(context.Background(), BookingInput{
		DoctorID:  doctorID.String(),
		PatientID: repo.addPatient().String(),
		Date:      "2025-06-01",
		Time:      "09:00 AM",
	})
	require.NoError(t, err)

	completed, err := svc.UpdateStatus(context.Background(), appt.ID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)

	_, err = svc.UpdateStatus(context.Background(), appt.ID, StatusConfirmed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMarkNoShows(t *testing.T) {
	repo := newMemRepo()
	doctorID := repo.addDoctor("Cardiology")
	svc := newTestService(repo)

	// Seed directly: the booking path rejects past dates.
	stale := &Appointment{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		PatientID: repo.addPatient(),
		VisitDate: mustDate(t, "2025-05-29"),
		Start:     mustParse12(t, "09:00 AM"),
		Status:    StatusConfirmed,
	}
	_, err := repo.InsertAppointment(context.Background(), stale)
	require.NoError(t, err)

	upcoming, err := svc.CreateAppointment(context.Background(), BookingInput{
		DoctorID:  doctorID.String(),
		PatientID: repo.addPatient().String(),
		Date:      "2025-06-01",
		Time:      "09:00 AM",
	})
	require.NoError(t, err)

	marked, err := svc.MarkNoShows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	got, err := svc.GetAppointment(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, got.Status)

	kept, err := svc.GetAppointment(context.Background(), upcoming.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, kept.Status)
}

func TestSuggestAlternativeDoctors(t *testing.T) {
	repo := newMemRepo()
	preferred := repo.addDoctor("Cardiology")
	for i := 0; i < 5; i++ {
		repo.addDoctor("Cardiology")
	}
	repo.addDoctor("Dermatology")
	svc := newTestService(repo)

	alts, err := svc.SuggestAlternativeDoctors(context.Background(), "Cardiology", preferred)
	require.NoError(t, err)
	assert.Len(t, alts, 3, "capped at the configured limit")
	for _, d := range alts {
		assert.NotEqual(t, preferred, d.ID)
		assert.Equal(t, "Cardiology", *d.Specialization)
	}
}

func mustParse12(t *testing.T, s string) TimeOfDay {
	t.Helper()
	v, err := ParseTime12(s)
	require.NoError(t, err)
	return v
}
