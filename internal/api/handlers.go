package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/careloop/appointment-scheduler/internal/schedule"
)

func createAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), schedule.BookingInput{
			DoctorID:  req.DoctorID,
			PatientID: req.PatientID,
			Date:      req.Date,
			Time:      req.Time,
			Notes:     req.Notes,
			Status:    req.Status,
		})
		if err != nil {
			var conflict *schedule.ConflictError
			if errors.As(err, &conflict) {
				writeConflict(w, r, svc, conflict, req.DoctorID, req.Date, req.Time)
				return
			}
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

// writeConflict attaches the blocking appointment and, when the request is
// parseable, probe-based alternative times so clients can offer a retry.
func writeConflict(w http.ResponseWriter, r *http.Request, svc *schedule.Service, conflict *schedule.ConflictError, doctorID, date, timeOfDay string) {
	resp := ConflictResponse{
		Error:    "slot_conflict",
		Details:  "slot already has an active appointment",
		Conflict: toAppointmentResponse(conflict.Conflict),
	}

	if doctorID == "" && conflict.Conflict != nil {
		doctorID = conflict.Conflict.DoctorID.String()
	}

	if did, err := uuid.Parse(doctorID); err == nil {
		if d, err := schedule.ParseDate(date); err == nil {
			if t, err := schedule.ParseTimeAny(timeOfDay); err == nil {
				if slots, err := svc.NextAvailableSlots(r.Context(), did, d, t, 0); err == nil {
					for _, s := range slots {
						resp.Suggestions = append(resp.Suggestions, s.String())
					}
				}
			}
		}
	}

	writeJSON(w, http.StatusConflict, resp)
}

func getAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}
		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func todayAppointmentsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, err := svc.TodayAppointments(r.Context())
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func countAppointmentsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, ok := parseDateQuery(w, r, "from")
		if !ok {
			return
		}
		to, ok := parseDateQuery(w, r, "to")
		if !ok {
			return
		}

		n, err := svc.CountByDateRange(r.Context(), from, to)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, CountResponse{
			From:  schedule.FormatDate(from),
			To:    schedule.FormatDate(to),
			Count: n,
		})
	}
}

func rescheduleAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, err := schedule.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		start, err := schedule.ParseTimeAny(req.Time)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", "time must be H:MM AM/PM or HH:MM")
			return
		}

		appt, err := svc.RescheduleAppointment(r.Context(), id, date, start, req.By)
		if err != nil {
			var conflict *schedule.ConflictError
			if errors.As(err, &conflict) {
				writeConflict(w, r, svc, conflict, "", req.Date, req.Time)
				return
			}
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func reschedulableHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		err := svc.CanReschedule(r.Context(), id)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, ReschedulableResponse{CanReschedule: true})
		case errors.Is(err, schedule.ErrRescheduleTooLate):
			writeJSON(w, http.StatusOK, ReschedulableResponse{CanReschedule: false, Reason: err.Error()})
		case errors.Is(err, schedule.ErrInvalidTransition):
			writeJSON(w, http.StatusOK, ReschedulableResponse{CanReschedule: false, Reason: "appointment is in a terminal state"})
		default:
			handleScheduleError(w, err)
		}
	}
}

func cancelAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req CancelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.CancelAppointment(r.Context(), id, req.By, req.Reason)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func updateStatusHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		status, err := schedule.ParseStatus(req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
			return
		}

		appt, err := svc.UpdateStatus(r.Context(), id, status)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func doctorAppointmentsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}
		limit, offset := parsePage(r)

		appts, err := svc.ListByDoctor(r.Context(), id, limit, offset)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func doctorScheduleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}
		date, ok := parseDateQuery(w, r, "date")
		if !ok {
			return
		}

		appts, err := svc.DoctorSchedule(r.Context(), id, date)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func nextSlotsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}
		date, ok := parseDateQuery(w, r, "date")
		if !ok {
			return
		}
		from, err := schedule.ParseTimeAny(r.URL.Query().Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be H:MM AM/PM or HH:MM")
			return
		}
		count, _ := strconv.Atoi(r.URL.Query().Get("count"))

		slots, err := svc.NextAvailableSlots(r.Context(), id, date, from, count)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		out := make([]string, 0, len(slots))
		for _, s := range slots {
			out = append(out, s.String())
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func openSlotHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}
		date, ok := parseDateQuery(w, r, "date")
		if !ok {
			return
		}
		after, err := schedule.ParseTimeAny(r.URL.Query().Get("after"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_after", "after must be H:MM AM/PM or HH:MM")
			return
		}

		slot, err := svc.FindNextOpenSlot(r.Context(), id, date, after)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := OpenSlotResponse{Message: slot.Message}
		if slot.Time != nil {
			t := slot.Time.String()
			resp.AvailableTime = &t
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func slotAvailabilityHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}
		date, ok := parseDateQuery(w, r, "date")
		if !ok {
			return
		}
		at, err := schedule.ParseTimeAny(r.URL.Query().Get("time"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", "time must be H:MM AM/PM or HH:MM")
			return
		}

		exclude := uuid.Nil
		if v := r.URL.Query().Get("exclude"); v != "" {
			exclude, err = uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_exclude", "exclude must be a valid UUID")
				return
			}
		}

		check, err := svc.CheckSlotAvailability(r.Context(), id, date, at, exclude)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, SlotCheckResponse{
			Available: check.Available,
			Conflict:  toAppointmentResponse(check.Conflict),
		})
	}
}

func alternativeDoctorsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}
		specialization := r.URL.Query().Get("specialization")
		if specialization == "" {
			writeError(w, http.StatusBadRequest, "missing_specialization", "specialization query parameter is required")
			return
		}

		doctors, err := svc.SuggestAlternativeDoctors(r.Context(), specialization, id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoctorResponses(doctors))
	}
}

func patientAppointmentsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}
		limit, offset := parsePage(r)

		appts, err := svc.ListByPatient(r.Context(), id, limit, offset)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

// Shared helpers

func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseDateQuery(w http.ResponseWriter, r *http.Request, key string) (time.Time, bool) {
	d, err := schedule.ParseDate(r.URL.Query().Get(key))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+key, key+" must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

func parsePage(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

func handleScheduleError(w http.ResponseWriter, err error) {
	var ve *schedule.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, "validation_error", ve.Error())
	case errors.Is(err, schedule.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, schedule.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, schedule.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, schedule.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_conflict", err.Error())
	case errors.Is(err, schedule.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, schedule.ErrRescheduleTooLate):
		writeError(w, http.StatusUnprocessableEntity, "reschedule_too_late", err.Error())
	case errors.Is(err, schedule.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
