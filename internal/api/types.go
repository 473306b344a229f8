package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/careloop/appointment-scheduler/internal/schedule"
)

type CreateAppointmentRequest struct {
	DoctorID  string `json:"doctor_id"`
	PatientID string `json:"patient_id"`
	Date      string `json:"date"` // YYYY-MM-DD
	Time      string `json:"time"` // "H:MM AM/PM" or "HH:MM"
	Notes     string `json:"notes,omitempty"`
	Status    string `json:"status,omitempty"`
}

type RescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
	By   string `json:"by"`
}

type CancelRequest struct {
	By     string `json:"by"`
	Reason string `json:"reason,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type PaymentResponse struct {
	Status        string     `json:"status"`
	Method        *string    `json:"method,omitempty"`
	TransactionID *string    `json:"transaction_id,omitempty"`
	PaidAmount    *float64   `json:"paid_amount,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	PatientID   uuid.UUID `json:"patient_id"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`         // 24-hour
	DisplayTime string    `json:"display_time"` // 12-hour
	Status      string    `json:"status"`

	Payment PaymentResponse `json:"payment"`
	Notes   *string         `json:"notes,omitempty"`

	PreviousDate  *string    `json:"previous_date,omitempty"`
	PreviousTime  *string    `json:"previous_time,omitempty"`
	RescheduledBy *string    `json:"rescheduled_by,omitempty"`
	RescheduledAt *time.Time `json:"rescheduled_at,omitempty"`

	CancelledBy        *string    `json:"cancelled_by,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ConflictResponse struct {
	Error       string               `json:"error"`
	Details     string               `json:"details"`
	Conflict    *AppointmentResponse `json:"conflict,omitempty"`
	Suggestions []string             `json:"suggestions,omitempty"` // 24-hour times
}

type SlotCheckResponse struct {
	Available bool                 `json:"available"`
	Conflict  *AppointmentResponse `json:"conflict,omitempty"`
}

type OpenSlotResponse struct {
	AvailableTime *string `json:"available_time,omitempty"` // 24-hour
	Message       string  `json:"message"`
}

type ReschedulableResponse struct {
	CanReschedule bool   `json:"can_reschedule"`
	Reason        string `json:"reason,omitempty"`
}

type DoctorResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Specialization *string   `json:"specialization,omitempty"`
}

type CountResponse struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int64  `json:"count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *schedule.Appointment) *AppointmentResponse {
	if a == nil {
		return nil
	}
	resp := &AppointmentResponse{
		ID:          a.ID,
		DoctorID:    a.DoctorID,
		PatientID:   a.PatientID,
		Date:        schedule.FormatDate(a.VisitDate),
		Time:        a.Start.String(),
		DisplayTime: a.Start.Format12(),
		Status:      string(a.Status),
		Payment: PaymentResponse{
			Status:        string(a.Payment.Status),
			Method:        a.Payment.Method,
			TransactionID: a.Payment.TransactionID,
			PaidAmount:    a.Payment.PaidAmount,
			PaidAt:        a.Payment.PaidAt,
		},
		Notes:              a.Notes,
		RescheduledBy:      a.RescheduledBy,
		RescheduledAt:      a.RescheduledAt,
		CancelledBy:        a.CancelledBy,
		CancellationReason: a.CancellationReason,
		CancelledAt:        a.CancelledAt,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
	if a.PreviousDate != nil {
		d := schedule.FormatDate(*a.PreviousDate)
		resp.PreviousDate = &d
	}
	if a.PreviousStart != nil {
		t := a.PreviousStart.String()
		resp.PreviousTime = &t
	}
	return resp
}

func toAppointmentResponses(as []schedule.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(as))
	for i := range as {
		out = append(out, *toAppointmentResponse(&as[i]))
	}
	return out
}

func toDoctorResponses(ds []schedule.Doctor) []DoctorResponse {
	out := make([]DoctorResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, DoctorResponse{ID: d.ID, Name: d.Name, Specialization: d.Specialization})
	}
	return out
}
