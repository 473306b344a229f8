package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/careloop/appointment-scheduler/internal/schedule"
)

type RouterConfig struct {
	Service *schedule.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", createAppointmentHandler(cfg.Service))
		r.Get("/today", todayAppointmentsHandler(cfg.Service))
		r.Get("/count", countAppointmentsHandler(cfg.Service))
		r.Get("/{id}", getAppointmentHandler(cfg.Service))
		r.Post("/{id}/reschedule", rescheduleAppointmentHandler(cfg.Service))
		r.Get("/{id}/reschedulable", reschedulableHandler(cfg.Service))
		r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Service))
		r.Post("/{id}/status", updateStatusHandler(cfg.Service))
	})

	r.Route("/doctors/{id}", func(r chi.Router) {
		r.Get("/appointments", doctorAppointmentsHandler(cfg.Service))
		r.Get("/schedule", doctorScheduleHandler(cfg.Service))
		r.Get("/availability", slotAvailabilityHandler(cfg.Service))
		r.Get("/next-slots", nextSlotsHandler(cfg.Service))
		r.Get("/open-slot", openSlotHandler(cfg.Service))
		r.Get("/alternatives", alternativeDoctorsHandler(cfg.Service))
	})

	r.Get("/patients/{id}/appointments", patientAppointmentsHandler(cfg.Service))

	return r
}
