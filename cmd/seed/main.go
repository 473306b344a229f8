package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/careloop/appointment-scheduler/internal/db"
	"github.com/careloop/appointment-scheduler/internal/schedule"
)

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

var specializations = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func main() {
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	gofakeit.Seed(time.Now().UnixNano())

	doctors, err := seedDoctors(context.Background(), pool, 50)
	if err != nil {
		log.Fatal().Err(err).Msg("seed doctors")
	}
	patients, err := seedPatients(context.Background(), pool, 2000)
	if err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedAppointments(context.Background(), pool, doctors, patients); err != nil {
		log.Fatal().Err(err).Msg("seed appointments")
	}

	log.Info().Msg("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding doctors")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		specialization := specializations[gofakeit.Number(0, len(specializations)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialization, active, created_at, updated_at)
			VALUES ($1, $2, $3, true, now(), now())
		`, id, "Dr. "+gofakeit.Name(), specialization)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding patients")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		email := gofakeit.Email()

		_, err := tx.Exec(ctx, `
			INSERT INTO patients (id, name, email, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, gofakeit.Name(), email)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// seedAppointments books each doctor a partly-filled day tomorrow so the
// conflict and suggestion paths have data to chew on.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, doctors, patients []uuid.UUID) error {
	log.Info().Msg("seeding appointments")

	cfg := schedule.DefaultConfig()
	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	date := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, time.UTC)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, doctorID := range doctors {
		for t := cfg.WorkDayStart; t < cfg.WorkDayEnd; t += schedule.TimeOfDay(cfg.GridStepMin) {
			// leave roughly half the grid open
			if gofakeit.Bool() {
				continue
			}
			patientID := patients[gofakeit.Number(0, len(patients)-1)]

			_, err := tx.Exec(ctx, `
				INSERT INTO appointments (
					id, doctor_id, patient_id, visit_date, start_min, status,
					payment_status, created_at, updated_at
				)
				VALUES ($1, $2, $3, $4, $5, 'confirmed', 'paid', now(), now())
			`, uuid.New(), doctorID, patientID, date, t.Minutes())
			if err != nil {
				return err
			}
			inserted++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Info().Int("count", inserted).Msg("appointments seeded")
	return nil
}
