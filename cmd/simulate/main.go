// Command simulate hammers the booking endpoint with concurrent workers
// aimed at a deliberately small set of slots, then verifies in Postgres
// that no slot ended up with more than one active appointment.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/careloop/appointment-scheduler/internal/config"
	"github.com/careloop/appointment-scheduler/internal/db"
	"github.com/careloop/appointment-scheduler/internal/schedule"
)

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	DoctorLimit int
	SlotSpread  int // distinct slots per doctor the workers fight over
	PostgresDSN string
}

type OperationMetrics struct {
	Total    int64
	Success  int64
	Conflict int64
	Error    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return 0, 0, 0
	}

	sorted := make([]time.Duration, len(om.latencies))
	copy(sorted, om.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	avg = sum / time.Duration(len(sorted))
	p50 = sorted[len(sorted)*50/100]
	p95 = sorted[min(len(sorted)*95/100, len(sorted)-1)]
	return avg, p50, p95
}

type target struct {
	doctorID uuid.UUID
	date     string
	time     schedule.TimeOfDay
}

func main() {
	log.Info().Msg("simulator starting")

	cfg := loadSimConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	doctors, patients, err := loadIDs(ctx, pgPool, cfg.DoctorLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("load data pool")
	}
	log.Info().Int("doctors", len(doctors)).Int("patients", len(patients)).Msg("data pool loaded")

	targets := buildTargets(doctors, cfg.SlotSpread)
	log.Info().Int("targets", len(targets)).Int("workers", cfg.Workers).
		Dur("duration", cfg.Duration).Msg("starting contention run")

	metrics := runWorkers(cfg, targets, patients)

	avg, p50, p95 := metrics.Stats()
	log.Info().
		Int64("total", metrics.Total).
		Int64("success", metrics.Success).
		Int64("conflict", metrics.Conflict).
		Int64("error", metrics.Error).
		Dur("avg", avg).Dur("p50", p50).Dur("p95", p95).
		Msg("run complete")

	violations, err := checkInvariant(context.Background(), pgPool)
	if err != nil {
		log.Fatal().Err(err).Msg("invariant check failed to run")
	}
	if violations > 0 {
		log.Error().Int64("violations", violations).Msg("INVARIANT BROKEN: active slots with more than one appointment")
		os.Exit(1)
	}
	log.Info().Msg("invariant holds: at most one active appointment per slot")
}

func loadSimConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load base config")
	}

	return SimConfig{
		APIBaseURL:  getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:    getDuration("SIM_DURATION", 30*time.Second),
		Workers:     getInt("SIM_WORKERS", 20),
		DoctorLimit: getInt("SIM_DOCTOR_LIMIT", 3),
		SlotSpread:  getInt("SIM_SLOT_SPREAD", 4),
		PostgresDSN: baseCfg.PostgresDSN,
	}
}

func loadIDs(ctx context.Context, pool *pgxpool.Pool, doctorLimit int) (doctors, patients []uuid.UUID, err error) {
	rows, err := pool.Query(ctx, `SELECT id FROM doctors WHERE active LIMIT $1`, doctorLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("load doctors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, nil, err
		}
		doctors = append(doctors, id)
	}

	prows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT 500`)
	if err != nil {
		return nil, nil, fmt.Errorf("load patients: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var id uuid.UUID
		if err := prows.Scan(&id); err != nil {
			return nil, nil, err
		}
		patients = append(patients, id)
	}

	if len(doctors) == 0 || len(patients) == 0 {
		return nil, nil, fmt.Errorf("empty data pool, run cmd/seed first")
	}
	return doctors, patients, nil
}

// buildTargets picks a handful of far-future slots per doctor so every
// worker collides with the others instead of spreading out.
func buildTargets(doctors []uuid.UUID, spread int) []target {
	sc := schedule.DefaultConfig()
	date := time.Now().UTC().AddDate(0, 0, 14).Format("2006-01-02")

	var targets []target
	for _, d := range doctors {
		for i := 0; i < spread; i++ {
			targets = append(targets, target{
				doctorID: d,
				date:     date,
				time:     sc.WorkDayStart + schedule.TimeOfDay(i*sc.ProbeStepMin),
			})
		}
	}
	return targets
}

func runWorkers(cfg SimConfig, targets []target, patients []uuid.UUID) *OperationMetrics {
	metrics := &OperationMetrics{}
	client := &http.Client{Timeout: 10 * time.Second}

	deadline := time.Now().Add(cfg.Duration)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			for time.Now().Before(deadline) {
				t := targets[rng.Intn(len(targets))]
				p := patients[rng.Intn(len(patients))]

				status, latency := book(client, cfg.APIBaseURL, t, p)
				metrics.Record(latency, status)
			}
		}(int64(w) + time.Now().UnixNano())
	}

	wg.Wait()
	return metrics
}

func book(client *http.Client, baseURL string, t target, patientID uuid.UUID) (int, time.Duration) {
	body, _ := json.Marshal(map[string]string{
		"doctor_id":  t.doctorID.String(),
		"patient_id": patientID.String(),
		"date":       t.date,
		"time":       t.time.Format12(),
	})

	start := time.Now()
	resp, err := client.Post(baseURL+"/appointments", "application/json", bytes.NewReader(body))
	latency := time.Since(start)
	if err != nil {
		return 0, latency
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, latency
}

func checkInvariant(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	var violations int64
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM (
			SELECT doctor_id, visit_date, start_min
			FROM appointments
			WHERE status IN ('pending', 'confirmed', 'rescheduled')
			GROUP BY doctor_id, visit_date, start_min
			HAVING count(*) > 1
		) dup
	`).Scan(&violations)
	return violations, err
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
