package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const appointmentColumns = `
	id, doctor_id, patient_id, visit_date, start_min, status, notes,
	payment_status, payment_method, payment_txn_id, payment_amount, payment_at,
	previous_date, previous_start_min, rescheduled_by, rescheduled_at,
	cancelled_by, cancellation_reason, cancelled_at,
	created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialization,
		&d.Active,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var startMin int
	var prevStartMin *int

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.VisitDate,
		&startMin,
		&a.Status,
		&a.Notes,
		&a.Payment.Status,
		&a.Payment.Method,
		&a.Payment.TransactionID,
		&a.Payment.PaidAmount,
		&a.Payment.PaidAt,
		&a.PreviousDate,
		&prevStartMin,
		&a.RescheduledBy,
		&a.RescheduledAt,
		&a.CancelledBy,
		&a.CancellationReason,
		&a.CancelledAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Start = TimeOfDay(startMin)
	if prevStartMin != nil {
		prev := TimeOfDay(*prevStartMin)
		a.PreviousStart = &prev
	}
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func activeStatusStrings() []string {
	out := make([]string, len(ActiveStatuses))
	for i, s := range ActiveStatuses {
		out[i] = string(s)
	}
	return out
}

// Interface methods

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialization, active, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) FindActiveDoctorsBySpecialization(ctx context.Context, specialization string, exclude uuid.UUID, limit int) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, specialization, active, created_at, updated_at
		FROM doctors
		WHERE specialization = $1
		  AND active = true
		  AND id <> $2
		ORDER BY name
		LIMIT $3
	`, specialization, exclude, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) InsertAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			id, doctor_id, patient_id, visit_date, start_min, status, notes,
			payment_status, payment_method, payment_txn_id, payment_amount, payment_at,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		RETURNING`+appointmentColumns,
		a.ID, a.DoctorID, a.PatientID, a.VisitDate, a.Start.Minutes(), a.Status, a.Notes,
		a.Payment.Status, a.Payment.Method, a.Payment.TransactionID, a.Payment.PaidAmount, a.Payment.PaidAt,
		a.CreatedAt,
	)

	appt, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return appt, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindActiveConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, start TimeOfDay, exclude uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND visit_date = $2
		  AND start_min = $3
		  AND status = ANY($4)
		  AND id <> $5
		LIMIT 1
	`, doctorID, date, start.Minutes(), activeStatusStrings(), exclude)
	return scanAppointment(row)
}

func (r *PgRepository) ListActiveByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND visit_date = $2
		  AND status = ANY($3)
		ORDER BY start_min
	`, doctorID, date, activeStatusStrings())
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time, newStart TimeOfDay, by string, at time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET previous_date = visit_date,
		    previous_start_min = start_min,
		    visit_date = $2,
		    start_min = $3,
		    status = 'rescheduled',
		    rescheduled_by = $4,
		    rescheduled_at = $5,
		    updated_at = $5
		WHERE id = $1
		  AND status = ANY($6)
		RETURNING`+appointmentColumns,
		id, newDate, newStart.Minutes(), by, at, activeStatusStrings(),
	)

	appt, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return appt, nil
}

func (r *PgRepository) Cancel(ctx context.Context, id uuid.UUID, by, reason string, at time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    cancelled_by = $2,
		    cancellation_reason = $3,
		    cancelled_at = $4,
		    updated_at = $4
		WHERE id = $1
		  AND status NOT IN ('completed', 'cancelled', 'no_show')
		RETURNING`+appointmentColumns,
		id, by, reason, at,
	)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING`+appointmentColumns,
		id, to, from,
	)
	return scanAppointment(row)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY visit_date DESC, start_min DESC
		LIMIT $2 OFFSET $3
	`, doctorID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY visit_date DESC, start_min DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListByDate(ctx context.Context, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE visit_date = $1
		ORDER BY start_min
	`, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) CountByDateRange(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE visit_date >= $1
		  AND visit_date <= $2
	`, from, to).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PgRepository) FindPastDueActive(ctx context.Context, date time.Time, start TimeOfDay) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE status = ANY($1)
		  AND (visit_date < $2 OR (visit_date = $2 AND start_min < $3))
	`, activeStatusStrings(), date, start.Minutes())
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}
