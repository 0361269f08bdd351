package records

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

// Upserts rely on the natural-key unique indexes and report insert vs
// update through RETURNING (xmax = 0), which is true only for rows the
// statement created.

func (r *repoPG) UpsertAppointment(ctx context.Context, a *Appointment) (bool, error) {
	var inserted bool
	err := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_name, specialty, date, time, location, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (patient_id, doctor_name, date, time) DO UPDATE SET
			specialty = EXCLUDED.specialty,
			location  = EXCLUDED.location,
			status    = EXCLUDED.status,
			updated_at = NOW()
		RETURNING id, (xmax = 0)`,
		uuid.New(), a.PatientID, a.DoctorName, a.Specialty, a.Date, a.Time, a.Location, a.Status,
	).Scan(&a.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert appointment: %w", err)
	}
	return inserted, nil
}

func (r *repoPG) UpsertMedication(ctx context.Context, m *Medication, scheduleTimes []string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var inserted bool
	err = tx.QueryRow(ctx, `
		INSERT INTO medications (id, patient_id, name, dosage, frequency, start_date, end_date, instructions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (patient_id, name, dosage) DO UPDATE SET
			frequency    = EXCLUDED.frequency,
			start_date   = EXCLUDED.start_date,
			end_date     = EXCLUDED.end_date,
			instructions = EXCLUDED.instructions,
			updated_at   = NOW()
		RETURNING id, (xmax = 0)`,
		uuid.New(), m.PatientID, m.Name, m.Dosage, m.Frequency, m.StartDate, m.EndDate, m.Instructions,
	).Scan(&m.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert medication: %w", err)
	}

	// Slots are only ever added. Existing entries keep their taken
	// state across repeat syncs and are never removed here.
	for _, t := range scheduleTimes {
		_, err = tx.Exec(ctx, `
			INSERT INTO medication_schedules (id, medication_id, time_of_day)
			VALUES ($1, $2, $3)
			ON CONFLICT (medication_id, time_of_day) DO NOTHING`,
			uuid.New(), m.ID, t)
		if err != nil {
			return false, fmt.Errorf("insert schedule %s: %w", t, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (r *repoPG) UpsertExam(ctx context.Context, e *Exam) (bool, error) {
	var inserted bool
	err := r.pool.QueryRow(ctx, `
		INSERT INTO exams (id, patient_id, name, date, result_summary, file_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (patient_id, name, date) DO UPDATE SET
			result_summary = EXCLUDED.result_summary,
			file_url       = EXCLUDED.file_url,
			updated_at     = NOW()
		RETURNING id, (xmax = 0)`,
		uuid.New(), e.PatientID, e.Name, e.Date, e.ResultSummary, e.FileURL,
	).Scan(&e.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert exam: %w", err)
	}
	return inserted, nil
}

func (r *repoPG) UpsertDocument(ctx context.Context, d *Document) (bool, error) {
	var inserted bool
	err := r.pool.QueryRow(ctx, `
		INSERT INTO documents (id, patient_id, title, category, issued_at, file_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (patient_id, title, issued_at) DO UPDATE SET
			category   = EXCLUDED.category,
			file_url   = EXCLUDED.file_url,
			updated_at = NOW()
		RETURNING id, (xmax = 0)`,
		uuid.New(), d.PatientID, d.Title, d.Category, d.IssuedAt, d.FileURL,
	).Scan(&d.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert document: %w", err)
	}
	return inserted, nil
}

func (r *repoPG) MarkTaken(ctx context.Context, scheduleID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE medication_schedules SET taken = TRUE, taken_at = NOW()
		WHERE id = $1 AND taken = FALSE`, scheduleID)
	return err
}

func (r *repoPG) ListDueSchedules(ctx context.Context, onDate time.Time) ([]*DueSchedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ms.id, m.id, m.name, m.dosage, p.user_id, ms.time_of_day, ms.taken
		FROM medication_schedules ms
		JOIN medications m ON m.id = ms.medication_id
		JOIN patients p ON p.id = m.patient_id
		WHERE ms.taken = FALSE
		  AND m.start_date <= $1
		  AND (m.end_date IS NULL OR m.end_date >= $1)
		ORDER BY ms.time_of_day`, onDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DueSchedule
	for rows.Next() {
		var d DueSchedule
		if err := rows.Scan(&d.ScheduleID, &d.MedicationID, &d.MedicationName, &d.Dosage, &d.UserID, &d.TimeOfDay, &d.Taken); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, rows.Err()
}

func (r *repoPG) ListScheduledAppointments(ctx context.Context, onDate time.Time) ([]*UpcomingAppointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, p.user_id, a.doctor_name, a.date, a.time, a.status
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		WHERE a.date = $1 AND a.status = $2
		ORDER BY a.time`, onDate, StatusScheduled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*UpcomingAppointment
	for rows.Next() {
		var a UpcomingAppointment
		if err := rows.Scan(&a.AppointmentID, &a.UserID, &a.DoctorName, &a.Date, &a.Time, &a.Status); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}
