package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const apptColumns = `a.id, a.doctor_id, a.patient_id, a.appointment_time, a.status, a.created_at, a.updated_at`

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (id, doctor_id, patient_id, appointment_time, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		a.ID, a.DoctorID, a.PatientID, a.AppointmentTime, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrSlotTaken
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	var a Appointment
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+apptColumns+` FROM appointment a WHERE a.id = $1`, id).
		Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.AppointmentTime, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE appointment SET doctor_id = $2, appointment_time = $3, status = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, a.DoctorID, a.AppointmentTime, a.Status,
	).Scan(&a.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case db.IsUniqueViolation(err):
		return ErrSlotTaken
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status int) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointment SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) DeleteByDoctor(ctx context.Context, doctorID uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointment WHERE doctor_id = $1`, doctorID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) ListByDoctorAndRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptColumns+` FROM appointment a
		WHERE a.doctor_id = $1 AND a.appointment_time >= $2 AND a.appointment_time < $3
		ORDER BY a.appointment_time`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.AppointmentTime, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *repoPG) ListDetailsByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time, patientName string) ([]*Detail, error) {
	query := `
		SELECT ` + apptColumns + `, d.name, p.name
		FROM appointment a
		JOIN doctor d ON d.id = a.doctor_id
		JOIN patient p ON p.id = a.patient_id
		WHERE a.doctor_id = $1 AND a.appointment_time >= $2 AND a.appointment_time < $3`
	args := []interface{}{doctorID, from, to}
	if patientName != "" {
		query += ` AND p.name ILIKE $4`
		args = append(args, db.ContainsPattern(patientName))
	}
	return r.queryDetails(ctx, query+` ORDER BY a.appointment_time`, args...)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, status *int, doctorName string) ([]*Detail, error) {
	query := `
		SELECT ` + apptColumns + `, d.name, p.name
		FROM appointment a
		JOIN doctor d ON d.id = a.doctor_id
		JOIN patient p ON p.id = a.patient_id
		WHERE a.patient_id = $1`
	args := []interface{}{patientID}
	if status != nil {
		args = append(args, *status)
		query += fmt.Sprintf(` AND a.status = $%d`, len(args))
	}
	if doctorName != "" {
		args = append(args, db.ContainsPattern(doctorName))
		query += fmt.Sprintf(` AND d.name ILIKE $%d`, len(args))
	}
	return r.queryDetails(ctx, query+` ORDER BY a.appointment_time DESC`, args...)
}

func (r *repoPG) queryDetails(ctx context.Context, query string, args ...interface{}) ([]*Detail, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Detail
	for rows.Next() {
		var d Detail
		if err := rows.Scan(
			&d.ID, &d.DoctorID, &d.PatientID, &d.AppointmentTime, &d.Status, &d.CreatedAt, &d.UpdatedAt,
			&d.DoctorName, &d.PatientName,
		); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
