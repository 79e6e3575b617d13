package doctor

import (
	"context"
	"errors"

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

const doctorColumns = `id, name, email, password_hash, specialty, phone, available_times, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	if d.AvailableTimes == nil {
		d.AvailableTimes = []string{}
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctor (id, name, email, password_hash, specialty, phone, available_times)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		d.ID, d.Name, d.Email, d.PasswordHash, d.Specialty, d.Phone, d.AvailableTimes,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorColumns+` FROM doctor WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorColumns+` FROM doctor WHERE LOWER(email) = LOWER($1)`, email))
}

func (r *repoPG) Update(ctx context.Context, d *Doctor) error {
	if d.AvailableTimes == nil {
		d.AvailableTimes = []string{}
	}
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE doctor SET
			name = $2, email = $3, password_hash = $4, specialty = $5,
			phone = $6, available_times = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		d.ID, d.Name, d.Email, d.PasswordHash, d.Specialty, d.Phone, d.AvailableTimes,
	).Scan(&d.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case db.IsUniqueViolation(err):
		return ErrDuplicateEmail
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctor WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctor`).Scan(&total); err != nil {
		return nil, 0, err
	}
	docs, err := r.query(ctx, `SELECT `+doctorColumns+` FROM doctor ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (r *repoPG) ListAll(ctx context.Context) ([]*Doctor, error) {
	return r.query(ctx, `SELECT `+doctorColumns+` FROM doctor ORDER BY name`)
}

func (r *repoPG) FindByName(ctx context.Context, name string) ([]*Doctor, error) {
	return r.query(ctx, `SELECT `+doctorColumns+` FROM doctor WHERE name ILIKE $1 ORDER BY name`, db.ContainsPattern(name))
}

func (r *repoPG) FindBySpecialty(ctx context.Context, specialty string) ([]*Doctor, error) {
	return r.query(ctx, `SELECT `+doctorColumns+` FROM doctor WHERE LOWER(specialty) = LOWER($1) ORDER BY name`, specialty)
}

func (r *repoPG) FindByNameAndSpecialty(ctx context.Context, name, specialty string) ([]*Doctor, error) {
	return r.query(ctx, `SELECT `+doctorColumns+` FROM doctor
		WHERE name ILIKE $1 AND LOWER(specialty) = LOWER($2) ORDER BY name`, db.ContainsPattern(name), specialty)
}

func (r *repoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Doctor, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Email, &d.PasswordHash, &d.Specialty, &d.Phone,
		&d.AvailableTimes, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
