package patient

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

const patientColumns = `id, name, email, password_hash, phone, address, created_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, name, email, password_hash, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		p.ID, p.Name, p.Email, p.PasswordHash, p.Phone, p.Address,
	).Scan(&p.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientColumns+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientColumns+` FROM patient WHERE LOWER(email) = LOWER($1)`, email))
}

func (r *repoPG) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patient WHERE LOWER(email) = LOWER($1) OR phone = $2)`,
		email, phone,
	).Scan(&exists)
	return exists, err
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.Phone, &p.Address, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
