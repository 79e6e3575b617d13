package admin

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

func (r *repoPG) Create(ctx context.Context, a *Admin) error {
	a.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO admin (id, username, password_hash) VALUES ($1, $2, $3) RETURNING created_at`,
		a.ID, a.Username, a.PasswordHash,
	).Scan(&a.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (r *repoPG) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	var a Admin
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM admin WHERE username = $1`, username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
