package doctor

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists doctors. Lookups return ErrNotFound for a missing row;
// Create and Update return ErrDuplicateEmail on an email collision.
type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByEmail(ctx context.Context, email string) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)

	ListAll(ctx context.Context) ([]*Doctor, error)
	// FindByName matches a case-insensitive substring of the name.
	FindByName(ctx context.Context, name string) ([]*Doctor, error)
	// FindBySpecialty matches the specialty case-insensitively.
	FindBySpecialty(ctx context.Context, specialty string) ([]*Doctor, error)
	FindByNameAndSpecialty(ctx context.Context, name, specialty string) ([]*Doctor, error)
}
