package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create returns ErrAlreadyExists when the email or phone is taken.
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByEmail(ctx context.Context, email string) (*Patient, error)
	ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error)
}
