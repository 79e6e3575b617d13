package admin

import "context"

type Repository interface {
	// Create returns ErrAlreadyExists when the username is taken.
	Create(ctx context.Context, a *Admin) error
	GetByUsername(ctx context.Context, username string) (*Admin, error)
}
