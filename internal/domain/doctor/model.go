package doctor

import (
	"time"

	"github.com/google/uuid"
)

// Doctor is a bookable practitioner. AvailableTimes holds "HH:MM-HH:MM"
// windows in the order the admin entered them.
type Doctor struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Specialty      string    `json:"specialty"`
	Phone          string    `json:"phone"`
	AvailableTimes []string  `json:"available_times"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type CreateRequest struct {
	Name           string   `json:"name" validate:"required,min=3,max=100"`
	Email          string   `json:"email" validate:"required,email"`
	Password       string   `json:"password" validate:"required,min=6"`
	Specialty      string   `json:"specialty" validate:"required,min=3,max=50"`
	Phone          string   `json:"phone" validate:"required,len=10,numeric"`
	AvailableTimes []string `json:"available_times"`
}

// UpdateRequest replaces every field. An empty Password keeps the current one.
type UpdateRequest struct {
	Name           string   `json:"name" validate:"required,min=3,max=100"`
	Email          string   `json:"email" validate:"required,email"`
	Password       string   `json:"password" validate:"omitempty,min=6"`
	Specialty      string   `json:"specialty" validate:"required,min=3,max=50"`
	Phone          string   `json:"phone" validate:"required,len=10,numeric"`
	AvailableTimes []string `json:"available_times"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
