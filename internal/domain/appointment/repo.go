package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists appointments. Every method returns ErrNotFound when the
// target row does not exist, and ErrSlotTaken when a write would put two live
// appointments of one doctor in the same hour.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status int) error
	DeleteByDoctor(ctx context.Context, doctorID uuid.UUID) (int64, error)

	// ListByDoctorAndRange returns the doctor's appointments in [from, to).
	ListByDoctorAndRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error)
	// ListDetailsByDoctor is ListByDoctorAndRange joined with patient names,
	// optionally filtered by a case-insensitive patient name substring.
	ListDetailsByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time, patientName string) ([]*Detail, error)
	// ListByPatient filters by status when status is non-nil and by a
	// case-insensitive doctor name substring when doctorName is non-empty.
	ListByPatient(ctx context.Context, patientID uuid.UUID, status *int, doctorName string) ([]*Detail, error)
}
