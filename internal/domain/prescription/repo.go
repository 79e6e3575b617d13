package prescription

import "context"

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	// ListByAppointment returns prescriptions oldest first.
	ListByAppointment(ctx context.Context, appointmentID string) ([]*Prescription, error)
}
