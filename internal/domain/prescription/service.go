package prescription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/appointment"
)

var (
	ErrNotFound    = errors.New("no prescriptions found for this appointment")
	ErrPersistence = errors.New("prescription storage failure")
)

// StatusChanger marks the prescribed appointment as completed.
type StatusChanger interface {
	ChangeStatus(ctx context.Context, id uuid.UUID, status int) (appointment.Outcome, error)
}

type Service struct {
	repo     Repository
	statuses StatusChanger
	now      func() time.Time
	logger   zerolog.Logger
}

func NewService(repo Repository, statuses StatusChanger, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		statuses: statuses,
		now:      time.Now,
		logger:   logger.With().Str("component", "prescription").Logger(),
	}
}

// Save stores the prescription and then completes its appointment. The two
// steps are not atomic: when the second fails the prescription stays and
// StatusUpdated is false. The status change is attempted once.
func (s *Service) Save(ctx context.Context, p *Prescription) (*SaveResult, error) {
	apptID, err := uuid.Parse(p.AppointmentID)
	if err != nil {
		return nil, fmt.Errorf("invalid appointment id %q", p.AppointmentID)
	}
	p.AppointmentID = apptID.String()
	p.PatientName = strings.TrimSpace(p.PatientName)
	p.CreatedAt = s.now().UTC()

	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error().Err(err).Str("appointment_id", p.AppointmentID).Msg("prescription insert failed")
		return nil, fmt.Errorf("save prescription: %w: %v", ErrPersistence, err)
	}

	res := &SaveResult{Prescription: p, StatusUpdated: true}
	if _, err := s.statuses.ChangeStatus(ctx, apptID, appointment.StatusCompleted); err != nil {
		s.logger.Warn().Err(err).
			Str("appointment_id", p.AppointmentID).
			Str("prescription_id", p.ID.Hex()).
			Msg("prescription saved but appointment status not updated")
		res.StatusUpdated = false
	}
	return res, nil
}

func (s *Service) Get(ctx context.Context, appointmentID uuid.UUID) ([]*Prescription, error) {
	out, err := s.repo.ListByAppointment(ctx, appointmentID.String())
	if err != nil {
		s.logger.Error().Err(err).Str("appointment_id", appointmentID.String()).Msg("prescription lookup failed")
		return nil, fmt.Errorf("get prescriptions: %w: %v", ErrPersistence, err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
