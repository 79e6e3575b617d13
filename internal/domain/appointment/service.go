package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/availability"
	"github.com/clinic/clinic/internal/domain/doctor"
)

var (
	ErrNotFound           = errors.New("appointment not found")
	ErrUnauthorized       = errors.New("appointment belongs to another patient")
	ErrUnavailable        = errors.New("doctor is not available at the requested time")
	ErrInvalidState       = errors.New("appointment is already completed")
	ErrPersistence        = errors.New("appointment storage failure")
	ErrBookingFailed      = errors.New("booking failed")
	ErrStatusChangeFailed = errors.New("appointment status change failed")
	ErrSlotTaken          = errors.New("doctor already has an appointment in that hour")
	ErrInvalidCondition   = errors.New("condition must be past or future")
)

// Outcome is the human-readable result of a successful lifecycle operation.
type Outcome string

const (
	OutcomeUpdated       Outcome = "Appointment updated successfully"
	OutcomeCancelled     Outcome = "Appointment cancelled successfully"
	OutcomeStatusChanged Outcome = "Appointment status updated successfully"
)

type Option func(*Service)

// WithStrictUpdates makes Update require an exact free slot, as booking does,
// instead of plain window containment.
func WithStrictUpdates(strict bool) Option {
	return func(s *Service) { s.strict = strict }
}

// WithLocation sets the zone appointment times are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	repo      Repository
	doctors   DoctorLookup
	validator *Validator
	strict    bool
	loc       *time.Location
	now       func() time.Time
	logger    zerolog.Logger
}

func NewService(repo Repository, doctors DoctorLookup, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		doctors:   doctors,
		validator: NewValidator(doctors, repo),
		loc:       time.UTC,
		now:       time.Now,
		logger:    logger.With().Str("component", "appointment").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) wrap(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, doctor.ErrNotFound) {
		return err
	}
	s.logger.Error().Err(err).Str("op", op).Msg("appointment storage error")
	return fmt.Errorf("%s: %w: %v", op, ErrPersistence, err)
}

// Book stores a new scheduled appointment without consulting availability.
// Every failure collapses into ErrBookingFailed.
func (s *Service) Book(ctx context.Context, a *Appointment) error {
	if a.DoctorID == uuid.Nil || a.PatientID == uuid.Nil || a.AppointmentTime.IsZero() {
		s.logger.Warn().Msg("booking rejected: missing doctor, patient or time")
		return ErrBookingFailed
	}
	if !a.AppointmentTime.After(s.now()) {
		s.logger.Warn().Time("appointment_time", a.AppointmentTime).Msg("booking rejected: time is not in the future")
		return ErrBookingFailed
	}
	a.Status = StatusScheduled
	if err := s.repo.Create(ctx, a); err != nil {
		s.logger.Error().Err(err).
			Str("doctor_id", a.DoctorID.String()).
			Time("appointment_time", a.AppointmentTime).
			Msg("booking failed")
		return ErrBookingFailed
	}
	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("doctor_id", a.DoctorID.String()).
		Str("patient_id", a.PatientID.String()).
		Msg("appointment booked")
	return nil
}

// BookValidated is the patient booking flow: the requested time must be one
// of the doctor's free slots on that day.
func (s *Service) BookValidated(ctx context.Context, a *Appointment) error {
	verdict, err := s.validator.Validate(ctx, a.DoctorID, a.AppointmentTime, a.TimeOfDay())
	if err != nil {
		return s.wrap("validate booking", err)
	}
	switch verdict {
	case VerdictDoctorNotFound:
		return doctor.ErrNotFound
	case VerdictInvalid:
		return ErrUnavailable
	}
	return s.Book(ctx, a)
}

// Update moves a scheduled appointment owned by patientID. The new time only
// has to fall inside one of the doctor's windows unless strict updates are on.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest, patientID uuid.UUID) (Outcome, error) {
	a, err := s.ownedScheduled(ctx, id, patientID)
	if err != nil {
		return "", err
	}
	ok, err := s.canMoveTo(ctx, a, req)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrUnavailable
	}

	a.DoctorID = req.DoctorID
	a.AppointmentTime = req.AppointmentTime
	a.Status = req.Status
	if err := s.repo.Update(ctx, a); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return "", ErrUnavailable
		}
		return "", s.wrap("update appointment", err)
	}
	s.logger.Info().Str("appointment_id", id.String()).Msg("appointment updated")
	return OutcomeUpdated, nil
}

func (s *Service) canMoveTo(ctx context.Context, a *Appointment, req UpdateRequest) (bool, error) {
	d, err := s.doctors.Get(ctx, req.DoctorID)
	if errors.Is(err, doctor.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, s.wrap("get doctor", err)
	}
	t := availability.TimeOfDayOf(req.AppointmentTime)
	if !availability.CoveredByWindows(d.AvailableTimes, t) {
		return false, nil
	}
	if !s.strict {
		return true, nil
	}
	slots, err := s.validator.slotsFor(ctx, d, req.AppointmentTime, a.ID)
	if err != nil {
		return false, s.wrap("compute free slots", err)
	}
	return containsSlot(slots, t), nil
}

// Cancel deletes a scheduled appointment owned by patientID.
func (s *Service) Cancel(ctx context.Context, id, patientID uuid.UUID) (Outcome, error) {
	if _, err := s.ownedScheduled(ctx, id, patientID); err != nil {
		return "", err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return "", s.wrap("cancel appointment", err)
	}
	s.logger.Info().Str("appointment_id", id.String()).Msg("appointment cancelled")
	return OutcomeCancelled, nil
}

func (s *Service) ownedScheduled(ctx context.Context, id, patientID uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.wrap("get appointment", err)
	}
	if a.PatientID != patientID {
		s.logger.Warn().
			Str("appointment_id", id.String()).
			Str("patient_id", patientID.String()).
			Msg("patient tried to modify another patient's appointment")
		return nil, ErrUnauthorized
	}
	if a.Status == StatusCompleted {
		return nil, ErrInvalidState
	}
	return a, nil
}

// ChangeStatus overwrites the status unconditionally. Any failure, a missing
// appointment included, is reported as ErrStatusChangeFailed.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, status int) (Outcome, error) {
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		s.logger.Error().Err(err).
			Str("appointment_id", id.String()).
			Int("status", status).
			Msg("status change failed")
		return "", ErrStatusChangeFailed
	}
	return OutcomeStatusChanged, nil
}

// ListForDoctor returns the doctor's appointments on date, optionally
// narrowed to patients whose name contains patientName.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, date time.Time, patientName string) ([]*Detail, error) {
	from, to := availability.DayBounds(date)
	out, err := s.repo.ListDetailsByDoctor(ctx, doctorID, from, to, strings.TrimSpace(patientName))
	if err != nil {
		return nil, s.wrap("list doctor appointments", err)
	}
	return out, nil
}

// ListForPatient returns the patient's appointments. condition "past" keeps
// completed ones, "future" keeps scheduled ones and "" keeps both.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, condition, doctorName string) ([]*Detail, error) {
	var status *int
	switch strings.ToLower(strings.TrimSpace(condition)) {
	case "":
	case "past":
		v := StatusCompleted
		status = &v
	case "future":
		v := StatusScheduled
		status = &v
	default:
		return nil, ErrInvalidCondition
	}
	out, err := s.repo.ListByPatient(ctx, patientID, status, strings.TrimSpace(doctorName))
	if err != nil {
		return nil, s.wrap("list patient appointments", err)
	}
	return out, nil
}

// Availability returns the doctor's free hourly slots on date. An unknown
// doctor has no availability.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	slots, err := s.validator.FreeSlots(ctx, doctorID, date)
	if errors.Is(err, doctor.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, s.wrap("compute availability", err)
	}
	return slots, nil
}
