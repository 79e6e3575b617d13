package doctor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/availability"
	"github.com/clinic/clinic/internal/platform/auth"
)

var (
	ErrNotFound           = errors.New("doctor not found")
	ErrDuplicateEmail     = errors.New("doctor with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPersistence        = errors.New("doctor storage failure")
)

// AppointmentPurger removes every appointment of a doctor. Deleting a doctor
// calls it before the doctor row goes.
type AppointmentPurger interface {
	DeleteByDoctor(ctx context.Context, doctorID uuid.UUID) (int64, error)
}

// TokenIssuer signs login tokens.
type TokenIssuer interface {
	Issue(subjectID, subjectKey, role string) (string, error)
}

type Service struct {
	repo   Repository
	appts  AppointmentPurger
	tokens TokenIssuer
	logger zerolog.Logger
}

func NewService(repo Repository, appts AppointmentPurger, tokens TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		appts:  appts,
		tokens: tokens,
		logger: logger.With().Str("component", "doctor").Logger(),
	}
}

// wrap passes domain sentinels through and tags anything else as a storage
// failure.
func (s *Service) wrap(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateEmail) {
		return err
	}
	s.logger.Error().Err(err).Str("op", op).Msg("doctor storage error")
	return fmt.Errorf("%s: %w: %v", op, ErrPersistence, err)
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Doctor, error) {
	if err := availability.Validate(req.AvailableTimes); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	d := &Doctor{
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash:   hash,
		Specialty:      strings.TrimSpace(req.Specialty),
		Phone:          req.Phone,
		AvailableTimes: req.AvailableTimes,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, s.wrap("create doctor", err)
	}
	s.logger.Info().Str("doctor_id", d.ID.String()).Msg("doctor created")
	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.wrap("get doctor", err)
	}
	return d, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	docs, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, s.wrap("list doctors", err)
	}
	return docs, total, nil
}

// Update overwrites the doctor's profile and windows. Existing appointments
// are left alone even if they fall outside the new windows.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Doctor, error) {
	if err := availability.Validate(req.AvailableTimes); err != nil {
		return nil, err
	}
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.wrap("get doctor", err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != d.Email {
		other, err := s.repo.GetByEmail(ctx, email)
		switch {
		case err == nil && other.ID != d.ID:
			return nil, ErrDuplicateEmail
		case err != nil && !errors.Is(err, ErrNotFound):
			return nil, s.wrap("check doctor email", err)
		}
	}

	d.Name = strings.TrimSpace(req.Name)
	d.Email = email
	d.Specialty = strings.TrimSpace(req.Specialty)
	d.Phone = req.Phone
	d.AvailableTimes = req.AvailableTimes
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		d.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, d); err != nil {
		return nil, s.wrap("update doctor", err)
	}
	return d, nil
}

// Delete removes the doctor and every appointment booked with them.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return s.wrap("get doctor", err)
	}
	n, err := s.appts.DeleteByDoctor(ctx, id)
	if err != nil {
		return s.wrap("delete doctor appointments", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.wrap("delete doctor", err)
	}
	s.logger.Info().Str("doctor_id", id.String()).Int64("appointments_removed", n).Msg("doctor deleted")
	return nil
}

// Login checks the password and issues a doctor token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	d, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", s.wrap("login doctor", err)
	}
	if !auth.CheckPassword(d.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}
	return s.tokens.Issue(d.ID.String(), d.Email, auth.RoleDoctor)
}
