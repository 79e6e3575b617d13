package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/auth"
)

var (
	ErrNotFound           = errors.New("patient not found")
	ErrAlreadyExists      = errors.New("patient with this email or phone already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPersistence        = errors.New("patient storage failure")
)

type TokenIssuer interface {
	Issue(subjectID, subjectKey, role string) (string, error)
}

type Service struct {
	repo   Repository
	tokens TokenIssuer
	logger zerolog.Logger
}

func NewService(repo Repository, tokens TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{repo: repo, tokens: tokens, logger: logger.With().Str("component", "patient").Logger()}
}

func (s *Service) wrap(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) {
		return err
	}
	s.logger.Error().Err(err).Str("op", op).Msg("patient storage error")
	return fmt.Errorf("%s: %w: %v", op, ErrPersistence, err)
}

// Register creates a patient account. Email and phone must both be unused.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Patient, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.repo.ExistsByEmailOrPhone(ctx, email, req.Phone)
	if err != nil {
		return nil, s.wrap("check patient", err)
	}
	if exists {
		return nil, ErrAlreadyExists
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	p := &Patient{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Phone:        req.Phone,
		Address:      strings.TrimSpace(req.Address),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, s.wrap("create patient", err)
	}
	s.logger.Info().Str("patient_id", p.ID.String()).Msg("patient registered")
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.wrap("get patient", err)
	}
	return p, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	p, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", s.wrap("login patient", err)
	}
	if !auth.CheckPassword(p.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}
	return s.tokens.Issue(p.ID.String(), p.Email, auth.RolePatient)
}
