package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/auth"
)

var (
	ErrNotFound           = errors.New("admin not found")
	ErrAlreadyExists      = errors.New("admin username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
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
	return &Service{repo: repo, tokens: tokens, logger: logger.With().Str("component", "admin").Logger()}
}

// Create provisions an admin account. Only reachable from the CLI.
func (s *Service) Create(ctx context.Context, username, password string) (*Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("admin password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	a := &Admin{Username: username, PasswordHash: hash}
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create admin: %w", err)
	}
	s.logger.Info().Str("username", username).Msg("admin created")
	return a, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	a, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("admin lookup failed")
		return "", fmt.Errorf("login admin: %w", err)
	}
	if !auth.CheckPassword(a.PasswordHash, password) {
		s.logger.Warn().Str("username", a.Username).Msg("admin login rejected")
		return "", ErrInvalidCredentials
	}
	return s.tokens.Issue(a.ID.String(), a.Username, auth.RoleAdmin)
}
