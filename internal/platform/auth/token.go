package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

const issuer = "clinic"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// Claims carries the subject id (sub), the login key (email for doctors and
// patients, username for admins) and the role the token was issued for.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// HasRole reports whether the token was issued for one of roles.
func (c *Claims) HasRole(roles ...string) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

// TokenService issues and verifies HS256 tokens for the three user roles.
type TokenService struct {
	secret      []byte
	ttl         time.Duration
	revocations RevocationStore
	now         func() time.Time
}

func NewTokenService(secret []byte, ttl time.Duration, revocations RevocationStore) *TokenService {
	return &TokenService{
		secret:      secret,
		ttl:         ttl,
		revocations: revocations,
		now:         time.Now,
	}
}

// Issue signs a token for subjectID. subjectKey is the email or username the
// subject logged in with.
func (s *TokenService) Issue(subjectID, subjectKey, role string) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subjectID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Email: subjectKey,
		Role:  role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify checks signature, expiry and revocation. The role is not checked
// here; routes enforce it with RequireRole against the returned claims.
func (s *TokenService) Verify(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// SubjectEmail returns the login key embedded in a valid token.
func (s *TokenService) SubjectEmail(token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", err
	}
	return claims.Email, nil
}

// Revoke blacklists the token until it would have expired anyway.
func (s *TokenService) Revoke(ctx context.Context, claims *Claims) error {
	if s.revocations == nil {
		return nil
	}
	expiresAt := s.now().Add(s.ttl)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return s.revocations.Revoke(ctx, claims.ID, claims.Subject, expiresAt)
}
