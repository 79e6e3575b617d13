package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "user_email"
	UserRoleKey  contextKey = "user_role"
	ClaimsKey    contextKey = "claims"
)

// JWTMiddleware authenticates the Bearer token on every request the skipper
// lets through and stores the subject in the request context. Role checks
// are left to RequireRole.
func JWTMiddleware(tokens *TokenService, skipper echomw.Skipper) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := tokens.Verify(c.Request().Context(), strings.TrimSpace(token))
			if err != nil {
				if errors.Is(err, ErrTokenRevoked) {
					return echo.NewHTTPError(http.StatusUnauthorized, "token has been revoked")
				}
				if errors.Is(err, ErrInvalidToken) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
				}
				return echo.NewHTTPError(http.StatusServiceUnavailable, "token verification unavailable")
			}

			c.SetRequest(c.Request().WithContext(WithClaims(c.Request().Context(), claims)))
			return next(c)
		}
	}
}

// WithClaims stores the authenticated subject in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
	ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
	ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
	return ctx
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func EmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(UserEmailKey).(string)
	return email
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}

func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsKey).(*Claims)
	return claims
}
