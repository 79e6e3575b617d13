package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func expectHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected HTTP %d, got nil error", code)
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	svc, _ := newTestTokenService(t)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	err := JWTMiddleware(svc, nil)(okHandler)(c)
	expectHTTPError(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	svc, _ := newTestTokenService(t)
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)
			c := e.NewContext(req, httptest.NewRecorder())

			err := JWTMiddleware(svc, nil)(okHandler)(c)
			expectHTTPError(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	svc, _ := newTestTokenService(t)
	token, err := svc.Issue("pat-7", "p7@clinic.test", RolePatient)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c := e.NewContext(req, httptest.NewRecorder())

	var called bool
	h := JWTMiddleware(svc, nil)(func(c echo.Context) error {
		called = true
		ctx := c.Request().Context()
		if got := UserIDFromContext(ctx); got != "pat-7" {
			t.Errorf("expected user id pat-7, got %q", got)
		}
		if got := EmailFromContext(ctx); got != "p7@clinic.test" {
			t.Errorf("expected email p7@clinic.test, got %q", got)
		}
		if got := RoleFromContext(ctx); got != RolePatient {
			t.Errorf("expected role patient, got %q", got)
		}
		if ClaimsFromContext(ctx) == nil {
			t.Error("expected claims in context")
		}
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected handler to be called")
	}
}

func TestJWTMiddleware_RevokedToken(t *testing.T) {
	svc, store := newTestTokenService(t)
	token, _ := svc.Issue("pat-7", "p7@clinic.test", RolePatient)
	claims, _ := svc.Verify(context.Background(), token)
	_ = store.Revoke(context.Background(), claims.ID, claims.Subject, time.Now().Add(time.Hour))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c := e.NewContext(req, httptest.NewRecorder())

	err := JWTMiddleware(svc, nil)(okHandler)(c)
	expectHTTPError(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_SkipperBypasses(t *testing.T) {
	svc, _ := newTestTokenService(t)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	c.SetPath("/health")

	if err := JWTMiddleware(svc, AuthSkipper)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		allowed []string
		code    int
	}{
		{"matching role", RoleDoctor, []string{RoleDoctor}, http.StatusOK},
		{"one of several", RolePatient, []string{RolePatient, RoleDoctor, RoleAdmin}, http.StatusOK},
		{"admin gets no implicit pass", RoleAdmin, []string{RolePatient}, http.StatusForbidden},
		{"wrong role", RolePatient, []string{RoleDoctor}, http.StatusForbidden},
		{"unauthenticated", "", []string{RoleDoctor}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.role != "" {
				req = req.WithContext(WithClaims(req.Context(), &Claims{Role: tt.role}))
			}
			c := e.NewContext(req, httptest.NewRecorder())

			err := RequireRole(tt.allowed...)(okHandler)(c)
			if tt.code == http.StatusOK {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			expectHTTPError(t, err, tt.code)
		})
	}
}

func TestIsPublicRoute(t *testing.T) {
	tests := []struct {
		method, path string
		want         bool
	}{
		{http.MethodGet, "/health", true},
		{http.MethodPost, "/api/v1/patients", true},
		{http.MethodPost, "/api/v1/patients/login", true},
		{http.MethodGet, "/api/v1/doctors/filter", true},
		{http.MethodGet, "/api/v1/patients/me", false},
		{http.MethodPost, "/api/v1/doctors", false},
		{http.MethodPost, "/api/v1/appointments", false},
	}
	for _, tt := range tests {
		if got := IsPublicRoute(tt.method, tt.path); got != tt.want {
			t.Errorf("%s %s: expected %v, got %v", tt.method, tt.path, tt.want, got)
		}
	}
}

func TestLogoutHandler(t *testing.T) {
	svc, store := newTestTokenService(t)
	token, _ := svc.Issue("doc-1", "d@clinic.test", RoleDoctor)
	claims, _ := svc.Verify(context.Background(), token)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req = req.WithContext(WithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewLogoutHandler(svc, nopLogger())
	if err := h.Logout(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if store.Count() != 1 {
		t.Errorf("expected 1 revocation, got %d", store.Count())
	}
}

func TestLogoutHandler_NoClaims(t *testing.T) {
	svc, _ := newTestTokenService(t)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil), httptest.NewRecorder())

	err := NewLogoutHandler(svc, nopLogger()).Logout(c)
	expectHTTPError(t, err, http.StatusUnauthorized)
}

func nopLogger() zerolog.Logger { return zerolog.Nop() }
