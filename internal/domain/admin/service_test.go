package admin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/middleware"
)

type mockRepo struct {
	admins map[string]*Admin
	err    error
}

func (m *mockRepo) Create(_ context.Context, a *Admin) error {
	if _, ok := m.admins[a.Username]; ok {
		return ErrAlreadyExists
	}
	a.ID = uuid.New()
	m.admins[a.Username] = a
	return nil
}

func (m *mockRepo) GetByUsername(_ context.Context, username string) (*Admin, error) {
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.admins[username]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

type stubIssuer struct{}

func (stubIssuer) Issue(subjectID, subjectKey, role string) (string, error) {
	return role + ":" + subjectKey, nil
}

func newTestService() (*Service, *mockRepo) {
	repo := &mockRepo{admins: make(map[string]*Admin)}
	return NewService(repo, stubIssuer{}, zerolog.Nop()), repo
}

func TestService_CreateAndLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, "root", "correct-horse"); err != nil {
		t.Fatalf("create: %v", err)
	}
	token, err := svc.Login(ctx, "root", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token != "admin:root" {
		t.Errorf("unexpected token %q", token)
	}
}

func TestService_Create_Rejects(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, "  ", "correct-horse"); err == nil {
		t.Error("expected error for blank username")
	}
	if _, err := svc.Create(ctx, "root", "short"); err == nil {
		t.Error("expected error for short password")
	}
	svc.Create(ctx, "root", "correct-horse")
	if _, err := svc.Create(ctx, "root", "another-pass"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestService_Login_Failures(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	svc.Create(ctx, "root", "correct-horse")

	if _, err := svc.Login(ctx, "root", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}

	repo.err = errors.New("db down")
	_, err := svc.Login(ctx, "root", "correct-horse")
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected storage error, got %v", err)
	}
}

func TestHandler_Login(t *testing.T) {
	svc, _ := newTestService()
	svc.Create(context.Background(), "root", "correct-horse")
	h := NewHandler(svc)
	e := echo.New()
	e.Validator = middleware.NewRequestValidator()

	tests := []struct {
		name string
		body string
		code int
	}{
		{"ok", `{"username":"root","password":"correct-horse"}`, http.StatusOK},
		{"wrong password", `{"username":"root","password":"nope"}`, http.StatusUnauthorized},
		{"missing fields", `{"username":""}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()

			err := h.Login(e.NewContext(req, rec))
			if tt.code == http.StatusOK {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !strings.Contains(rec.Body.String(), "admin:root") {
					t.Errorf("expected token in body, got %s", rec.Body.String())
				}
				return
			}
			httpErr, ok := err.(*echo.HTTPError)
			if !ok || httpErr.Code != tt.code {
				t.Errorf("expected %d, got %v", tt.code, err)
			}
		})
	}
}
