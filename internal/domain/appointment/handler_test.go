package appointment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/middleware"
)

func newTestHandler() (*Handler, *fixture, *echo.Echo) {
	f := newFixture()
	e := echo.New()
	e.Validator = middleware.NewRequestValidator()
	return NewHandler(f.svc), f, e
}

func asUser(req *http.Request, id uuid.UUID, role string) *http.Request {
	return req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: id.String()},
		Role:             role,
	}))
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func httpError(t *testing.T, err error) *echo.HTTPError {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	return httpErr
}

func TestHandler_Book(t *testing.T) {
	h, f, e := newTestHandler()

	body := `{"doctor_id":"` + f.doc.ID.String() + `","appointment_time":"2030-01-15T10:00"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(asUser(jsonRequest(http.MethodPost, "/api/v1/appointments", body), f.patient, auth.RolePatient), rec)

	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var a Appointment
	json.Unmarshal(rec.Body.Bytes(), &a)
	if a.PatientID != f.patient {
		t.Errorf("patient must come from the token, got %s", a.PatientID)
	}
}

func TestHandler_Book_Errors(t *testing.T) {
	h, f, e := newTestHandler()

	tests := []struct {
		name string
		body string
		code int
	}{
		{"unavailable hour", `{"doctor_id":"` + f.doc.ID.String() + `","appointment_time":"2030-01-15T15:00"}`, http.StatusBadRequest},
		{"unknown doctor", `{"doctor_id":"` + uuid.NewString() + `","appointment_time":"2030-01-15T10:00"}`, http.StatusNotFound},
		{"bad time", `{"doctor_id":"` + f.doc.ID.String() + `","appointment_time":"soon"}`, http.StatusBadRequest},
		{"bad doctor id", `{"doctor_id":"42","appointment_time":"2030-01-15T10:00"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.NewContext(asUser(jsonRequest(http.MethodPost, "/api/v1/appointments", tt.body), f.patient, auth.RolePatient), httptest.NewRecorder())
			if code := httpError(t, h.Book(c)).Code; code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, code)
			}
		})
	}
}

func TestHandler_Book_FailureMessage(t *testing.T) {
	h, f, e := newTestHandler()
	// 10:00 is a free slot but already in the past.
	f.svc.now = func() time.Time { return at(23, 0) }

	body := `{"doctor_id":"` + f.doc.ID.String() + `","appointment_time":"2030-01-15T10:00"}`
	c := e.NewContext(asUser(jsonRequest(http.MethodPost, "/api/v1/appointments", body), f.patient, auth.RolePatient), httptest.NewRecorder())

	httpErr := httpError(t, h.Book(c))
	if httpErr.Code != http.StatusBadRequest || httpErr.Message != bookingFailedMessage {
		t.Errorf("unexpected error %v", httpErr)
	}
}

func TestHandler_Update_NonOwnerForbidden(t *testing.T) {
	h, f, e := newTestHandler()
	a := f.book(t, at(9, 0))

	body := `{"doctor_id":"` + f.doc.ID.String() + `","appointment_time":"2030-01-15T11:00","status":0}`
	c := e.NewContext(asUser(jsonRequest(http.MethodPut, "/", body), uuid.New(), auth.RolePatient), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if code := httpError(t, h.Update(c)).Code; code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", code)
	}
}

func TestHandler_Update(t *testing.T) {
	h, f, e := newTestHandler()
	a := f.book(t, at(9, 0))

	body := `{"doctor_id":"` + f.doc.ID.String() + `","appointment_time":"2030-01-15T11:00","status":0}`
	rec := httptest.NewRecorder()
	c := e.NewContext(asUser(jsonRequest(http.MethodPut, "/", body), f.patient, auth.RolePatient), rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.Update(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), string(OutcomeUpdated)) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_Cancel(t *testing.T) {
	h, f, e := newTestHandler()
	a := f.book(t, at(9, 0))

	tests := []struct {
		name string
		id   string
		code int
	}{
		{"bad id", "nope", http.StatusBadRequest},
		{"unknown", uuid.NewString(), http.StatusNotFound},
		{"ok", a.ID.String(), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(asUser(httptest.NewRequest(http.MethodDelete, "/", nil), f.patient, auth.RolePatient), rec)
			c.SetParamNames("id")
			c.SetParamValues(tt.id)

			err := h.Cancel(c)
			if tt.code == http.StatusOK {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if code := httpError(t, err).Code; code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, code)
			}
		})
	}
}

func TestHandler_Cancel_CompletedConflict(t *testing.T) {
	h, f, e := newTestHandler()
	a := f.book(t, at(9, 0))
	f.svc.ChangeStatus(context.Background(), a.ID, StatusCompleted)

	c := e.NewContext(asUser(httptest.NewRequest(http.MethodDelete, "/", nil), f.patient, auth.RolePatient), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if code := httpError(t, h.Cancel(c)).Code; code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}
}

func TestHandler_ChangeStatus(t *testing.T) {
	h, f, e := newTestHandler()
	a := f.book(t, at(9, 0))

	rec := httptest.NewRecorder()
	c := e.NewContext(asUser(jsonRequest(http.MethodPatch, "/", `{"status":1}`), f.doc.ID, auth.RoleDoctor), rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.ChangeStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.repo.appts[a.ID].Status != StatusCompleted {
		t.Error("expected completed status")
	}

	c = e.NewContext(asUser(jsonRequest(http.MethodPatch, "/", `{"status":1}`), f.doc.ID, auth.RoleDoctor), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())
	if code := httpError(t, h.ChangeStatus(c)).Code; code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", code)
	}
}

func TestHandler_Availability(t *testing.T) {
	h, f, e := newTestHandler()
	f.book(t, at(10, 0))

	rec := httptest.NewRecorder()
	req := asUser(httptest.NewRequest(http.MethodGet, "/?date=2030-01-15", nil), f.patient, auth.RolePatient)
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(f.doc.ID.String())

	if err := h.Availability(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Slots []string `json:"available_slots"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if len(body.Slots) != 2 || body.Slots[0] != "09:00" || body.Slots[1] != "11:00" {
		t.Errorf("unexpected slots %v", body.Slots)
	}
}

func TestHandler_Availability_EmptyIsInfo404(t *testing.T) {
	h, f, e := newTestHandler()

	for _, id := range []string{uuid.NewString(), f.doc.ID.String()} {
		date := "2030-01-15"
		if id == f.doc.ID.String() {
			f.doc.AvailableTimes = nil
		}
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?date="+date, nil), rec)
		c.SetParamNames("id")
		c.SetParamValues(id)

		if err := h.Availability(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"status":"info"`) {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
	}
}

func TestHandler_Availability_BadDate(t *testing.T) {
	h, f, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?date=tomorrow", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(f.doc.ID.String())
	if code := httpError(t, h.Availability(c)).Code; code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_ListForDoctor(t *testing.T) {
	h, f, e := newTestHandler()
	f.book(t, at(9, 0))

	rec := httptest.NewRecorder()
	c := e.NewContext(asUser(httptest.NewRequest(http.MethodGet, "/?date=2030-01-15", nil), f.doc.ID, auth.RoleDoctor), rec)
	if err := h.ListForDoctor(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Appointments []Detail `json:"appointments"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if len(body.Appointments) != 1 {
		t.Errorf("expected 1 appointment, got %d", len(body.Appointments))
	}

	c = e.NewContext(asUser(httptest.NewRequest(http.MethodGet, "/", nil), f.doc.ID, auth.RoleDoctor), httptest.NewRecorder())
	if code := httpError(t, h.ListForDoctor(c)).Code; code != http.StatusBadRequest {
		t.Errorf("missing date: expected 400, got %d", code)
	}
}

func TestHandler_ListForPatient(t *testing.T) {
	h, f, e := newTestHandler()

	rec := httptest.NewRecorder()
	c := e.NewContext(asUser(httptest.NewRequest(http.MethodGet, "/", nil), f.patient, auth.RolePatient), rec)
	if err := h.ListForPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"appointments":[]`) {
		t.Errorf("expected empty list, got %s", rec.Body.String())
	}

	c = e.NewContext(asUser(httptest.NewRequest(http.MethodGet, "/?condition=someday", nil), f.patient, auth.RolePatient), httptest.NewRecorder())
	if code := httpError(t, h.ListForPatient(c)).Code; code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_RequiresSubject(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if code := httpError(t, h.ListForPatient(c)).Code; code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", code)
	}
}
