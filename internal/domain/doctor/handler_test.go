package doctor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/middleware"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _, _ := newTestService()
	e := echo.New()
	e.Validator = middleware.NewRequestValidator()
	return NewHandler(svc), e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	return httpErr.Code
}

func TestHandler_Create(t *testing.T) {
	h, e := newTestHandler()

	body := `{"name":"Gregory House","email":"house@clinic.test","password":"secret123","specialty":"Diagnostics","phone":"0123456789","available_times":["09:00-12:00"]}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/v1/doctors", body), rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("password hash must never be serialized")
	}

	var d Doctor
	json.Unmarshal(rec.Body.Bytes(), &d)
	if d.Name != "Gregory House" {
		t.Errorf("expected 'Gregory House', got %s", d.Name)
	}
}

func TestHandler_Create_ValidationError(t *testing.T) {
	h, e := newTestHandler()

	body := `{"name":"Gr","email":"not-an-email","password":"x","specialty":"D","phone":"12"}`
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/v1/doctors", body), httptest.NewRecorder())

	err := h.Create(c)
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_Create_MalformedWindow(t *testing.T) {
	h, e := newTestHandler()

	body := `{"name":"Gregory House","email":"house@clinic.test","password":"secret123","specialty":"Diagnostics","phone":"0123456789","available_times":["nine to five"]}`
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/v1/doctors", body), httptest.NewRecorder())

	if code := httpCode(t, h.Create(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_Create_Conflict(t *testing.T) {
	h, e := newTestHandler()
	h.svc.Create(context.Background(), createRequest("Existing", "dup@clinic.test", "ENT"))

	body := `{"name":"Another","email":"dup@clinic.test","password":"secret123","specialty":"ENT","phone":"0123456789"}`
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/v1/doctors", body), httptest.NewRecorder())

	if code := httpCode(t, h.Create(c)); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}
}

func TestHandler_Update_NotFound(t *testing.T) {
	h, e := newTestHandler()

	body := `{"name":"Nobody","email":"n@clinic.test","specialty":"ENT","phone":"0123456789"}`
	c := e.NewContext(jsonRequest(http.MethodPut, "/", body), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if code := httpCode(t, h.Update(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandler_Update_InvalidID(t *testing.T) {
	h, e := newTestHandler()

	c := e.NewContext(jsonRequest(http.MethodPut, "/", `{}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if code := httpCode(t, h.Update(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_Delete(t *testing.T) {
	h, e := newTestHandler()
	d, _ := h.svc.Create(context.Background(), createRequest("ToDelete", "del@clinic.test", "ENT"))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(d.ID.String())

	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandler_Delete_NotFound(t *testing.T) {
	h, e := newTestHandler()

	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if code := httpCode(t, h.Delete(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandler_List(t *testing.T) {
	h, e := newTestHandler()
	h.svc.Create(context.Background(), createRequest("Doc One", "one@clinic.test", "ENT"))
	h.svc.Create(context.Background(), createRequest("Doc Two", "two@clinic.test", "ENT"))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/doctors?limit=1", nil), rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data    []Doctor `json:"data"`
		Total   int      `json:"total"`
		HasMore bool     `json:"has_more"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Data) != 1 || !resp.HasMore {
		t.Errorf("unexpected page: %+v", resp)
	}
}

func TestHandler_Filter(t *testing.T) {
	h, e := newTestHandler()
	h.svc.Create(context.Background(), createRequest("Morning Doc", "am@clinic.test", "ENT", "08:00-11:00"))
	h.svc.Create(context.Background(), createRequest("Evening Doc", "pm@clinic.test", "ENT", "15:00-19:00"))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/doctors/filter?time=PM&specialty=ent", nil), rec)

	if err := h.Filter(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Doctors []Doctor `json:"doctors"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Doctors) != 1 || resp.Doctors[0].Name != "Evening Doc" {
		t.Errorf("unexpected doctors: %+v", resp.Doctors)
	}
}

func TestHandler_Filter_EmptyIsArray(t *testing.T) {
	h, e := newTestHandler()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/doctors/filter?name=zzz", nil), rec)

	if err := h.Filter(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"doctors":[]`) {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestHandler_Filter_Paginated(t *testing.T) {
	h, e := newTestHandler()
	h.svc.Create(context.Background(), createRequest("Doc One", "one@clinic.test", "ENT"))
	h.svc.Create(context.Background(), createRequest("Doc Two", "two@clinic.test", "ENT"))
	h.svc.Create(context.Background(), createRequest("Doc Three", "three@clinic.test", "ENT"))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/doctors/filter?specialty=ent&limit=2", nil), rec)

	if err := h.Filter(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Doctors []Doctor `json:"doctors"`
		Total   int      `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Doctors) != 2 || resp.Total != 3 {
		t.Errorf("expected 2 of 3 doctors, got %d of %d", len(resp.Doctors), resp.Total)
	}
}

func TestHandler_Filter_InvalidPeriod(t *testing.T) {
	h, e := newTestHandler()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/doctors/filter?time=noon", nil), httptest.NewRecorder())

	if code := httpCode(t, h.Filter(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_Login(t *testing.T) {
	h, e := newTestHandler()
	h.svc.Create(context.Background(), createRequest("Doc", "d@clinic.test", "ENT"))

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/v1/doctors/login", `{"email":"d@clinic.test","password":"secret123"}`), rec)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"token":"doctor:`) {
		t.Errorf("expected a doctor token, got %s", rec.Body.String())
	}

	c = e.NewContext(jsonRequest(http.MethodPost, "/api/v1/doctors/login", `{"email":"d@clinic.test","password":"nope"}`), httptest.NewRecorder())
	if code := httpCode(t, h.Login(c)); code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", code)
	}
}

func TestHandler_Me(t *testing.T) {
	h, e := newTestHandler()
	d, _ := h.svc.Create(context.Background(), createRequest("Doc", "d@clinic.test", "ENT"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/doctors/me", nil)
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{
		RegisteredClaims: jwtSubject(d.ID.String()),
		Role:             auth.RoleDoctor,
	}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Me(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), d.ID.String()) {
		t.Errorf("expected own profile, got %s", rec.Body.String())
	}
}

func jwtSubject(sub string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: sub}
}
