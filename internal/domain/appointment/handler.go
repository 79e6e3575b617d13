package appointment

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/domain/doctor"
	"github.com/clinic/clinic/internal/platform/auth"
)

const bookingFailedMessage = "Booking failed. Check doctor ID or time availability."

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	patientOnly := auth.RequireRole(auth.RolePatient)
	doctorOnly := auth.RequireRole(auth.RoleDoctor)

	api.POST("/appointments", h.Book, patientOnly)
	api.PUT("/appointments/:id", h.Update, patientOnly)
	api.DELETE("/appointments/:id", h.Cancel, patientOnly)
	api.GET("/patients/me/appointments", h.ListForPatient, patientOnly)

	api.GET("/appointments", h.ListForDoctor, doctorOnly)
	api.PATCH("/appointments/:id/status", h.ChangeStatus, doctorOnly)

	api.GET("/doctors/:id/availability", h.Availability,
		auth.RequireRole(auth.RolePatient, auth.RoleDoctor, auth.RoleAdmin))
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrBookingFailed):
		return echo.NewHTTPError(http.StatusBadRequest, bookingFailedMessage)
	case errors.Is(err, doctor.ErrNotFound), errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnauthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrInvalidCondition):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidState):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrStatusChangeFailed):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.Validate(req)
}

func subjectID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
	}
	return id, nil
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) Book(c echo.Context) error {
	patientID, err := subjectID(c)
	if err != nil {
		return err
	}
	var req BookRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	at, err := ParseAppointmentTime(req.AppointmentTime, h.svc.Location())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	a := &Appointment{
		DoctorID:        uuid.MustParse(req.DoctorID),
		PatientID:       patientID,
		AppointmentTime: at,
	}
	if err := h.svc.BookValidated(c.Request().Context(), a); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Update(c echo.Context) error {
	patientID, err := subjectID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req RescheduleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	at, err := ParseAppointmentTime(req.AppointmentTime, h.svc.Location())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	outcome, err := h.svc.Update(c.Request().Context(), id, UpdateRequest{
		DoctorID:        uuid.MustParse(req.DoctorID),
		AppointmentTime: at,
		Status:          req.Status,
	}, patientID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": string(outcome)})
}

func (h *Handler) Cancel(c echo.Context) error {
	patientID, err := subjectID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	outcome, err := h.svc.Cancel(c.Request().Context(), id, patientID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": string(outcome)})
}

func (h *Handler) ChangeStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req StatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	outcome, err := h.svc.ChangeStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": string(outcome)})
}

func (h *Handler) ListForDoctor(c echo.Context) error {
	doctorID, err := subjectID(c)
	if err != nil {
		return err
	}
	date, err := ParseDate(c.QueryParam("date"), h.svc.Location())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	out, err := h.svc.ListForDoctor(c.Request().Context(), doctorID, date, c.QueryParam("patient_name"))
	if err != nil {
		return toHTTPError(err)
	}
	if out == nil {
		out = []*Detail{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"appointments": out})
}

func (h *Handler) ListForPatient(c echo.Context) error {
	patientID, err := subjectID(c)
	if err != nil {
		return err
	}
	out, err := h.svc.ListForPatient(c.Request().Context(), patientID, c.QueryParam("condition"), c.QueryParam("doctor"))
	if err != nil {
		return toHTTPError(err)
	}
	if out == nil {
		out = []*Detail{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"appointments": out})
}

// Availability answers 404 with status "info" when nothing is free, which
// includes unknown doctors.
func (h *Handler) Availability(c echo.Context) error {
	doctorID, err := pathID(c)
	if err != nil {
		return err
	}
	date, err := ParseDate(c.QueryParam("date"), h.svc.Location())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	slots, err := h.svc.Availability(c.Request().Context(), doctorID, date)
	if err != nil {
		return toHTTPError(err)
	}
	if len(slots) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{
			"status":  "info",
			"message": "No available slots for this doctor on the selected date",
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id":       doctorID,
		"date":            date.Format(dateLayout),
		"available_slots": slots,
	})
}
