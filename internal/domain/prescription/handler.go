package prescription

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	doctorOnly := auth.RequireRole(auth.RoleDoctor)
	api.POST("/prescriptions", h.Create, doctorOnly)
	api.GET("/prescriptions/:appointmentId", h.Get, doctorOnly)
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrPersistence):
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save prescription")
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.svc.Save(c.Request().Context(), &Prescription{
		AppointmentID: req.AppointmentID,
		DoctorID:      auth.UserIDFromContext(c.Request().Context()),
		PatientName:   req.PatientName,
		Medication:    req.Medication,
		Dosage:        req.Dosage,
		DoctorNotes:   req.DoctorNotes,
	})
	if err != nil {
		return toHTTPError(err)
	}
	msg := "Prescription saved and appointment marked as completed"
	if !res.StatusUpdated {
		msg = "Prescription saved but appointment status could not be updated"
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":        msg,
		"prescription":   res.Prescription,
		"status_updated": res.StatusUpdated,
	})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("appointmentId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	out, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"prescriptions": out})
}
