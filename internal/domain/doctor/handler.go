package doctor

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/domain/availability"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/doctors/login", h.Login)
	api.GET("/doctors", h.List)
	api.GET("/doctors/filter", h.Filter)

	api.GET("/doctors/me", h.Me, auth.RequireRole(auth.RoleDoctor))

	admin := api.Group("/doctors", auth.RequireRole(auth.RoleAdmin))
	admin.POST("", h.Create)
	admin.PUT("/:id", h.Update)
	admin.DELETE("/:id", h.Delete)
}

func toHTTPError(err error) error {
	var pe *availability.ParseError
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateEmail):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, availability.ErrInvalidPeriod):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.As(err, &pe):
		return echo.NewHTTPError(http.StatusBadRequest, pe.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	token, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	docs, total, err := h.svc.List(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return toHTTPError(err)
	}
	if docs == nil {
		docs = []*Doctor{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(docs, total, p.Limit, p.Offset))
}

func (h *Handler) Filter(c echo.Context) error {
	docs, err := h.svc.Filter(c.Request().Context(), Criteria{
		Name:      c.QueryParam("name"),
		Specialty: c.QueryParam("specialty"),
		Period:    c.QueryParam("time"),
	})
	if err != nil {
		return toHTTPError(err)
	}
	p := pagination.FromContext(c)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctors": pagination.Slice(docs, p),
		"total":   len(docs),
	})
}

func (h *Handler) Me(c echo.Context) error {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	d, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req UpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	d, err := h.svc.Update(c.Request().Context(), id, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
