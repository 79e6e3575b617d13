package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// LogoutHandler revokes the caller's token.
type LogoutHandler struct {
	tokens *TokenService
	logger zerolog.Logger
}

func NewLogoutHandler(tokens *TokenService, logger zerolog.Logger) *LogoutHandler {
	return &LogoutHandler{tokens: tokens, logger: logger}
}

func (h *LogoutHandler) RegisterRoutes(api *echo.Group) {
	api.POST("/auth/logout", h.Logout, RequireRole(RoleAdmin, RoleDoctor, RolePatient))
}

func (h *LogoutHandler) Logout(c echo.Context) error {
	claims := ClaimsFromContext(c.Request().Context())
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if err := h.tokens.Revoke(c.Request().Context(), claims); err != nil {
		h.logger.Error().Err(err).Str("user_id", claims.Subject).Msg("revoke token")
		return echo.NewHTTPError(http.StatusInternalServerError, "logout failed")
	}
	return c.NoContent(http.StatusNoContent)
}
