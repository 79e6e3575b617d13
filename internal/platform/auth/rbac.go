package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole lets the request through when the token was issued for one of
// roles. Admin tokens get no implicit pass: patient and doctor routes act on
// the caller's own records.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ClaimsFromContext(c.Request().Context())
			if claims == nil || claims.Role == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if claims.HasRole(roles...) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
