package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// publicRoutes lists method+route pairs reachable without a token. Keys use
// the registered route path, not the raw URL.
var publicRoutes = map[string]bool{
	"GET /health":                 true,
	"GET /health/db":              true,
	"GET /metrics":                true,
	"POST /api/v1/admin/login":    true,
	"POST /api/v1/doctors/login":  true,
	"POST /api/v1/patients":       true,
	"POST /api/v1/patients/login": true,
	"GET /api/v1/doctors":         true,
	"GET /api/v1/doctors/filter":  true,
}

// AuthSkipper reports whether the matched route is public.
func AuthSkipper(c echo.Context) bool {
	if c.Request().Method == http.MethodOptions {
		return true
	}
	return IsPublicRoute(c.Request().Method, c.Path())
}

// IsPublicRoute reports whether method and route path need no token.
func IsPublicRoute(method, path string) bool {
	return publicRoutes[method+" "+path]
}
