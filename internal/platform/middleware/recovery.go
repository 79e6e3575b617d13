package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recovery turns a handler panic into a 500. The panic is logged and, when a
// Sentry client is configured, reported with the request id as a tag.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					var stack [4096]byte
					n := runtime.Stack(stack[:], false)
					rid := fmt.Sprintf("%v", c.Get("request_id"))

					logger.Error().
						Str("request_id", rid).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", string(stack[:n])).
						Msg("panic recovered")

					hub := sentry.CurrentHub().Clone()
					if hub.Client() != nil {
						hub.Scope().SetTag("request_id", rid)
						hub.Scope().SetTag("route", c.Path())
						hub.Recover(r)
					}

					err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
				}
			}()
			return next(c)
		}
	}
}
