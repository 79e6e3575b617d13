// Package telemetry wires error reporting and request metrics.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
)

// InitSentry configures the global Sentry hub. An empty dsn disables
// reporting and returns a no-op flush.
func InitSentry(dsn, env, release string, logger zerolog.Logger) (func(), error) {
	if dsn == "" {
		logger.Info().Msg("sentry disabled: SENTRY_DSN not set")
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	})
	if err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}
	logger.Info().Str("environment", env).Msg("sentry enabled")
	return func() { sentry.Flush(2 * time.Second) }, nil
}
