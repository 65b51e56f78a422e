package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/platform/fault"
)

// Logger emits one structured line per request. Caller faults (validation,
// not-found, conflict, forbidden) are normal outcomes and stay at info
// level; only server-side failures are logged as errors.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			evt := logger.Info()
			if err != nil {
				if callerFault(err) {
					evt = logger.Info().Err(err)
				} else {
					evt = logger.Error().Err(err)
				}
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}

// callerFault reports whether err is an expected caller-facing outcome.
// Handlers translate fault errors into echo.HTTPError before they reach
// this middleware, so the HTTP code is checked as well as the fault kind.
func callerFault(err error) bool {
	if fault.Expected(err) {
		return true
	}
	var he *echo.HTTPError
	return errors.As(err, &he) && he.Code < http.StatusInternalServerError
}
