package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"habits-backend/internal/logging"
)

// RequestLogger attaches a request scoped logger to the request context and
// logs one line per request once it completes.
func RequestLogger(log logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			reqLog := log.With("request_id", c.Response().Header().Get(echo.HeaderXRequestID))
			ctx := logging.WithLogger(req.Context(), reqLog)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				// let echo write the response so the status is known
				c.Error(err)
			}

			reqLog.Info(ctx, "request",
				"method", req.Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"remote_ip", c.RealIP(),
				"latency_ms", time.Since(start).Milliseconds(),
			)
			return nil
		}
	}
}
