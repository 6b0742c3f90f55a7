package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"habits-backend/internal/auth"
	"habits-backend/internal/logging"
)

// Handler serves the HTTP API on top of the auth service
type Handler struct {
	auth    *auth.Service
	limiter *auth.RateLimiter
	cookies auth.CookieConfig
}

// NewHandler creates a new API handler
func NewHandler(authSvc *auth.Service, limiter *auth.RateLimiter, cookies auth.CookieConfig) *Handler {
	if limiter == nil {
		limiter = auth.DefaultRateLimiter()
	}
	return &Handler{auth: authSvc, limiter: limiter, cookies: cookies}
}

// Health check
func (h *Handler) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// renderError maps service errors to responses. Authentication failures
// all render the same body; internal errors are logged and hidden.
func renderError(c echo.Context, err error) error {
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, auth.ErrUsernameTaken):
		return c.JSON(http.StatusConflict, map[string]string{
			"error": "username already taken",
		})
	case errors.Is(err, auth.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "authentication required",
		})
	default:
		ctx := c.Request().Context()
		logging.FromContext(ctx).Error(ctx, "request failed", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}
}

func badRequestBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, map[string]string{
		"error": "invalid request body",
	})
}
