package api

import (
	"github.com/labstack/echo/v4"

	"habits-backend/internal/auth"
)

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Health check (public)
	api.GET("/health", h.healthCheck)

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.register)
	authGroup.POST("/login", h.login, h.limiter.Middleware())
	authGroup.POST("/logout", h.logout, auth.RequireCSRF())

	// Protected auth routes
	authGroup.GET("/me", h.me, auth.RequireAuth(h.auth.Verifier(), h.cookies.Name))
	// the service verifies the session and the CSRF value itself
	authGroup.PUT("/password", h.changePassword, auth.RequireCSRF())
}
