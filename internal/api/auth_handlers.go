package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"habits-backend/internal/auth"
	"habits-backend/internal/models"
)

// register handles POST /api/auth/register
func (h *Handler) register(c echo.Context) error {
	var req models.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return badRequestBody(c)
	}

	res, err := h.auth.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return renderError(c, err)
	}

	return h.respondWithSession(c, http.StatusCreated, res)
}

// login handles POST /api/auth/login
func (h *Handler) login(c echo.Context) error {
	var req models.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return badRequestBody(c)
	}

	res, err := h.auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid username or password",
			})
		}
		return renderError(c, err)
	}

	h.limiter.RecordSuccess(c.RealIP())
	return h.respondWithSession(c, http.StatusOK, res)
}

// logout handles POST /api/auth/logout
func (h *Handler) logout(c echo.Context) error {
	token := auth.TokenFromRequest(c, h.cookies.Name)

	// Cookies go regardless of what the store says
	auth.ClearSessionCookies(c, h.cookies)

	if err := h.auth.Logout(c.Request().Context(), token); err != nil {
		return renderError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "logged out",
	})
}

// me handles GET /api/auth/me
func (h *Handler) me(c echo.Context) error {
	identity := auth.GetIdentity(c)
	if identity == nil {
		return renderError(c, auth.ErrNoSession)
	}

	user, err := h.auth.CurrentUser(c.Request().Context(), identity)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(http.StatusOK, models.MeResponse{
		UserResponse: user.Public(),
		CSRFToken:    identity.CSRFToken,
	})
}

// changePassword handles PUT /api/auth/password
func (h *Handler) changePassword(c echo.Context) error {
	var req models.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequestBody(c)
	}

	err := h.auth.ChangePassword(
		c.Request().Context(),
		auth.TokenFromRequest(c, h.cookies.Name),
		c.Request().Header.Get(auth.CSRFHeaderName),
		req.CurrentPassword,
		req.NewPassword,
	)
	if err != nil {
		return renderError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) respondWithSession(c echo.Context, status int, res *auth.AuthResult) error {
	auth.SetSessionCookies(c, h.cookies, res.Session)

	return c.JSON(status, models.AuthResponse{
		User:      res.User.Public(),
		CSRFToken: res.Session.CSRFToken,
		ExpiresAt: res.Session.ExpiresAt,
	})
}
