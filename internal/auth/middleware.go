package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"habits-backend/internal/logging"
)

// ContextKeyIdentity is the echo context key holding the verified *Identity
const ContextKeyIdentity = "identity"

// RequireAuth rejects requests without a live session. A CSRF header, when
// present, must match the session.
func RequireAuth(verifier *Verifier, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			identity, err := verifier.Verify(ctx, TokenFromRequest(c, cookieName), c.Request().Header.Get(CSRFHeaderName))
			if err != nil {
				if errors.Is(err, ErrUnauthenticated) {
					return c.JSON(http.StatusUnauthorized, map[string]string{
						"error": ErrUnauthenticated.Error(),
					})
				}
				logging.FromContext(ctx).Error(ctx, "session verification failed", "error", err)
				return c.JSON(http.StatusInternalServerError, map[string]string{
					"error": "internal server error",
				})
			}

			c.Set(ContextKeyIdentity, identity)
			return next(c)
		}
	}
}

// TokenFromRequest extracts the raw session token from the session cookie
func TokenFromRequest(c echo.Context, cookieName string) string {
	cookie, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// GetIdentity retrieves the verified identity from the context
func GetIdentity(c echo.Context) *Identity {
	identity, ok := c.Get(ContextKeyIdentity).(*Identity)
	if !ok {
		return nil
	}
	return identity
}
