package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	// CSRFCookieName holds the double-submit token readable by client script
	CSRFCookieName = "csrf_token"
	// CSRFHeaderName carries the echoed token on mutating requests
	CSRFHeaderName = "X-CSRF-Token"
)

// CookieConfig controls the session cookie
type CookieConfig struct {
	Name   string
	Secure bool
}

// RequireCSRF makes the CSRF header mandatory for state-changing methods.
// The value itself is compared against the session by the verifier.
func RequireCSRF() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			if c.Request().Header.Get(CSRFHeaderName) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": ErrUnauthenticated.Error(),
				})
			}

			return next(c)
		}
	}
}

// SetSessionCookies writes the session and CSRF cookies for session
func SetSessionCookies(c echo.Context, cfg CookieConfig, session *IssuedSession) {
	c.SetCookie(newCookie(cfg.Name, session.Token, true, cfg.Secure, session.ExpiresAt))
	c.SetCookie(newCookie(CSRFCookieName, session.CSRFToken, false, cfg.Secure, session.ExpiresAt))
}

// ClearSessionCookies expires both cookies on the client
func ClearSessionCookies(c echo.Context, cfg CookieConfig) {
	for _, cookie := range []*http.Cookie{
		newCookie(cfg.Name, "", true, cfg.Secure, time.Unix(0, 0)),
		newCookie(CSRFCookieName, "", false, cfg.Secure, time.Unix(0, 0)),
	} {
		cookie.MaxAge = -1
		c.SetCookie(cookie)
	}
}

func newCookie(name, value string, httpOnly, secure bool, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: httpOnly,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
