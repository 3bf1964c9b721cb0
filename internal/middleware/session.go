package middleware

import (
	"net/http"

	"github.com/campuslabs/roomreserve/internal/auth"
	"github.com/labstack/echo/v4"
)

const (
	SessionHeader = "X-Session-ID"
	sessionKey    = "session"
)

// Session resolves the X-Session-ID header against the store and attaches
// the session to the request context when valid.
func Session(store *auth.SessionStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id := c.Request().Header.Get(SessionHeader); id != "" {
				if sess, ok := store.Get(id); ok {
					c.Set(sessionKey, sess)
				}
			}
			return next(c)
		}
	}
}

// RequireAuth rejects requests without a resolved session.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := CurrentSession(c); !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
		}
		return next(c)
	}
}

// RequireAdmin rejects non-admin sessions.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, ok := CurrentSession(c)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
		}
		if !sess.IsAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return next(c)
	}
}

// CurrentSession returns the session attached by the Session middleware.
func CurrentSession(c echo.Context) (auth.Session, bool) {
	sess, ok := c.Get(sessionKey).(auth.Session)
	return sess, ok
}

// WithSession attaches a session directly. Handler tests use this in place
// of the Session middleware.
func WithSession(c echo.Context, sess auth.Session) {
	c.Set(sessionKey, sess)
}
