package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HeaderInternalAuth carries the shared secret on service-to-service calls.
const HeaderInternalAuth = "X-Internal-Auth"

// InternalAuth guards the internal invalidation endpoints with a shared secret.
// An empty secret rejects every request, so the routes stay closed when
// AUTH_SHARED_SECRET is unset.
func InternalAuth(sharedSecret string) echo.MiddlewareFunc {
	secret := []byte(sharedSecret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(secret) == 0 {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "internal endpoints disabled")
			}
			provided := []byte(c.Request().Header.Get(HeaderInternalAuth))
			if len(provided) == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing internal auth header")
			}
			if subtle.ConstantTimeCompare(provided, secret) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "invalid internal auth")
			}
			return next(c)
		}
	}
}
