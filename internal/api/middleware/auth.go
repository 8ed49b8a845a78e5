package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/deskforce/identity-system/internal/core/ports"
)

// Auth validates the bearer token against the session ledger and injects
// the verified claim into context. Going through the ledger rather than
// the bare signer means a token revoked by a newer login dies immediately.
func Auth(sessions ports.SessionValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claim, err := sessions.Validate(c.Request().Context(), parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set("principal_id", claim.PrincipalID)
			c.Set("username", claim.Username)
			c.Set("kind", string(claim.Kind))
			c.Set("roles", claim.Roles)

			return next(c)
		}
	}
}
