package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deskforce/identity-system/internal/core/domain"
)

// ctxIdentity extracts the authenticated identity injected by the Auth
// middleware and fast-fails before any service call: an empty username or
// kind means the middleware did not run on this route, which is a wiring
// bug rather than a client error, but 401 is still the safe answer.
func ctxIdentity(c echo.Context) (username string, kind domain.PrincipalKind, err error) {
	username, _ = c.Get("username").(string)
	rawKind, _ := c.Get("kind").(string)

	if username == "" || rawKind == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	return username, domain.PrincipalKind(rawKind), nil
}
