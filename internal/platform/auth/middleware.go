package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Authenticate resolves the request's bearer token into a Principal and
// stores it on the request context. All auth failures map to the same 401
// response so a caller cannot probe which collection was checked or whether
// the subject exists at all.
func Authenticate(resolver *Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := resolver.Resolve(c.Request().Context(), c.Request().Header.Get("Authorization"))
			if err != nil {
				if errors.Is(err, ErrMissingToken) || errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrPrincipalNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
				}
				return echo.NewHTTPError(http.StatusInternalServerError, "authentication unavailable")
			}

			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
			return next(c)
		}
	}
}

// Authorize checks that the principal holds one of the allowed roles.
func Authorize(p *Principal, roles ...string) error {
	if p == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	for _, role := range roles {
		if p.Role == role {
			return nil
		}
	}
	return echo.NewHTTPError(http.StatusForbidden, "access denied: insufficient permissions")
}

// RequireRole returns middleware that restricts a route to the given roles.
// It must run after Authenticate.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := Authorize(PrincipalFromContext(c.Request().Context()), roles...); err != nil {
				return err
			}
			return next(c)
		}
	}
}
