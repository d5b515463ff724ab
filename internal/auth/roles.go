package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/employee-service/internal/domain"
)

// RequireProfile ensures the caller has completed role setup.
func RequireProfile() fiber.Handler {
	return RequireMinRole(domain.RoleIntern)
}

// RequireMinRole ensures the caller's profile holds at least min.
func RequireMinRole(min domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		role, ok := principal.Role()
		if !ok {
			return fiber.NewError(http.StatusForbidden, "role setup required")
		}
		if role < min {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a token was presented, profile or not.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}
