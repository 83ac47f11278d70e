// Package middleware implements bearer-token authentication and role checks
// for the fiber routes.
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"license-admin/internal/token"
)

// AuthUser is the claims projection attached to the request context.
type AuthUser struct {
	ID       uint
	Username string
	Role     string
}

const localsKey = "authUser"

// Authenticate extracts the bearer token and verifies it as an access token.
// All validation failures answer 401 with the same message so the response
// never reveals which check failed.
func Authenticate(tokens *token.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "authorization required",
			})
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "invalid token",
			})
		}

		claims, err := tokens.VerifyAccessToken(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "invalid token",
			})
		}
		id, err := claims.UserID()
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "invalid token",
			})
		}

		c.Locals(localsKey, AuthUser{ID: id, Username: claims.Username, Role: claims.Role})
		return c.Next()
	}
}

// RequireRoles gates a route on the authenticated user's role claim.
func RequireRoles(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromCtx(c)
		if ok {
			for _, role := range roles {
				if user.Role == role {
					return c.Next()
				}
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "insufficient permissions",
		})
	}
}

// UserFromCtx returns the authenticated user attached by Authenticate.
func UserFromCtx(c *fiber.Ctx) (AuthUser, bool) {
	user, ok := c.Locals(localsKey).(AuthUser)
	return user, ok
}
