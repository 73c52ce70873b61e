package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PropKit/internal/pkg/usercontext"
)

// RequireRole rejects requests whose principal holds none of the given roles.
// Anonymous requests get 401, authenticated ones with the wrong role 403.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		p, ok := usercontext.GetPrincipal(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "authentication required",
			})
		}
		if _, ok := allowed[p.Role]; !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "insufficient role",
			})
		}
		return c.Next()
	}
}
