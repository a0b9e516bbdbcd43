package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

const adminTokenHeader = "X-Admin-Token"

// AdminAuth guards operator and payment-gateway endpoints. The presented token
// (X-Admin-Token or bearer) is compared against a bcrypt hash; an empty hash
// disables the routes entirely.
func AdminAuth(tokenHash string) fiber.Handler {
	hash := []byte(tokenHash)
	return func(c *fiber.Ctx) error {
		if len(hash) == 0 {
			return fiber.NewError(http.StatusForbidden, "admin access disabled")
		}
		token := c.Get(adminTokenHeader)
		if token == "" {
			token, _ = bearer(c)
		}
		if token == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing admin token")
		}
		if err := bcrypt.CompareHashAndPassword(hash, []byte(token)); err != nil {
			return fiber.NewError(http.StatusForbidden, "invalid admin token")
		}
		return c.Next()
	}
}
