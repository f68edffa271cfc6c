// mockapi/middleware.go
package mockapi

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// bearerAuth validates the id token and stores its subject as "uid".
func (s *Server) bearerAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" || token == authHeader {
			log.Printf("🚫 [MOCK_AUTH] Missing bearer token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "Not authenticated"})
		}

		claims, err := s.parseToken(token)
		if err != nil {
			log.Printf("❌ [MOCK_AUTH] Rejected token for %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": tokenReason(err)})
		}

		c.Locals("uid", claims.Subject)
		return c.Next()
	}
}

// serviceAuth guards operator endpoints with X-Service-Token. With no token
// configured those endpoints are closed.
func (s *Server) serviceAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Get("X-Service-Token")
		if s.serviceToken == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.serviceToken)) != 1 {
			log.Printf("❌ [MOCK_SERVICE] Invalid service token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "invalid service token"})
		}
		return c.Next()
	}
}
