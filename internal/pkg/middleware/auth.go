package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/styleshot/styleshot/internal/pkg/env"
	"github.com/styleshot/styleshot/internal/pkg/security"
	"github.com/styleshot/styleshot/internal/pkg/usercontext"
)

// RequireAuth authenticates requests carrying a signed bearer token and
// attaches the resolved identity to the request context.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing credentials"})
		}

		secret := env.GetEnv("AUTH_TOKEN_SECRET", "")
		if secret == "" {
			log.Print("auth middleware: AUTH_TOKEN_SECRET not configured")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Authentication unavailable"})
		}

		claims, err := security.VerifyAuthToken(token, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
		}

		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     claims.Subject,
			IsLoggedIn: true,
		})
		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return strings.TrimSpace(c.Get("X-API-Key"))
}
