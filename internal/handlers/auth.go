package handlers

import (
	"errors"

	"visionboard-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware resolves the caller's identity from a bearer token and
// stashes the user id in locals. Requests without a resolvable caller get
// a 401 before any handler runs.
func AuthMiddleware(c *fiber.Ctx) error {
	token := ""
	authHeader := c.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		token = authHeader[7:]
	}

	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	claims, err := services.ValidateToken(token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	c.Locals("user_id", userID)

	if email, ok := claims["email"].(string); ok {
		c.Locals("email", email)
	}

	return c.Next()
}

// respondError maps service errors to responses: validation failures to
// 400, not-found (including other-owner rows) to 404, everything else to
// 500 with the upstream message surfaced verbatim.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
