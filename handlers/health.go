package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/postforge/api/database"
	"github.com/postforge/api/utils/response"
)

// HandleCheckHealth reports process and database health
func HandleCheckHealth(store database.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := store.HealthCheck(); err != nil {
			return response.ServiceUnavailable(c, "database unreachable")
		}
		return response.Success(c, fiber.Map{"status": "ok"})
	}
}
