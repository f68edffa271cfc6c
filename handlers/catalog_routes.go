// handlers/catalog_routes.go
package handlers

import (
	"spinwin/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCatalogRoutes(app *fiber.App, catalog *services.Catalog) {
	app.Get("/restaurants", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"default":     catalog.Default().ID,
			"restaurants": catalog.All(),
		})
	})

	app.Get("/restaurants/:id", func(c *fiber.Ctx) error {
		r, ok := catalog.Get(c.Params("id"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "restaurant not found"})
		}
		return c.JSON(r)
	})
}
