// middleware/device.go
package middleware

import (
	"log"
	"strings"

	"spinwin/services"

	"github.com/gofiber/fiber/v2"
)

const maxDeviceIDLength = 128

// DeviceContextMiddleware resolves X-Device-ID to the device's widget and
// stores it in Locals("widget").
func DeviceContextMiddleware(registry *services.WidgetRegistry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deviceID := strings.TrimSpace(c.Get("X-Device-ID"))
		if deviceID == "" {
			log.Printf("❌ [DEVICE_CTX] X-Device-ID missing on %s", c.Path())
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "missing X-Device-ID header",
			})
		}
		if len(deviceID) > maxDeviceIDLength {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "X-Device-ID too long",
			})
		}

		c.Locals("device_id", deviceID)
		c.Locals("widget", registry.Get(c.UserContext(), deviceID))
		return c.Next()
	}
}

// Widget returns the widget attached by DeviceContextMiddleware.
func Widget(c *fiber.Ctx) *services.Widget {
	return c.Locals("widget").(*services.Widget)
}
