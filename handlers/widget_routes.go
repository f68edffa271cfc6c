// handlers/widget_routes.go
package handlers

import (
	"spinwin/middleware"
	"spinwin/services"

	"github.com/gofiber/fiber/v2"
)

func SetupWidgetRoutes(app *fiber.App, registry *services.WidgetRegistry) {
	// Every widget route acts on the device named by X-Device-ID.
	widget := app.Group("/widget", middleware.DeviceContextMiddleware(registry))

	widget.Get("/state", func(c *fiber.Ctx) error {
		status, err := middleware.Widget(c).Status(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(status)
	})

	widget.Put("/restaurant/:id", func(c *fiber.Ctx) error {
		r, err := middleware.Widget(c).SelectRestaurant(c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(r)
	})

	widget.Post("/spin", func(c *fiber.Ctx) error {
		res, err := middleware.Widget(c).Spin(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"offer":           res.Offer,
			"quota":           res.Quota,
			"remaining_spins": res.Quota.Remaining(),
		})
	})

	widget.Post("/claim", func(c *fiber.Ctx) error {
		outcome, err := middleware.Widget(c).Claim(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		if outcome.NeedsAuth {
			return c.Status(fiber.StatusAccepted).JSON(outcome)
		}
		return c.JSON(outcome)
	})

	// 🔐 Auth flow
	auth := widget.Group("/auth")

	auth.Post("/login", func(c *fiber.Ctx) error {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.Email == "" || req.Password == "" {
			return badRequest(c, "email and password are required")
		}
		outcome, err := middleware.Widget(c).Login(c.UserContext(), req.Email, req.Password)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"identity": outcome.Session.Identity, "claim": outcome.Claim})
	})

	auth.Post("/signup", func(c *fiber.Ctx) error {
		var form services.SignupForm
		if err := c.BodyParser(&form); err != nil {
			return badRequest(c, "invalid request body")
		}
		w := middleware.Widget(c)
		if err := w.Signup(c.UserContext(), form); err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"auth_state": w.AuthState(),
			"message":    "OTP sent",
		})
	})

	auth.Post("/otp/verify", func(c *fiber.Ctx) error {
		var req struct {
			OTP string `json:"otp"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		outcome, err := middleware.Widget(c).VerifyOTP(c.UserContext(), req.OTP)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"identity": outcome.Session.Identity, "claim": outcome.Claim})
	})

	auth.Post("/otp/resend", func(c *fiber.Ctx) error {
		if err := middleware.Widget(c).ResendOTP(c.UserContext()); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "OTP resent"})
	})

	auth.Post("/cancel", func(c *fiber.Ctx) error {
		w := middleware.Widget(c)
		w.CancelAuth()
		return c.JSON(fiber.Map{"auth_state": w.AuthState()})
	})

	auth.Post("/logout", func(c *fiber.Ctx) error {
		if err := middleware.Widget(c).Logout(c.UserContext()); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	widget.Post("/guest", func(c *fiber.Ctx) error {
		sess, err := middleware.Widget(c).EnsureGuest(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"identity": sess.Identity})
	})

	widget.Patch("/profile", func(c *fiber.Ctx) error {
		var req struct {
			Name  string `json:"name"`
			Phone string `json:"phone"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		sess, err := middleware.Widget(c).UpdateProfile(c.UserContext(), req.Name, req.Phone)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"identity": sess.Identity})
	})

	// 🎁 Dashboard
	widget.Get("/dashboard", func(c *fiber.Ctx) error {
		grouped, err := middleware.Widget(c).Dashboard(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(grouped)
	})

	widget.Get("/dashboard/:restaurantId", func(c *fiber.Ctx) error {
		group, source, err := middleware.Widget(c).DashboardTab(c.Params("restaurantId"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"source": source, "restaurant": group})
	})
}
