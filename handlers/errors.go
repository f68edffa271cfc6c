// handlers/errors.go
package handlers

import (
	"errors"
	"log"

	"spinwin/services"

	"github.com/gofiber/fiber/v2"
)

// respondError maps a service error to a status and an {"error": ...} body.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	body := fiber.Map{"error": err.Error()}

	var (
		quotaErr *services.QuotaExceededError
		authErr  *services.AuthError
		otpErr   *services.OTPInvalidError
		netErr   *services.NetworkError
		apiErr   *services.APIError
		valErr   *services.ValidationError
	)

	switch {
	case errors.As(err, &quotaErr):
		status = fiber.StatusTooManyRequests
		body["quota"] = quotaErr.Quota
		body["remaining_spins"] = 0
	case errors.Is(err, services.ErrBusy), errors.Is(err, services.ErrInvalidTransition):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrResendThrottled):
		status = fiber.StatusTooManyRequests
	case errors.As(err, &authErr), errors.Is(err, services.ErrNotAuthenticated):
		status = fiber.StatusUnauthorized
	case errors.As(err, &otpErr):
		status = fiber.StatusUnprocessableEntity
	case errors.As(err, &valErr):
		status = fiber.StatusUnprocessableEntity
		body["field"] = valErr.Field
	case errors.Is(err, services.ErrUnknownRestaurant):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrNoOffer), errors.Is(err, services.ErrNoOffers),
		errors.Is(err, services.ErrDashboardNotLoaded):
		status = fiber.StatusBadRequest
	case errors.As(err, &netErr):
		status = fiber.StatusBadGateway
	case errors.As(err, &apiErr):
		status = fiber.StatusBadGateway
		body["error"] = apiErr.Detail
	}

	if status >= fiber.StatusInternalServerError {
		log.Printf("❌ [WIDGET_API] %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
