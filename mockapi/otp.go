// mockapi/otp.go
package mockapi

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SendOTP handles POST /api/otp/send
func (s *Server) SendOTP(c *fiber.Ctx) error {
	var req struct {
		Number string `json:"number"`
	}
	if err := c.BodyParser(&req); err != nil || req.Number == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": "number is required"})
	}

	code, err := s.newOTPCode()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": "Failed to generate OTP"})
	}
	otp := OTPCode{
		Number:    req.Number,
		Code:      code,
		ExpiresAt: s.clock.Now().Add(s.otpTTL),
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "number"}},
		DoUpdates: clause.AssignmentColumns([]string{"code", "expires_at", "attempts"}),
	}).Create(&otp).Error; err != nil {
		log.Printf("[MOCK] DB error storing OTP: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": "Failed to send OTP"})
	}

	log.Printf("📱 [MOCK] OTP for %s: %s", req.Number, code)
	return c.JSON(fiber.Map{"message": "OTP sent", "number": req.Number})
}

// VerifyOTP handles POST /api/otp/verify. Success marks every account with
// that number as phone-verified.
func (s *Server) VerifyOTP(c *fiber.Ctx) error {
	var req struct {
		Number string `json:"number"`
		OTP    string `json:"otp"`
	}
	if err := c.BodyParser(&req); err != nil || req.Number == "" || req.OTP == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": "number and otp are required"})
	}

	var otp OTPCode
	if err := s.db.Where("number = ?", req.Number).First(&otp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": "No OTP requested for this number"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": "DB error"})
	}
	if s.clock.Now().After(otp.ExpiresAt) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": "OTP expired"})
	}
	if otp.Attempts >= maxOTPAttempts {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"detail": "Too many attempts, request a new OTP"})
	}
	if otp.Code != req.OTP {
		s.db.Model(&otp).Update("attempts", otp.Attempts+1)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": "Invalid OTP"})
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&User{}).Where("number = ?", req.Number).Update("phone_verified", true).Error; err != nil {
			return err
		}
		return tx.Delete(&otp).Error
	})
	if err != nil {
		log.Printf("[MOCK] DB error verifying OTP: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": "DB error"})
	}

	return c.JSON(fiber.Map{"verified": true, "message": "OTP verified"})
}
