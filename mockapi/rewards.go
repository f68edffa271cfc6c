// mockapi/rewards.go
package mockapi

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ClaimReward handles POST /api/rewards/
func (s *Server) ClaimReward(c *fiber.Ctx) error {
	uid := c.Locals("uid").(string)

	var req struct {
		UID            string    `json:"uid"`
		RestaurantID   string    `json:"restaurant_id"`
		RewardName     string    `json:"reward_name"`
		WhatsappNumber string    `json:"whatsapp_number"`
		UserName       string    `json:"user_name"`
		ClaimedAt      time.Time `json:"claimed_at"`
		CouponCode     string    `json:"coupon_code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": "Invalid request body"})
	}
	if req.UID != uid {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"detail": "uid does not match token"})
	}
	if req.RestaurantID == "" || req.RewardName == "" || req.CouponCode == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": "restaurant_id, reward_name and coupon_code are required"})
	}
	if req.ClaimedAt.IsZero() {
		req.ClaimedAt = s.clock.Now()
	}

	var count int64
	s.db.Model(&Reward{}).Where("coupon_code = ?", req.CouponCode).Count(&count)
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"detail": "Coupon code already exists"})
	}

	// Redemption is never taken from the client.
	reward := Reward{
		UID:            uid,
		RestaurantID:   req.RestaurantID,
		RewardName:     req.RewardName,
		CouponCode:     req.CouponCode,
		WhatsappNumber: req.WhatsappNumber,
		UserName:       req.UserName,
		ClaimedAt:      req.ClaimedAt.UTC(),
	}
	if err := s.db.Create(&reward).Error; err != nil {
		log.Printf("[MOCK] DB error storing reward: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": "Failed to store reward"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Reward claimed", "id": reward.ID})
}

// UserDashboard handles GET /api/userdashboard/?uid=
func (s *Server) UserDashboard(c *fiber.Ctx) error {
	uid := c.Locals("uid").(string)
	if q := c.Query("uid"); q != "" && q != uid {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"detail": "uid does not match token"})
	}

	var rewards []Reward
	if err := s.db.Where("uid = ?", uid).Order("claimed_at DESC").Find(&rewards).Error; err != nil {
		log.Printf("[MOCK] DB error fetching dashboard: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": "Failed to fetch rewards"})
	}

	out := make([]fiber.Map, 0, len(rewards))
	for _, r := range rewards {
		out = append(out, fiber.Map{
			"restaurant_id": r.RestaurantID,
			"reward_name":   r.RewardName,
			"coupon_code":   r.CouponCode,
			"claimed_at":    r.ClaimedAt,
			"redeemed":      r.Redeemed,
			"redeemed_at":   r.RedeemedAt,
		})
	}
	return c.JSON(fiber.Map{"uid": uid, "claimed_rewards": out})
}

// RedeemReward handles POST /api/rewards/:code/redeem (operator only)
func (s *Server) RedeemReward(c *fiber.Ctx) error {
	code := strings.ToUpper(c.Params("code"))

	var reward Reward
	if err := s.db.Where("coupon_code = ?", code).First(&reward).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": "Reward not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": "DB error"})
	}
	if reward.Redeemed {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"detail": "Reward already redeemed"})
	}

	now := s.clock.Now().UTC()
	reward.Redeemed = true
	reward.RedeemedAt = &now
	if err := s.db.Save(&reward).Error; err != nil {
		log.Printf("[MOCK] DB error redeeming reward: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": "Failed to redeem reward"})
	}

	log.Printf("✅ [MOCK] Redeemed %s", reward.CouponCode)
	return c.JSON(fiber.Map{"message": "Reward redeemed", "reward": reward})
}
