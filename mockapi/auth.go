// mockapi/auth.go
package mockapi

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Signup handles POST /api/auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Number   string `json:"number"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": "Invalid request body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" || req.Number == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": "email, password and number are required"})
	}

	var count int64
	if err := s.db.Model(&User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		log.Printf("[MOCK] DB error checking email: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": "DB error"})
	}
	if count > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": "Email already registered"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": "Failed to create user"})
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Number:       req.Number,
	}
	if err := s.db.Create(&user).Error; err != nil {
		log.Printf("[MOCK] DB error creating user: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": "Failed to create user"})
	}

	log.Printf("✅ [MOCK] User created: %s", user.Email)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"uid": user.ID, "message": "User created successfully"})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": "Invalid request body"})
	}

	var user User
	if err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "Invalid email or password"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": "DB error"})
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "Invalid email or password"})
	}
	if !user.PhoneVerified {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"detail": "Phone number not verified"})
	}

	token, err := s.issueToken(user)
	if err != nil {
		log.Printf("[MOCK] %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": "Failed to issue token"})
	}

	return c.JSON(fiber.Map{
		"uid":           user.ID,
		"email":         user.Email,
		"name":          user.Name,
		"number":        user.Number,
		"id_token":      token,
		"refresh_token": uuid.NewString(),
		"expires_in":    int(s.tokenTTL.Seconds()),
	})
}

// VerifyToken handles POST /api/auth/verify-token
func (s *Server) VerifyToken(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": "token is required"})
	}

	claims, err := s.parseToken(req.Token)
	if err != nil {
		return c.JSON(fiber.Map{"valid": false, "reason": tokenReason(err)})
	}
	return c.JSON(fiber.Map{"valid": true, "uid": claims.Subject})
}
