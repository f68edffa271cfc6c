// mockapi/server.go
package mockapi

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// Config configures the mock backend.
type Config struct {
	DB *gorm.DB
	// JWTSecret signs id tokens (HS256).
	JWTSecret string
	TokenTTL  time.Duration
	// OTPCode, when set, is issued for every OTP send. Otherwise a random
	// 4-digit code is generated and logged.
	OTPCode      string
	OTPTTL       time.Duration
	ServiceToken string
	Clock        clockwork.Clock
}

// Server is a stand-in for the widget backend: auth, OTP, rewards and the
// user dashboard.
type Server struct {
	db           *gorm.DB
	secret       []byte
	tokenTTL     time.Duration
	otpCode      string
	otpTTL       time.Duration
	serviceToken string
	clock        clockwork.Clock
}

const maxOTPAttempts = 5

func New(cfg Config) *Server {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 5 * time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Server{
		db:           cfg.DB,
		secret:       []byte(cfg.JWTSecret),
		tokenTTL:     cfg.TokenTTL,
		otpCode:      cfg.OTPCode,
		otpTTL:       cfg.OTPTTL,
		serviceToken: cfg.ServiceToken,
		clock:        cfg.Clock,
	}
}

// SetupRoutes mounts the backend API on router.
func (s *Server) SetupRoutes(router fiber.Router) {
	api := router.Group("/api")

	api.Post("/auth/signup", s.Signup)
	api.Post("/auth/login", s.Login)
	api.Post("/auth/verify-token", s.VerifyToken)

	api.Post("/otp/send", s.SendOTP)
	api.Post("/otp/verify", s.VerifyOTP)

	api.Post("/rewards/", s.bearerAuth(), s.ClaimReward)
	api.Post("/rewards/:code/redeem", s.serviceAuth(), s.RedeemReward)
	api.Get("/userdashboard/", s.bearerAuth(), s.UserDashboard)
}

// App returns a standalone fiber app serving the backend API.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	s.SetupRoutes(app)
	return app
}

func (s *Server) newOTPCode() (string, error) {
	if s.otpCode != "" {
		return s.otpCode, nil
	}
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
