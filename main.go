package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"spinwin/config"
	"spinwin/handlers"
	"spinwin/mockapi"
	"spinwin/services"
	"spinwin/utils"
	"spinwin/workers"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	if cfg.LogFile != "" {
		log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}))
	}

	quotaLoc, err := cfg.QuotaLocation()
	if err != nil {
		log.Fatal(err)
	}

	catalog, err := services.LoadCatalog(cfg.RestaurantsFile)
	if err != nil {
		log.Fatal("failed to load restaurants:", err)
	}

	store, err := services.OpenLocalStore(cfg.LocalStoreDSN)
	if err != nil {
		log.Fatal("failed to open local store:", err)
	}

	clock := clockwork.NewRealClock()

	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Device-ID, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	backendURL := cfg.BackendURL
	if cfg.MockBackend {
		mockDB, err := gorm.Open(sqlite.Open(cfg.MockStoreDSN), &gorm.Config{Logger: utils.GormLogger(os.Stderr)})
		if err != nil {
			log.Fatal("failed to open mock backend store:", err)
		}
		if err := mockapi.AutoMigrate(mockDB); err != nil {
			log.Fatal("failed to migrate mock backend store:", err)
		}
		mock := mockapi.New(mockapi.Config{
			DB:           mockDB,
			JWTSecret:    cfg.MockJWTSecret,
			TokenTTL:     cfg.MockTokenTTL,
			OTPCode:      cfg.MockOTPCode,
			ServiceToken: cfg.MockServiceToken,
			Clock:        clock,
		})
		mock.SetupRoutes(app)
		backendURL = "http://127.0.0.1:" + cfg.Port
		log.Println("⚠️  MOCK_BACKEND enabled: serving /api/* in-process")
	}

	backend := services.NewBackendClient(backendURL, utils.NewHTTPClient(cfg.BackendTimeout))
	registry := services.NewWidgetRegistry(services.WidgetDeps{
		Backend:           backend,
		Store:             store,
		Catalog:           catalog,
		Clock:             clock,
		QuotaLocation:     quotaLoc,
		OTPResendInterval: cfg.OTPResendInterval,
	})

	handlers.SetupCatalogRoutes(app, catalog)
	handlers.SetupWidgetRoutes(app, registry)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	maintenance := &workers.Maintenance{
		Store:         store,
		Registry:      registry,
		Clock:         clock,
		Location:      quotaLoc,
		RetentionDays: cfg.QuotaRetentionDays,
		IdleTTL:       cfg.WidgetIdleTTL,
	}
	if err := maintenance.Start(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Printf("✅ Backend: %s", backendURL)
	log.Printf("✅ Restaurants loaded: %d (default %s)", len(catalog.All()), catalog.Default().ID)
	log.Printf("✅ CORS configured for origins: %s", strings.Join(cfg.AllowedOrigins, ","))

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := maintenance.Shutdown(); err != nil {
		log.Printf("[Scheduler] shutdown: %v", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
