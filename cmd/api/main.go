package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/unibot/backend/internal/api/handlers"
	"github.com/unibot/backend/internal/app"
	"github.com/unibot/backend/internal/metrics"
	"github.com/unibot/backend/internal/middleware/ratelimit"
	"github.com/unibot/backend/internal/middleware/security"
	"github.com/unibot/backend/internal/middleware/validation"
	"github.com/unibot/backend/pkg/config"
	appLogger "github.com/unibot/backend/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting UniBot API Server")

	metrics.Init()

	services, err := app.Build(context.Background(), cfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	server := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	rateLimiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.Server.RateLimitPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer rateLimiter.Stop()

	server.Use(recover.New())
	server.Use(logger.New())
	server.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.Server.AllowedOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	server.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}))

	chatHandler := handlers.NewChatHandler(services.Engine)
	wsHandler := handlers.NewWebSocketHandler(services.Engine)

	api := server.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		status := "ready"
		if !services.Ready() {
			status = "degraded"
		}
		return c.JSON(fiber.Map{
			"status":   status,
			"passages": services.Index.Len(),
		})
	})

	api.Get("/metrics", metrics.MetricsHandler())

	api.Use(rateLimiter.Middleware())
	api.Use(validation.Middleware(validation.Config{
		MaxMessageLength: cfg.Server.MaxMessageLength,
		Fields: map[string][]string{
			"/api/v1/chat":     {"message"},
			"/api/v1/search":   {"query"},
			"/api/v1/feedback": {"user_query", "ai_response", "user_feedback"},
		},
		Logger: appLogger.GetLogger(),
	}))

	api.Post("/chat", chatHandler.HandleChat)
	api.Get("/chat/history", chatHandler.GetHistory)
	api.Post("/search", chatHandler.HandleSearch)
	api.Post("/feedback", chatHandler.HandleFeedback)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws/chat", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := server.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Warn("Server shutdown incomplete", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
