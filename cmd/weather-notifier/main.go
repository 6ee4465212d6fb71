package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-notifier/internal/api/http"
	"github.com/i474232898/weather-notifier/internal/broadcast"
	"github.com/i474232898/weather-notifier/internal/chat"
	"github.com/i474232898/weather-notifier/internal/config"
	"github.com/i474232898/weather-notifier/internal/scheduler"
	"github.com/i474232898/weather-notifier/internal/store"
	"github.com/i474232898/weather-notifier/internal/telegram"
	"github.com/i474232898/weather-notifier/internal/weather/providers"
)

const serviceName = "weather-notifier"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provider := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey)
	logger.Info("weather provider configured", zap.String("provider", provider.Name()))

	// In-memory location store; lost on restart.
	memStore := store.NewMemoryStore()

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.TelegramBotToken, tgbotapi.APIEndpoint, &http.Client{
		// Long polling holds the request open for up to 60s.
		Timeout: cfg.HTTPTimeout + 60*time.Second,
	})
	if err != nil {
		logger.Fatal("failed to connect to telegram", zap.Error(err))
	}
	logger.Info("telegram: authorized", zap.String("bot", bot.Self.UserName))

	gateway := telegram.NewGateway(bot, logger.Named("telegram"))
	handler := chat.NewHandler(memStore, provider, gateway, logger.Named("chat"), cfg.FetchTimeout)

	broadcaster := broadcast.New(memStore, provider, gateway, logger.Named("broadcast"), broadcast.Config{
		Workers:      cfg.BroadcastWorkers,
		FetchTimeout: cfg.FetchTimeout,
		SendTimeout:  cfg.SendTimeout,
		Retry: broadcast.RetryPolicy{
			MaxRetries: cfg.BroadcastMaxRetries,
			Delay:      cfg.BroadcastRetryDelay,
		},
	})

	// Daily broadcast trigger.
	sched, err := scheduler.New(cfg.BroadcastCron, cfg.Location, broadcaster, logger.Named("scheduler"))
	if err != nil {
		logger.Fatal("failed to create scheduler", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	app := httpapi.NewApp(serviceName)
	app.Use(fiberlogger.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Store:       memStore,
		Provider:    provider,
		Broadcaster: broadcaster,
		NextRun:     sched.NextRun,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := gateway.Run(ctx, handler, cfg.InboundLanes); err != nil {
		logger.Error("telegram gateway stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
