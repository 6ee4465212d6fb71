package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

var validate = validator.New()

type AppConfig struct {
	TelegramBotToken  string `validate:"required"`
	OpenWeatherAPIKey string `validate:"required"`

	// BroadcastCron is a standard 5-field cron expression evaluated in BroadcastTimezone.
	BroadcastCron     string         `validate:"required"`
	BroadcastTimezone string         `validate:"required"`
	Location          *time.Location `validate:"-"`

	// Broadcast tuning.
	BroadcastWorkers    int `validate:"min=1,max=32"`
	BroadcastMaxRetries int `validate:"min=0,max=5"`
	BroadcastRetryDelay time.Duration

	// Per-call bounds on provider fetches and outbound sends.
	FetchTimeout time.Duration `validate:"gt=0"`
	SendTimeout  time.Duration `validate:"gt=0"`
	HTTPTimeout  time.Duration `validate:"gt=0"`

	// InboundLanes is the number of chats handled in parallel.
	InboundLanes int `validate:"min=1,max=64"`

	Port  string `validate:"required,numeric"`
	Debug bool
}

// Load reads configuration from environment with sensible defaults.
// The caller is expected to have loaded any .env file beforehand.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")

	cfg.BroadcastCron = getenvDefault("BROADCAST_CRON", "0 9 * * *")
	cfg.BroadcastTimezone = getenvDefault("BROADCAST_TIMEZONE", "UTC")

	cfg.BroadcastWorkers = getenvInt("BROADCAST_WORKERS", 1)
	cfg.BroadcastMaxRetries = getenvInt("BROADCAST_MAX_RETRIES", 0)
	cfg.InboundLanes = getenvInt("INBOUND_LANES", 4)
	cfg.Port = getenvDefault("PORT", "8080")
	cfg.Debug = getenvBool("DEBUG", false)

	var err error
	if cfg.BroadcastRetryDelay, err = getenvDuration("BROADCAST_RETRY_DELAY", "2s"); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = getenvDuration("FETCH_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.SendTimeout, err = getenvDuration("SEND_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "15s"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints, the cron expression and the timezone, and resolves Location.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := ParseSchedule(c.BroadcastCron); err != nil {
		return err
	}

	loc, err := time.LoadLocation(c.BroadcastTimezone)
	if err != nil {
		return fmt.Errorf("invalid BROADCAST_TIMEZONE: %w", err)
	}
	c.Location = loc
	return nil
}

// ParseSchedule parses a standard 5-field cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid BROADCAST_CRON %q: %w", expr, err)
	}
	return sched, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
