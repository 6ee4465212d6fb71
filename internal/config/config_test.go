package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("OPENWEATHER_API_KEY", "ow-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.BroadcastCron != "0 9 * * *" {
		t.Errorf("expected default cron, got %q", cfg.BroadcastCron)
	}
	if cfg.Location != time.UTC {
		t.Errorf("expected UTC location, got %v", cfg.Location)
	}
	if cfg.BroadcastWorkers != 1 || cfg.BroadcastMaxRetries != 0 {
		t.Errorf("expected sequential no-retry defaults, got workers=%d retries=%d", cfg.BroadcastWorkers, cfg.BroadcastMaxRetries)
	}
	if cfg.FetchTimeout != 10*time.Second || cfg.SendTimeout != 10*time.Second {
		t.Errorf("unexpected timeouts: fetch=%s send=%s", cfg.FetchTimeout, cfg.SendTimeout)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Port)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("BROADCAST_CRON", "15 7 * * 1-5")
	t.Setenv("BROADCAST_WORKERS", "4")
	t.Setenv("BROADCAST_MAX_RETRIES", "2")
	t.Setenv("BROADCAST_RETRY_DELAY", "500ms")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.BroadcastCron != "15 7 * * 1-5" || cfg.BroadcastWorkers != 4 || cfg.BroadcastMaxRetries != 2 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.BroadcastRetryDelay != 500*time.Millisecond {
		t.Errorf("expected 500ms retry delay, got %s", cfg.BroadcastRetryDelay)
	}
	if !cfg.Debug {
		t.Error("expected debug enabled")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "missing bot token", env: map[string]string{"TELEGRAM_BOT_TOKEN": ""}, wantErr: "TelegramBotToken"},
		{name: "missing api key", env: map[string]string{"OPENWEATHER_API_KEY": ""}, wantErr: "OpenWeatherAPIKey"},
		{name: "bad cron", env: map[string]string{"BROADCAST_CRON": "every day"}, wantErr: "invalid BROADCAST_CRON"},
		{name: "bad timezone", env: map[string]string{"BROADCAST_TIMEZONE": "Mars/Olympus"}, wantErr: "invalid BROADCAST_TIMEZONE"},
		{name: "bad duration", env: map[string]string{"FETCH_TIMEOUT": "soon"}, wantErr: "invalid FETCH_TIMEOUT"},
		{name: "too many workers", env: map[string]string{"BROADCAST_WORKERS": "100"}, wantErr: "BroadcastWorkers"},
		{name: "non numeric port", env: map[string]string{"PORT": "http"}, wantErr: "Port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestParseScheduleNext(t *testing.T) {
	sched, err := ParseSchedule("0 9 * * *")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	from := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	next := sched.Next(from)
	want := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %s, got %s", want, next)
	}
}
