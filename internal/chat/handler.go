package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-notifier/internal/weather"
)

const (
	GreetingText = "Hi! Send me a city name or share your location, and I'll send you the weather forecast every day."
	FallbackText = "Unable to retrieve the weather data. Please try again later."

	defaultTimeout = 10 * time.Second
)

// Handler answers inbound events immediately: it records the chat's location and replies with the current weather.
type Handler struct {
	store    weather.Store
	provider weather.Provider
	sender   Sender
	logger   *zap.Logger
	timeout  time.Duration
}

// NewHandler creates a Handler. timeout bounds each provider call and each reply; zero means 10s.
func NewHandler(store weather.Store, provider weather.Provider, sender Sender, logger *zap.Logger, timeout time.Duration) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Handler{
		store:    store,
		provider: provider,
		sender:   sender,
		logger:   logger,
		timeout:  timeout,
	}
}

// Handle dispatches ev by kind. Unknown kinds are ignored.
func (h *Handler) Handle(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case Start:
		h.OnStart(ctx, e)
	case TextMessage:
		h.OnText(ctx, e)
	case LocationMessage:
		h.OnLocation(ctx, e)
	default:
		h.logger.Debug("ignoring unsupported event")
	}
}

// OnStart greets the user without touching the store.
func (h *Handler) OnStart(ctx context.Context, e Start) {
	h.reply(ctx, e.ChatID, GreetingText)
}

// OnText registers the text, verbatim, as the chat's city and replies with its weather.
// Text that names no known city gets the fallback reply.
func (h *Handler) OnText(ctx context.Context, e TextMessage) {
	loc := weather.CityLocation(e.Text)
	h.store.Set(e.ChatID, loc)
	h.replyWithWeather(ctx, e.ChatID, loc)
}

// OnLocation registers the shared coordinates and replies with their weather.
func (h *Handler) OnLocation(ctx context.Context, e LocationMessage) {
	loc := weather.CoordinatesLocation(e.Lat, e.Lon)
	h.store.Set(e.ChatID, loc)
	h.replyWithWeather(ctx, e.ChatID, loc)
}

func (h *Handler) replyWithWeather(ctx context.Context, chatID int64, loc weather.Location) {
	fetchCtx, cancel := context.WithTimeout(ctx, h.timeout)
	report, err := weather.Fetch(fetchCtx, h.provider, loc)
	cancel()

	if err != nil {
		h.logger.Warn("weather lookup failed",
			zap.Int64("chat_id", chatID),
			zap.String("location", loc.Key()),
			zap.Error(err),
		)
		h.reply(ctx, chatID, FallbackText)
		return
	}

	h.reply(ctx, chatID, report.String())
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	sendCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.sender.SendMessage(sendCtx, chatID, text); err != nil {
		h.logger.Error("failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
