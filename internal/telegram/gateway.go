package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/i474232898/weather-notifier/internal/chat"
)

const (
	pollTimeoutSeconds = 60
	laneBuffer         = 16
)

// BotAPI is the part of *tgbotapi.BotAPI the gateway uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// EventHandler consumes inbound chat events.
type EventHandler interface {
	Handle(ctx context.Context, ev chat.Event)
}

// Gateway binds the chat core to the Telegram Bot API.
type Gateway struct {
	bot    BotAPI
	logger *zap.Logger
}

// NewGateway wraps bot.
func NewGateway(bot BotAPI, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{bot: bot, logger: logger}
}

// SendMessage delivers plain text to chatID. Every failure wraps chat.ErrDelivery.
func (g *Gateway) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: chat %d: %v", chat.ErrDelivery, chatID, err)
	}

	msg := tgbotapi.NewMessage(chatID, text)

	done := make(chan error, 1)
	go func() {
		_, err := g.bot.Send(msg)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: chat %d: %v", chat.ErrDelivery, chatID, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: chat %d: %v", chat.ErrDelivery, chatID, ctx.Err())
	}
}

// ToEvent converts a Telegram update into a chat event. Updates that carry nothing the core
// understands (edits, callbacks, stickers, other commands) report false.
func ToEvent(update tgbotapi.Update) (chat.Event, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return nil, false
	}
	chatID := msg.Chat.ID

	switch {
	case msg.IsCommand():
		if msg.Command() == "start" {
			return chat.Start{ChatID: chatID}, true
		}
		return nil, false
	case msg.Location != nil:
		return chat.LocationMessage{ChatID: chatID, Lat: msg.Location.Latitude, Lon: msg.Location.Longitude}, true
	case msg.Text != "" && !strings.HasPrefix(msg.Text, "/"):
		return chat.TextMessage{ChatID: chatID, Text: msg.Text}, true
	default:
		return nil, false
	}
}

// Run long-polls updates and hands events to h until ctx is cancelled or the update channel closes.
//
// Events are spread over lanes goroutines by chat ID: one chat's events are handled in arrival
// order, different chats proceed in parallel. Events already queued are handled before Run returns.
func (g *Gateway) Run(ctx context.Context, h EventHandler, lanes int) error {
	if lanes <= 0 {
		lanes = 1
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := g.bot.GetUpdatesChan(u)

	// In-flight replies outlive shutdown; the handler bounds them with its own timeouts.
	handleCtx := context.WithoutCancel(ctx)

	queues := make([]chan chat.Event, lanes)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan chat.Event, laneBuffer)
		wg.Add(1)
		go func(q <-chan chat.Event) {
			defer wg.Done()
			for ev := range q {
				h.Handle(handleCtx, ev)
			}
		}(queues[i])
	}
	defer func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
		g.logger.Info("telegram: gateway stopped")
	}()

	g.logger.Info("telegram: receiving updates", zap.Int("lanes", lanes))

	for {
		select {
		case <-ctx.Done():
			g.bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			ev, ok := ToEvent(update)
			if !ok {
				continue
			}
			select {
			case queues[laneFor(ev.Chat(), lanes)] <- ev:
			case <-ctx.Done():
				g.bot.StopReceivingUpdates()
				return nil
			}
		}
	}
}

func laneFor(chatID int64, lanes int) int {
	return int(uint64(chatID) % uint64(lanes))
}
