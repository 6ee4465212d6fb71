package chat

import (
	"context"
	"errors"
)

// ErrDelivery is returned by a Sender when a message could not be delivered to a chat.
var ErrDelivery = errors.New("message delivery failed")

// Sender delivers outbound text to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Event is an inbound gateway event. The set of kinds is closed; see Start, TextMessage, LocationMessage.
type Event interface {
	Chat() int64
	event()
}

// Start is sent when a user opens the conversation (/start).
type Start struct {
	ChatID int64
}

// TextMessage carries free text, treated as a city name.
type TextMessage struct {
	ChatID int64
	Text   string
}

// LocationMessage carries a shared location; both coordinates always arrive together.
type LocationMessage struct {
	ChatID int64
	Lat    float64
	Lon    float64
}

func (e Start) Chat() int64           { return e.ChatID }
func (e TextMessage) Chat() int64     { return e.ChatID }
func (e LocationMessage) Chat() int64 { return e.ChatID }

func (Start) event()           {}
func (TextMessage) event()     {}
func (LocationMessage) event() {}
