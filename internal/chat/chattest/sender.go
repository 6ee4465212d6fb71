// Package chattest provides a recording chat.Sender for tests.
package chattest

import (
	"context"
	"fmt"
	"sync"

	"github.com/i474232898/weather-notifier/internal/chat"
)

// Message is one delivered message.
type Message struct {
	ChatID int64
	Text   string
}

// Sender records every delivered message. Chats listed in Unreachable fail with chat.ErrDelivery.
type Sender struct {
	mu sync.Mutex

	Unreachable map[int64]bool

	sent     []Message
	attempts map[int64]int
}

// NewSender returns a Sender that delivers to every chat.
func NewSender() *Sender {
	return &Sender{
		Unreachable: make(map[int64]bool),
		attempts:    make(map[int64]int),
	}
}

func (s *Sender) SendMessage(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts[chatID]++
	if s.Unreachable[chatID] {
		return fmt.Errorf("%w: chat %d unreachable", chat.ErrDelivery, chatID)
	}
	s.sent = append(s.sent, Message{ChatID: chatID, Text: text})
	return nil
}

// Sent returns a copy of the delivered messages in delivery order.
func (s *Sender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Message(nil), s.sent...)
}

// Attempts returns how many times delivery to chatID was attempted.
func (s *Sender) Attempts(chatID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.attempts[chatID]
}
