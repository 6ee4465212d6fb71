package chat_test

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/i474232898/weather-notifier/internal/chat"
	"github.com/i474232898/weather-notifier/internal/chat/chattest"
	"github.com/i474232898/weather-notifier/internal/store"
	"github.com/i474232898/weather-notifier/internal/weather"
	"github.com/i474232898/weather-notifier/internal/weather/weathertest"
)

type fixture struct {
	store    *store.MemoryStore
	provider *weathertest.Provider
	sender   *chattest.Sender
	handler  *chat.Handler
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)
	f := &fixture{
		store:    store.NewMemoryStore(),
		provider: weathertest.NewProvider(),
		sender:   chattest.NewSender(),
		logs:     logs,
	}
	f.handler = chat.NewHandler(f.store, f.provider, f.sender, zap.New(core), 0)
	return f
}

func (f *fixture) onlyReply(t *testing.T, chatID int64) string {
	t.Helper()

	sent := f.sender.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one reply, got %d: %+v", len(sent), sent)
	}
	if sent[0].ChatID != chatID {
		t.Fatalf("expected reply to chat %d, got %d", chatID, sent[0].ChatID)
	}
	return sent[0].Text
}

func TestStartGreetsWithoutStoring(t *testing.T) {
	f := newFixture(t)

	f.handler.Handle(context.Background(), chat.Start{ChatID: 1})

	if got := f.onlyReply(t, 1); got != chat.GreetingText {
		t.Errorf("expected greeting, got %q", got)
	}
	if f.store.Len() != 0 {
		t.Errorf("start must not register the chat, store has %d entries", f.store.Len())
	}
}

func TestTextMessageStoresCityAndReplies(t *testing.T) {
	f := newFixture(t)
	f.provider.Cities["London"] = weather.Report{LocationName: "London", Description: "clear sky", TemperatureC: 15.5}

	f.handler.Handle(context.Background(), chat.TextMessage{ChatID: 5, Text: "London"})

	want := "Weather in London: clear sky, temperature: 15.5°C"
	if got := f.onlyReply(t, 5); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	loc, ok := f.store.Get(5)
	if !ok || loc != weather.CityLocation("London") {
		t.Errorf("expected stored city London, got %+v (ok=%v)", loc, ok)
	}
}

func TestLocationMessageStoresCoordinatesAndReplies(t *testing.T) {
	f := newFixture(t)
	f.provider.Points[[2]float64{52.52, 13.405}] = weather.Report{LocationName: "Berlin", Description: "overcast clouds", TemperatureC: 7}

	f.handler.Handle(context.Background(), chat.LocationMessage{ChatID: 9, Lat: 52.52, Lon: 13.405})

	want := "Weather in Berlin: overcast clouds, temperature: 7°C"
	if got := f.onlyReply(t, 9); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	loc, ok := f.store.Get(9)
	if !ok || loc != weather.CoordinatesLocation(52.52, 13.405) {
		t.Errorf("expected stored coordinates, got %+v (ok=%v)", loc, ok)
	}
}

func TestProviderFailureRepliesWithFallback(t *testing.T) {
	tests := []struct {
		name string
		err  error
		ev   chat.Event
	}{
		{
			name: "malformed coordinates response",
			err:  fmt.Errorf("%w: missing main.temp", weather.ErrMalformedResponse),
			ev:   chat.LocationMessage{ChatID: 3, Lat: 1, Lon: 2},
		},
		{
			name: "unavailable city lookup",
			err:  fmt.Errorf("%w: status 404", weather.ErrUnavailable),
			ev:   chat.TextMessage{ChatID: 3, Text: "Atlantis"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.provider.Errors[weather.CoordinatesLocation(1, 2).Key()] = tt.err
			f.provider.Errors[weather.CityLocation("Atlantis").Key()] = tt.err

			f.handler.Handle(context.Background(), tt.ev)

			if got := f.onlyReply(t, 3); got != chat.FallbackText {
				t.Errorf("expected fallback reply, got %q", got)
			}
			if _, ok := f.store.Get(3); !ok {
				t.Error("location must be stored even when the lookup fails")
			}
			if n := f.logs.FilterMessage("weather lookup failed").Len(); n != 1 {
				t.Errorf("expected one lookup failure log, got %d", n)
			}
		})
	}
}

func TestLocationThenTextSwitchesToCity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.handler.Handle(ctx, chat.LocationMessage{ChatID: 4, Lat: 10, Lon: 20})
	f.handler.Handle(ctx, chat.TextMessage{ChatID: 4, Text: "Madrid"})

	loc, _ := f.store.Get(4)
	if loc.Kind != weather.KindCity || loc.City != "Madrid" {
		t.Errorf("expected city Madrid after text message, got %+v", loc)
	}
}

func TestBlankTextGetsFallbackReply(t *testing.T) {
	for _, text := range []string{"", "   "} {
		t.Run(fmt.Sprintf("%q", text), func(t *testing.T) {
			f := newFixture(t)

			f.handler.Handle(context.Background(), chat.TextMessage{ChatID: 8, Text: text})

			if got := f.onlyReply(t, 8); got != chat.FallbackText {
				t.Errorf("expected fallback, got %q", got)
			}
			loc, ok := f.store.Get(8)
			if !ok || loc != weather.CityLocation(text) {
				t.Errorf("expected stored city %q, got %+v (ok=%v)", text, loc, ok)
			}
		})
	}
}

func TestTextIsStoredVerbatim(t *testing.T) {
	f := newFixture(t)
	f.provider.Cities["  New York "] = weather.Report{LocationName: "New York", Description: "mist", TemperatureC: 12}

	f.handler.Handle(context.Background(), chat.TextMessage{ChatID: 6, Text: "  New York "})

	if got := f.onlyReply(t, 6); got != "Weather in New York: mist, temperature: 12°C" {
		t.Errorf("unexpected reply %q", got)
	}
	if loc, _ := f.store.Get(6); loc.City != "  New York " {
		t.Errorf("expected untrimmed city, got %q", loc.City)
	}
}

func TestUnknownEventIsIgnored(t *testing.T) {
	f := newFixture(t)

	f.handler.Handle(context.Background(), nil)

	if len(f.sender.Sent()) != 0 || f.store.Len() != 0 {
		t.Error("unknown events must be a no-op")
	}
}

func TestReplyFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	f.sender.Unreachable[6] = true

	f.handler.Handle(context.Background(), chat.Start{ChatID: 6})

	if f.sender.Attempts(6) != 1 {
		t.Errorf("expected one delivery attempt, got %d", f.sender.Attempts(6))
	}
	if n := f.logs.FilterMessage("failed to send reply").Len(); n != 1 {
		t.Errorf("expected one send failure log, got %d", n)
	}
}
