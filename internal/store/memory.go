package store

import (
	"sort"
	"sync"

	"github.com/i474232898/weather-notifier/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory mapping from chat ID to the chat's last known location.
// Entries live for the process lifetime; there is no deletion.
type MemoryStore struct {
	mu sync.RWMutex

	// key: chat ID, value: last location written for that chat
	data map[int64]weather.Location
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[int64]weather.Location),
	}
}

// Set replaces any location stored for chatID.
func (s *MemoryStore) Set(chatID int64, loc weather.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[chatID] = loc
}

// Get returns the location stored for chatID, if any.
func (s *MemoryStore) Get(chatID int64) (weather.Location, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.data[chatID]
	return loc, ok
}

// Snapshot returns a point-in-time copy of every entry ordered by chat ID.
// The returned slice is owned by the caller.
func (s *MemoryStore) Snapshot() []weather.Subscription {
	s.mu.RLock()
	result := make([]weather.Subscription, 0, len(s.data))
	for chatID, loc := range s.data {
		result = append(result, weather.Subscription{ChatID: chatID, Location: loc})
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].ChatID < result[j].ChatID
	})
	return result
}

// Len returns the number of registered chats.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data)
}
