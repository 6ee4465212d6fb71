// Package broadcast re-sends the current weather to every registered chat.
//
// A run takes one snapshot of the location store and makes at most one delivery attempt per entry.
// Failures are recorded per chat and never stop the run.
package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weather-notifier/internal/chat"
	"github.com/i474232898/weather-notifier/internal/weather"
)

// RetryPolicy controls re-fetching a report that failed with weather.ErrUnavailable.
// Deliveries are never retried.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// Config holds broadcast tuning.
type Config struct {
	// Workers is the number of entries processed in parallel; 1 means strictly sequential.
	Workers      int
	FetchTimeout time.Duration
	SendTimeout  time.Duration
	Retry        RetryPolicy
}

// DefaultConfig returns a sequential, no-retry configuration.
func DefaultConfig() Config {
	return Config{
		Workers:      1,
		FetchTimeout: 10 * time.Second,
		SendTimeout:  10 * time.Second,
	}
}

// Stage names where an entry failed.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageDeliver Stage = "deliver"
	StageSkipped Stage = "skipped"
)

// Failure describes one entry that did not receive its message.
type Failure struct {
	ChatID  int64  `json:"chatId"`
	Stage   Stage  `json:"stage"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

// ErrRunInProgress is returned when a run is requested while another is still going.
var ErrRunInProgress = errors.New("broadcast already in progress")

// Summary is the outcome of one run.
type Summary struct {
	RunID      uuid.UUID `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Total      int       `json:"total"`
	Delivered  int       `json:"delivered"`
	Failures   []Failure `json:"failures"`
}

// Broadcaster sends the daily weather to every chat in the store.
type Broadcaster struct {
	store    weather.Store
	provider weather.Provider
	sender   chat.Sender
	logger   *zap.Logger
	cfg      Config

	running sync.Mutex
}

// New creates a Broadcaster. Zero or negative config values fall back to DefaultConfig.
func New(store weather.Store, provider weather.Provider, sender chat.Sender, logger *zap.Logger, cfg Config) *Broadcaster {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = def.SendTimeout
	}
	if cfg.Retry.MaxRetries < 0 {
		cfg.Retry.MaxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		store:    store,
		provider: provider,
		sender:   sender,
		logger:   logger,
		cfg:      cfg,
	}
}

// RunDailyBroadcast performs one broadcast run over a fresh snapshot of the store.
// It always runs to completion; per-entry failures are logged and returned in the Summary.
// Only one run proceeds at a time: an overlapping call returns ErrRunInProgress and sends nothing.
func (b *Broadcaster) RunDailyBroadcast(ctx context.Context) (Summary, error) {
	if !b.running.TryLock() {
		b.logger.Warn("broadcast skipped, another run is in progress")
		return Summary{}, ErrRunInProgress
	}
	defer b.running.Unlock()

	summary := Summary{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
	}
	log := b.logger.With(zap.String("run_id", summary.RunID.String()))

	entries := b.store.Snapshot()
	summary.Total = len(entries)
	log.Info("broadcast started", zap.Int("entries", len(entries)), zap.Int("workers", b.cfg.Workers))

	// Each worker writes only its own slot, so results needs no lock.
	results := make([]*Failure, len(entries))
	jobs := make(chan int)

	workers := min(b.cfg.Workers, len(entries))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = b.deliver(ctx, log, entries[idx])
			}
		}()
	}
	for i := range entries {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, f := range results {
		if f == nil {
			summary.Delivered++
			continue
		}
		summary.Failures = append(summary.Failures, *f)
	}

	summary.FinishedAt = time.Now().UTC()
	log.Info("broadcast completed",
		zap.Int("delivered", summary.Delivered),
		zap.Int("failed", len(summary.Failures)),
		zap.Duration("took", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, nil
}

// deliver fetches and sends one entry. It returns nil on success.
func (b *Broadcaster) deliver(ctx context.Context, log *zap.Logger, sub weather.Subscription) *Failure {
	fields := []zap.Field{zap.Int64("chat_id", sub.ChatID), zap.String("location", sub.Location.Key())}

	if err := ctx.Err(); err != nil {
		log.Warn("broadcast entry skipped", append(fields, zap.Error(err))...)
		return newFailure(sub.ChatID, StageSkipped, err)
	}

	report, err := b.fetch(ctx, sub.Location)
	if err != nil {
		log.Error("broadcast fetch failed", append(fields, zap.Error(err))...)
		return newFailure(sub.ChatID, StageFetch, err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, b.cfg.SendTimeout)
	defer cancel()

	if err := b.sender.SendMessage(sendCtx, sub.ChatID, report.String()); err != nil {
		log.Error("broadcast delivery failed", append(fields, zap.Error(err))...)
		return newFailure(sub.ChatID, StageDeliver, err)
	}

	log.Debug("broadcast delivered", fields...)
	return nil
}

func (b *Broadcaster) fetch(ctx context.Context, loc weather.Location) (weather.Report, error) {
	for attempt := 0; ; attempt++ {
		fetchCtx, cancel := context.WithTimeout(ctx, b.cfg.FetchTimeout)
		report, err := weather.Fetch(fetchCtx, b.provider, loc)
		cancel()

		if err == nil || attempt >= b.cfg.Retry.MaxRetries || !errors.Is(err, weather.ErrUnavailable) {
			return report, err
		}

		timer := time.NewTimer(b.cfg.Retry.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return weather.Report{}, err
		case <-timer.C:
		}
	}
}

func newFailure(chatID int64, stage Stage, err error) *Failure {
	return &Failure{ChatID: chatID, Stage: stage, Message: err.Error(), Err: err}
}
