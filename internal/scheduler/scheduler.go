package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-notifier/internal/broadcast"
)

// Job is the entry point the scheduler fires on every occurrence.
type Job interface {
	RunDailyBroadcast(ctx context.Context) (broadcast.Summary, error)
}

// Scheduler fires the daily broadcast on a cron expression in a fixed timezone.
type Scheduler struct {
	scheduler *gocron.Scheduler
	job       *gocron.Job
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// New registers job under cronExpr (standard 5-field syntax) evaluated in loc.
// Overlapping runs are never started: if a run is still going, the next occurrence waits for it.
func New(cronExpr string, loc *time.Location, job Job, logger *zap.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	j, err := s.scheduler.Cron(cronExpr).SingletonMode().Do(func() {
		s.logger.Info("scheduler: running daily broadcast")
		summary, err := job.RunDailyBroadcast(s.ctx)
		if err != nil {
			s.logger.Warn("scheduler: daily broadcast not run", zap.Error(err))
			return
		}
		s.logger.Info("scheduler: daily broadcast finished",
			zap.String("run_id", summary.RunID.String()),
			zap.Int("delivered", summary.Delivered),
			zap.Int("failed", len(summary.Failures)),
		)
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("schedule %q: %w", cronExpr, err)
	}
	s.job = j

	return s, nil
}

// Start starts the underlying scheduler without blocking.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
	s.logger.Info("scheduler: started", zap.Time("next_run", s.NextRun()))
}

// NextRun reports when the broadcast fires next.
func (s *Scheduler) NextRun() time.Time {
	return s.job.NextRun()
}

// Stop cancels a run in progress and stops future occurrences.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		s.cancel()
		s.scheduler.Stop()
	})
}
