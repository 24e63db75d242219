package application

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"gridwatch/internal/observability/metrics"
)

// DefaultEvaluationInterval is how often the scheduler starts a batch
// evaluation pass.
const DefaultEvaluationInterval = 2 * time.Minute

// EvaluationRunner runs one batch pass and reports how many alarms it
// created.
type EvaluationRunner interface {
	EvaluateAllAssets(ctx context.Context) (int, error)
}

// Scheduler triggers evaluation passes on a fixed interval. A tick that
// arrives while the previous pass is still running is coalesced, so
// passes never overlap.
type Scheduler struct {
	runner   EvaluationRunner
	interval time.Duration
	logger   *log.Logger
	running  atomic.Bool
}

// NewScheduler constructs a Scheduler.
func NewScheduler(runner EvaluationRunner, interval time.Duration, logger *log.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultEvaluationInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{runner: runner, interval: interval, logger: logger}
}

// Start begins the scheduler loop and blocks until the context ends.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.runner == nil {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Printf("evaluation scheduler started: interval=%s", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Printf("evaluation scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick launches one pass unless the previous pass is still in flight.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		metrics.IncTickCoalesced()
		s.logger.Printf("evaluation pass still running, tick coalesced")
		return
	}
	go func() {
		defer s.running.Store(false)
		created, err := s.runner.EvaluateAllAssets(ctx)
		if err != nil {
			s.logger.Printf("evaluation pass error: err=%v", err)
			return
		}
		if created > 0 {
			s.logger.Printf("evaluation pass raised alarms: count=%d", created)
		}
	}()
}
