// Package worker runs background jobs next to the API server.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wizone/it-support-api/internal/constants"
)

// AutoCompleter closes resolved tasks whose deferred close is due.
type AutoCompleter interface {
	SweepAutoComplete(ctx context.Context, limit int) (int, error)
}

// ClosedRecorder receives the number of tasks each sweep closed.
type ClosedRecorder interface {
	RecordAutoClosed(n int)
}

// Sweeper periodically applies due auto-completes.
type Sweeper struct {
	tasks    AutoCompleter
	locker   Locker
	metrics  ClosedRecorder
	logger   *zap.Logger
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper creates a Sweeper. A nil locker means a single replica.
func NewSweeper(tasks AutoCompleter, locker Locker, metrics ClosedRecorder, logger *zap.Logger, interval time.Duration) *Sweeper {
	if locker == nil {
		locker = LocalLocker{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = constants.DefaultSweepInterval
	}
	return &Sweeper{
		tasks:    tasks,
		locker:   locker,
		metrics:  metrics,
		logger:   logger,
		interval: interval,
	}
}

// Start runs one sweep immediately, then one per interval until Stop.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop(ctx)
	s.logger.Info("auto-complete sweeper started", zap.Duration("interval", s.interval))
}

// Stop cancels the loop and waits for an in-flight sweep.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("auto-complete sweeper stopped")
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep under the distributed lock and returns
// how many tasks it closed.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	release, ok, err := s.locker.Acquire(ctx, constants.SweepLockKey, s.interval)
	if err != nil {
		s.logger.Warn("failed to acquire sweep lock", zap.Error(err))
		return 0
	}
	if !ok {
		s.logger.Debug("sweep lock held elsewhere")
		return 0
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release sweep lock", zap.Error(err))
		}
	}()

	closed, err := s.tasks.SweepAutoComplete(ctx, constants.AutoCompleteSweepBatchSize)
	if err != nil {
		s.logger.Error("auto-complete sweep failed", zap.Error(err))
	}
	if closed > 0 {
		s.logger.Info("auto-complete sweep closed tasks", zap.Int("count", closed))
		if s.metrics != nil {
			s.metrics.RecordAutoClosed(closed)
		}
	}
	return closed
}
