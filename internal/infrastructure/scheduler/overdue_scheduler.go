package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reclassifier moves open obligations whose due date has passed to the
// overdue status, across every tenant, returning how many changed.
type Reclassifier interface {
	ReclassifyAll(ctx context.Context) (int, error)
}

// OverdueConfig configures the overdue sweep
type OverdueConfig struct {
	Enabled  bool
	Interval time.Duration
	// RunTimeout bounds a single sweep
	RunTimeout time.Duration
	// RunOnStart performs a sweep right after Start instead of waiting a full interval
	RunOnStart bool
}

// DefaultOverdueConfig returns an hourly sweep that also runs at start-up
func DefaultOverdueConfig() OverdueConfig {
	return OverdueConfig{
		Enabled:    true,
		Interval:   time.Hour,
		RunTimeout: 5 * time.Minute,
		RunOnStart: true,
	}
}

// RunResult describes the last completed sweep
type RunResult struct {
	StartedAt    time.Time
	Duration     time.Duration
	Reclassified int
	Err          error
}

// OverdueScheduler periodically persists the derived overdue status so that
// stored rows agree with what reads compute.
type OverdueScheduler struct {
	target Reclassifier
	config OverdueConfig
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	last    *RunResult
}

// NewOverdueScheduler creates a scheduler
func NewOverdueScheduler(target Reclassifier, config OverdueConfig, logger *zap.Logger) (*OverdueScheduler, error) {
	if config.Enabled && config.Interval <= 0 {
		return nil, fmt.Errorf("%w: overdue interval must be positive", ErrInvalidConfig)
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = DefaultOverdueConfig().RunTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueScheduler{
		target: target,
		config: config,
		logger: logger.Named("overdue-scheduler"),
	}, nil
}

// Start launches the sweep loop. Calling Start twice or on a disabled
// scheduler is a no-op.
func (s *OverdueScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if !s.config.Enabled {
		s.logger.Info("overdue scheduler disabled")
		return nil
	}
	s.running = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("overdue scheduler started", zap.Duration("interval", s.config.Interval))
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep, bounded by ctx
func (s *OverdueScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("overdue scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("overdue scheduler stop timed out")
		return ctx.Err()
	}
}

// RunOnce performs a single sweep synchronously
func (s *OverdueScheduler) RunOnce(ctx context.Context) RunResult {
	ctx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	started := time.Now()
	n, err := s.target.ReclassifyAll(ctx)
	res := RunResult{
		StartedAt:    started,
		Duration:     time.Since(started),
		Reclassified: n,
		Err:          err,
	}

	if err != nil {
		s.logger.Error("overdue sweep finished with errors",
			zap.Int("reclassified", n),
			zap.Duration("duration", res.Duration),
			zap.Error(err),
		)
	} else {
		s.logger.Info("overdue sweep finished",
			zap.Int("reclassified", n),
			zap.Duration("duration", res.Duration),
		)
	}

	s.mu.Lock()
	s.last = &res
	s.mu.Unlock()
	return res
}

// LastRun returns the most recent sweep result, or nil before the first one
func (s *OverdueScheduler) LastRun() *RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	r := *s.last
	return &r
}

// IsRunning reports whether the loop is active
func (s *OverdueScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *OverdueScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.RunOnce(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}
