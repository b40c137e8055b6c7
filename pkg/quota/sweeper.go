package quota

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically removes expired entries from a Cache.
type Sweeper struct {
	cache    *Cache
	schedule string
	cron     *cron.Cron
	metrics  *Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	entry   cron.EntryID
}

// NewSweeper creates a sweeper for cache on the given cron schedule.
// Standard five-field expressions and descriptors such as "@every 5m" are
// accepted.
func NewSweeper(cache *Cache, schedule string, metrics *Metrics, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default().With("component", "quota.sweeper")
	}
	return &Sweeper{
		cache:    cache,
		schedule: schedule,
		cron:     cron.New(),
		metrics:  metrics,
		logger:   logger,
	}
}

// Start schedules the sweep and stops it when ctx is done. An empty schedule
// leaves the sweeper idle.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("sweep schedule not configured, skipping sweeper")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}
	if s.entry != 0 {
		s.cron.Remove(s.entry)
	}
	id, err := s.cron.AddFunc(s.schedule, s.RunOnce)
	if err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}
	s.entry = id

	s.cron.Start()
	s.running = true
	s.logger.Info("quota cache sweeper started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunOnce sweeps the cache immediately.
func (s *Sweeper) RunOnce() {
	removed := s.cache.Sweep()
	s.metrics.recordSwept(removed)
	if removed > 0 {
		s.logger.Debug("swept expired quota cache entries", "removed", removed)
	}
}

// Stop stops the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("quota cache sweeper stopped")
}

// IsRunning reports whether the sweep is scheduled.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled sweep, or nil when idle.
func (s *Sweeper) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if !s.running || len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
