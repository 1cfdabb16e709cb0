package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// RefreshFunc runs one full scrape-and-aggregate cycle over the active hotels.
type RefreshFunc func() error

// Scheduler drives the periodic hotel refresh on a cron expression. A cycle
// that is still running when the next tick fires is not run twice; the tick
// is skipped.
type Scheduler struct {
	cron    *cron.Cron
	refresh RefreshFunc
	logger  arbor.ILogger

	mu        sync.Mutex
	running   bool
	isCycling bool
	lastRun   *time.Time
	lastError string
}

// NewScheduler creates a scheduler around the given refresh function
func NewScheduler(refresh RefreshFunc, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		refresh: refresh,
		logger:  logger,
	}
}

// Start registers the refresh cycle under cronExpr and begins ticking
func (s *Scheduler) Start(cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if cronExpr == "" {
		cronExpr = "0 3 * * *"
	}

	if _, err := s.cron.AddFunc(cronExpr, s.runCycle); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("cron_expr", cronExpr).
		Msg("Scheduler started")
	return nil
}

// Stop halts the cron ticker and waits for a running cycle to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.logger.Info().Msg("Scheduler stopped")
}

// IsRunning reports whether the ticker is active
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// TriggerNow runs the refresh cycle immediately in the background
func (s *Scheduler) TriggerNow() error {
	s.mu.Lock()
	if s.isCycling {
		s.mu.Unlock()
		return fmt.Errorf("refresh cycle already in progress")
	}
	s.mu.Unlock()

	s.logger.Info().Msg("Manual refresh trigger requested")
	go s.runCycle()
	return nil
}

// LastRun returns the completion time of the most recent cycle, or nil
func (s *Scheduler) LastRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// LastError returns the error text of the most recent cycle, or ""
func (s *Scheduler) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// runCycle executes one refresh with overlap guard and panic recovery
func (s *Scheduler) runCycle() {
	s.mu.Lock()
	if s.isCycling {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous refresh cycle still running, skipping tick")
		return
	}
	s.isCycling = true
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in refresh cycle")
			s.mu.Lock()
			s.lastError = fmt.Sprintf("panic: %v", r)
			s.mu.Unlock()
		}
		s.mu.Lock()
		s.isCycling = false
		s.mu.Unlock()
	}()

	start := time.Now()
	s.logger.Info().Msg("Refresh cycle started")

	err := s.refresh()

	completed := time.Now()
	s.mu.Lock()
	s.lastRun = &completed
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().
			Err(err).
			Dur("duration", time.Since(start)).
			Msg("Refresh cycle failed")
		return
	}
	s.logger.Info().
		Dur("duration", time.Since(start)).
		Msg("Refresh cycle completed")
}
