// Package gdelt polls the GDELT event stream on a fixed interval and
// flags structural anomalies in what it ingests.
package gdelt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Poller is the narrow slice of *Monitor the scheduler drives.
type Poller interface {
	Poll(ctx context.Context) (int, error)
}

// Scheduler runs Poller.Poll on a fixed cadence: an optional initial
// delay, then repeating at Interval until Stop is called. Grounded on
// the original gdelt_scheduler.py's asyncio task/stop-event shape,
// translated to a goroutine plus a stop channel; the asyncio
// wait_for(stop_event, timeout) idiom becomes a select between a
// time.Timer and the stop channel.
type Scheduler struct {
	monitor            Poller
	interval           time.Duration
	initialDelay       time.Duration
	logger             *slog.Logger

	mu           sync.Mutex
	running      bool
	lastPoll     time.Time
	nextPoll     time.Time
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// NewScheduler builds a Scheduler. If cronExpr is non-empty it is
// parsed with robfig/cron's standard 5-field Parser and the interval
// until its next occurrence (from time.Now()) is used as the poll
// period; otherwise interval is used directly.
func NewScheduler(monitor Poller, interval, initialDelay time.Duration, cronExpr string, logger *slog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("gdelt scheduler: interval must be positive")
	}
	if initialDelay < 0 {
		return nil, fmt.Errorf("gdelt scheduler: initial delay must be >= 0")
	}
	if cronExpr != "" {
		schedule, err := cron.ParseStandard(cronExpr)
		if err != nil {
			return nil, fmt.Errorf("gdelt scheduler: parse cron expression: %w", err)
		}
		now := time.Now()
		interval = schedule.Next(now).Sub(now)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{monitor: monitor, interval: interval, initialDelay: initialDelay, logger: logger.With("component", "gdelt_scheduler")}, nil
}

// Start spawns the background polling loop. It is safe to call only
// once per Scheduler; a second call while already running is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.nextPoll = time.Now().Add(s.initialDelay)
	s.mu.Unlock()

	go s.loop(ctx)
}

// Stop signals the loop to exit and waits for it to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	stopCh := s.stopCh
	done := s.doneCh
	s.mu.Unlock()

	close(stopCh)
	<-done
}

// IsRunning reports whether the polling loop is currently active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastPoll and NextPoll report the most recent and upcoming poll
// timestamps (zero value if none yet).
func (s *Scheduler) LastPoll() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPoll
}

func (s *Scheduler) NextPoll() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextPoll
}

func (s *Scheduler) loop(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.nextPoll = time.Time{}
		s.mu.Unlock()
		close(s.doneCh)
	}()

	if s.waitOrStopped(ctx, s.initialDelay) {
		return
	}

	for {
		s.poll(ctx)

		s.mu.Lock()
		s.nextPoll = time.Now().Add(s.interval)
		s.mu.Unlock()

		if s.waitOrStopped(ctx, s.interval) {
			return
		}
	}
}

// poll never lets a monitor panic or error escape the loop.
func (s *Scheduler) poll(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("gdelt poll panicked, will retry next interval", "panic", r)
		}
	}()

	s.mu.Lock()
	s.lastPoll = time.Now()
	s.mu.Unlock()

	n, err := s.monitor.Poll(ctx)
	if err != nil {
		s.logger.Error("gdelt poll failed, will retry next interval", "error", err)
		return
	}
	s.logger.Info("gdelt poll completed", "new_events", n)
}

func (s *Scheduler) waitOrStopped(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.stopCh:
		return true
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}
