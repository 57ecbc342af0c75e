package refresh

import (
	"context"
	"log"
	"sync"
	"time"
)

// State is the scheduler's position in its idle → waiting → refreshing cycle.
type State string

const (
	StateIdle       State = "idle"
	StateWaiting    State = "waiting"
	StateRefreshing State = "refreshing"
)

// Scheduler drives the refresh cadence for one client-facing view. A timer
// tick or an explicit manual trigger fires the refresh function; a refresh
// already in flight absorbs both, so two refreshes never overlap for the same
// view. A failed refresh resets the timer without an immediate retry, leaving
// the last-known data visible.
type Scheduler struct {
	interval  time.Duration
	refreshFn func(ctx context.Context) error

	manual   chan struct{}
	stopChan chan struct{}

	mu          sync.Mutex
	state       State
	lastRefresh time.Time
	running     bool
}

// NewScheduler creates a scheduler that calls refreshFn at the given
// interval once started.
func NewScheduler(interval time.Duration, refreshFn func(ctx context.Context) error) *Scheduler {
	return &Scheduler{
		interval:  interval,
		refreshFn: refreshFn,
		manual:    make(chan struct{}, 1),
		stopChan:  make(chan struct{}),
		state:     StateIdle,
	}
}

// Start activates the view: the scheduler enters waiting immediately and
// fires on cadence until Stop or ctx cancellation.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.state = StateWaiting
	s.mu.Unlock()

	go s.loop(ctx)
}

// Stop deactivates the view. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	s.state = StateIdle
	close(s.stopChan)
}

// Trigger requests an immediate refresh. While a refresh is in flight the
// trigger collapses into it: the caller observes that refresh's resolution
// instead of spawning a duplicate.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	inFlight := s.state == StateRefreshing
	s.mu.Unlock()

	if inFlight {
		return
	}
	select {
	case s.manual <- struct{}{}:
	default:
		// A trigger is already pending; it covers this one too.
	}
}

// State returns the current cycle position.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastRefresh returns when the last refresh attempt completed.
func (s *Scheduler) LastRefresh() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefresh
}

// loop is the single goroutine that owns the timer, so a due tick can never
// race an in-flight refresh.
func (s *Scheduler) loop(ctx context.Context) {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return
		case <-s.stopChan:
			return
		case <-timer.C:
			s.runRefresh(ctx)
			s.drainManual()
			timer.Reset(s.interval)
		case <-s.manual:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			s.runRefresh(ctx)
			timer.Reset(s.interval)
		}
	}
}

func (s *Scheduler) runRefresh(ctx context.Context) {
	s.mu.Lock()
	s.state = StateRefreshing
	s.mu.Unlock()

	err := s.refreshFn(ctx)
	if err != nil {
		log.Printf("View refresh failed: %v", err)
	}

	s.mu.Lock()
	// Success or failure, the cycle restarts; a failed refresh waits a
	// full interval rather than hammering a degraded upstream.
	s.lastRefresh = time.Now()
	if s.running {
		s.state = StateWaiting
	}
	s.mu.Unlock()
}

// drainManual discards a trigger that arrived while a timer refresh ran; that
// refresh already satisfied it.
func (s *Scheduler) drainManual() {
	select {
	case <-s.manual:
	default:
	}
}
