package pricing

import (
	"sync"
	"time"
)

// Scheduler collapses bursts of selection changes into one deferred
// callback. Each Schedule cancels any pending callback and arms a new
// timer; only the last request within a quiescence window fires.
type Scheduler struct {
	mu     sync.Mutex
	window time.Duration
	timer  *time.Timer
	closed bool
}

// NewScheduler builds a scheduler with the given quiescence window.
func NewScheduler(window time.Duration) *Scheduler {
	return &Scheduler{window: window}
}

// Schedule arms the callback to run after the quiescence window,
// cancelling any previously pending one. Returns true when a pending
// callback was superseded.
func (s *Scheduler) Schedule(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	superseded := false
	if s.timer != nil {
		// Stop reports false once the timer has already fired, so a
		// completed refresh does not count as superseded.
		superseded = s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.window, fn)
	return superseded
}

// Cancel stops any pending callback.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Close cancels pending work and rejects further scheduling.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.closed = true
}
