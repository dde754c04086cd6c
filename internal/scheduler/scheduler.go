// Package scheduler runs the per-destination flush timer.
//
// A Scheduler owns at most one pending timer. Replacing it is a
// swap-and-cancel under the scheduler lock, and every armed timer carries a
// generation number so a timer that fires after being replaced does nothing.
package scheduler

import (
	"sync"
	"time"

	"github.com/bft-labs/batchq/internal/domain"
	"github.com/bft-labs/batchq/internal/policy"
	"github.com/bft-labs/batchq/internal/ports"
)

// State represents the state of a flush scheduler.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateFiring
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateArmed:
		return "Armed"
	case StateFiring:
		return "Firing"
	default:
		return "Unknown"
	}
}

// Target is the buffer side of a scheduler.
type Target interface {
	// FlushScheduled drains and dispatches whatever is waiting.
	FlushScheduled()

	// Len returns the number of entries still waiting.
	Len() int
}

// Scheduler arms a timer for its target using an interval policy.
type Scheduler struct {
	mu       sync.Mutex
	state    State
	target   Target
	interval policy.IntervalPolicy
	rate     *policy.RateEstimator
	logger   ports.Logger

	timer  *time.Timer
	gen    uint64
	rearm  bool
	closed bool
}

// New creates an idle scheduler for target.
func New(target Target, interval policy.IntervalPolicy, logger ports.Logger) *Scheduler {
	if logger == nil {
		logger = ports.NoopLogger{}
	}
	if interval == nil {
		interval = policy.FixedInterval(domain.DefaultMinReceiveWaitTime)
	}
	return &Scheduler{
		state:    StateIdle,
		target:   target,
		interval: interval,
		rate:     policy.NewRateEstimator(time.Second, 0.5),
		logger:   logger,
	}
}

// State returns the current scheduler state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Arm starts the timer if the scheduler is idle. While a fire is in
// progress it records that the timer must be restarted afterwards.
func (s *Scheduler) Arm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
	case s.state == StateIdle:
		s.startLocked()
	case s.state == StateFiring:
		s.rearm = true
	}
}

// Reset is the post-flush transition: it replaces any pending timer with a
// fresh one when the target still has entries, and goes idle otherwise. The
// backlog is read under the scheduler lock, so an insert that arms
// concurrently is never left without a timer.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	pending := s.target.Len()
	if s.state == StateFiring {
		if pending > 0 {
			s.rearm = true
		}
		return
	}
	s.stopLocked()
	if pending > 0 {
		s.startLocked()
	} else {
		s.state = StateIdle
	}
}

// SetInterval replaces the interval policy. An armed timer is restarted
// with the new policy.
func (s *Scheduler) SetInterval(p policy.IntervalPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.interval = p
	if s.state == StateArmed && !s.closed {
		s.stopLocked()
		s.startLocked()
	}
}

// Observe records n arrivals for the adaptive interval policy.
func (s *Scheduler) Observe(n int) {
	s.rate.Observe(n)
}

// Rate returns the observed arrival rate per second.
func (s *Scheduler) Rate() float64 {
	return s.rate.Rate()
}

// Close stops the scheduler for good. Later Arm calls and fires are no-ops.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.stopLocked()
	s.rearm = false
	s.state = StateIdle
}

// startLocked must be called with mu held.
func (s *Scheduler) startLocked() {
	s.gen++
	gen := s.gen
	d := s.interval.Next(s.rate.Rate())
	s.timer = time.AfterFunc(d, func() { s.fire(gen) })
	s.state = StateArmed
}

// stopLocked must be called with mu held.
func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen || s.state != StateArmed {
		s.mu.Unlock()
		return
	}
	s.state = StateFiring
	s.timer = nil
	s.rearm = false
	s.mu.Unlock()

	defer s.finish()
	s.flush()
}

func (s *Scheduler) flush() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled flush panicked", ports.Any("panic", r))
		}
	}()
	s.target.FlushScheduled()
}

// finish leaves the firing state, re-arming when work is still waiting.
func (s *Scheduler) finish() {
	pending := s.target.Len()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.state != StateFiring {
		return
	}
	if pending > 0 || s.rearm {
		s.startLocked()
	} else {
		s.state = StateIdle
	}
	s.rearm = false
}
