package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/rolekeeper/internal/domain"
	"github.com/bft-labs/rolekeeper/internal/ports"
	"github.com/bft-labs/rolekeeper/pkg/log"
)

// ShutdownTimeout is the maximum time to wait for graceful shutdown.
const ShutdownTimeout = 30 * time.Second

// RunState is the run state of a rolekeeper instance.
type RunState int

const (
	StateStopped RunState = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s RunState) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// transitions lists the states reachable from each state.
var transitions = map[RunState][]RunState{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping, StateCrashed},
	StateRunning:  {StateStopping, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

func canTransition(from, to RunState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StateObserver is called after every successful state change.
type StateObserver interface {
	OnStateChange(previous, current RunState, reason string)
}

// Supervisor guards the run state of an instance and tracks its background
// goroutines.
type Supervisor struct {
	mu       sync.RWMutex
	state    RunState
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	logger   ports.Logger
	observer StateObserver
}

// NewSupervisor creates a supervisor in the Stopped state. observer may be
// nil.
func NewSupervisor(logger ports.Logger, observer StateObserver) *Supervisor {
	return &Supervisor{
		state:    StateStopped,
		logger:   log.OrNoop(logger),
		observer: observer,
	}
}

// State returns the current run state.
func (s *Supervisor) State() RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// TransitionTo moves to next. It fails with ErrNotRunning when leaving an
// idle state the wrong way and with ErrAlreadyRunning otherwise.
func (s *Supervisor) TransitionTo(next RunState, reason string) error {
	s.mu.Lock()
	prev := s.state
	if !canTransition(prev, next) {
		s.mu.Unlock()
		if prev == StateStopped || prev == StateCrashed {
			return domain.ErrNotRunning
		}
		return domain.ErrAlreadyRunning
	}
	s.state = next
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.OnStateChange(prev, next, reason)
	}
	s.logger.Info("state transition",
		log.Stringer("from", prev),
		log.Stringer("to", next),
		log.String("reason", reason),
	)
	return nil
}

// CanStart reports whether Start may be called.
func (s *Supervisor) CanStart() bool {
	return canTransition(s.State(), StateStarting)
}

// CanStop reports whether Stop may be called.
func (s *Supervisor) CanStop() bool {
	st := s.State()
	return st == StateRunning || st == StateStarting
}

// SetCancel stores the cancel function of the run context.
func (s *Supervisor) SetCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = cancel
}

// Cancel cancels the run context, if any.
func (s *Supervisor) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Go runs fn on a tracked goroutine.
func (s *Supervisor) Go(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// WaitWithTimeout waits for tracked goroutines to finish.
// Returns ErrShutdownTimeout if the timeout expires.
func (s *Supervisor) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		s.logger.Warn("shutdown timeout, forcing exit",
			log.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
