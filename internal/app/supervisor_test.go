package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/rolekeeper/internal/domain"
	"github.com/bft-labs/rolekeeper/pkg/log"
)

// recordingObserver tracks state change events for testing.
type recordingObserver struct {
	mu     sync.Mutex
	events []stateChangeEvent
}

type stateChangeEvent struct {
	previous RunState
	current  RunState
	reason   string
}

func (r *recordingObserver) OnStateChange(previous, current RunState, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, stateChangeEvent{previous, current, reason})
}

func (r *recordingObserver) Events() []stateChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stateChangeEvent{}, r.events...)
}

func TestRunState_String(t *testing.T) {
	tests := []struct {
		state RunState
		want  string
	}{
		{StateStopped, "Stopped"},
		{StateStarting, "Starting"},
		{StateRunning, "Running"},
		{StateStopping, "Stopping"},
		{StateCrashed, "Crashed"},
		{RunState(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("RunState(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestSupervisor_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    RunState
		to      RunState
		wantErr error
	}{
		{"stopped to starting", StateStopped, StateStarting, nil},
		{"starting to running", StateStarting, StateRunning, nil},
		{"starting to stopping", StateStarting, StateStopping, nil},
		{"running to stopping", StateRunning, StateStopping, nil},
		{"running to crashed", StateRunning, StateCrashed, nil},
		{"stopping to stopped", StateStopping, StateStopped, nil},
		{"crashed to starting", StateCrashed, StateStarting, nil},
		{"stopped to running", StateStopped, StateRunning, domain.ErrNotRunning},
		{"stopped to stopping", StateStopped, StateStopping, domain.ErrNotRunning},
		{"crashed to stopped", StateCrashed, StateStopped, domain.ErrNotRunning},
		{"running to starting", StateRunning, StateStarting, domain.ErrAlreadyRunning},
		{"stopping to running", StateStopping, StateRunning, domain.ErrAlreadyRunning},
		{"starting to stopped", StateStarting, StateStopped, domain.ErrAlreadyRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSupervisor(nil, nil)
			s.state = tt.from

			err := s.TransitionTo(tt.to, "test")
			if err != tt.wantErr {
				t.Fatalf("TransitionTo() error = %v, want %v", err, tt.wantErr)
			}
			want := tt.to
			if err != nil {
				want = tt.from
			}
			if s.State() != want {
				t.Errorf("state = %v, want %v", s.State(), want)
			}
		})
	}
}

func TestSupervisor_NotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	s := NewSupervisor(log.NewNoopLogger(), obs)

	_ = s.TransitionTo(StateStarting, "start")
	_ = s.TransitionTo(StateRunning, "started")
	_ = s.TransitionTo(StateStopped, "invalid")

	events := obs.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1].previous != StateStarting || events[1].current != StateRunning || events[1].reason != "started" {
		t.Errorf("event 1 = %+v", events[1])
	}
}

func TestSupervisor_CanStartCanStop(t *testing.T) {
	tests := []struct {
		state             RunState
		canStart, canStop bool
	}{
		{StateStopped, true, false},
		{StateStarting, false, true},
		{StateRunning, false, true},
		{StateStopping, false, false},
		{StateCrashed, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			s := NewSupervisor(nil, nil)
			s.state = tt.state
			if got := s.CanStart(); got != tt.canStart {
				t.Errorf("CanStart() = %v, want %v", got, tt.canStart)
			}
			if got := s.CanStop(); got != tt.canStop {
				t.Errorf("CanStop() = %v, want %v", got, tt.canStop)
			}
		})
	}
}

func TestSupervisor_Cancel(t *testing.T) {
	s := NewSupervisor(nil, nil)
	s.Cancel()

	ctx, cancel := context.WithCancel(context.Background())
	s.SetCancel(cancel)
	s.Cancel()

	select {
	case <-ctx.Done():
	default:
		t.Error("context should be canceled after Cancel()")
	}
}

func TestSupervisor_WaitWithTimeout(t *testing.T) {
	s := NewSupervisor(nil, nil)
	s.Go(func() { time.Sleep(10 * time.Millisecond) })

	if err := s.WaitWithTimeout(time.Second); err != nil {
		t.Errorf("WaitWithTimeout() = %v, want nil", err)
	}

	release := make(chan struct{})
	s.Go(func() { <-release })
	if err := s.WaitWithTimeout(10 * time.Millisecond); err != domain.ErrShutdownTimeout {
		t.Errorf("WaitWithTimeout() = %v, want ErrShutdownTimeout", err)
	}
	close(release)
}
