package rolekeeper

import (
	"github.com/bft-labs/rolekeeper/internal/app"
	"github.com/bft-labs/rolekeeper/internal/domain"
)

// State is the run state of a Rolekeeper instance.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	return convertState(s).String()
}

// StateChangeEvent describes a run state transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// EventHandler receives run state transitions. Calls are synchronous.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
}

// DeviceStatus is the last known role of one device.
type DeviceStatus = domain.DeviceStatus

// Snapshot is the last known role of every device.
type Snapshot = domain.Status

// Errors returned by Rolekeeper methods.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrUnknownDevice   = domain.ErrUnknownDevice
	ErrDeviceExists    = domain.ErrDeviceExists
)

// stateObserver adapts EventHandler to the supervisor.
type stateObserver struct {
	handler EventHandler
}

func (o stateObserver) OnStateChange(previous, current app.RunState, reason string) {
	if o.handler == nil {
		return
	}
	o.handler.OnStateChange(StateChangeEvent{
		Previous: fromRunState(previous),
		Current:  fromRunState(current),
		Reason:   reason,
	})
}

func fromRunState(s app.RunState) State {
	switch s {
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}

func convertState(s State) app.RunState {
	switch s {
	case StateStarting:
		return app.StateStarting
	case StateRunning:
		return app.StateRunning
	case StateStopping:
		return app.StateStopping
	case StateCrashed:
		return app.StateCrashed
	default:
		return app.StateStopped
	}
}
