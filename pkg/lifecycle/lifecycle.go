package lifecycle

import (
	"github.com/bft-labs/rolekeeper/pkg/device"
)

// State represents the lifecycle state of a Service.
type State int32

const (
	StateNew State = iota
	StateRegistered
	StateClosed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateNew:
		return "New"
	case StateRegistered:
		return "Registered"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// SingletonService is the callback surface a SingletonProvider drives.
type SingletonService interface {
	// Identifier returns the group under which ownership is elected.
	Identifier() device.ID

	// InstantiateServiceInstance is called when this process is granted ownership.
	InstantiateServiceInstance()

	// CloseServiceInstance is called when ownership is revoked while the
	// registration is still active.
	CloseServiceInstance()
}

// SingletonProvider elects a single owner per group across the cluster.
type SingletonProvider interface {
	// RegisterSingleton enters svc as a candidate for svc.Identifier().
	RegisterSingleton(svc SingletonService) (Registration, error)
}

// Registration is the handle returned by a SingletonProvider.
type Registration interface {
	// Close withdraws the candidate. If it held ownership, ownership moves on.
	Close() error
}

// MastershipChangeListener receives the outcome of role transitions.
type MastershipChangeListener interface {
	OnMasterRoleAcquired(info device.Info)
	OnSlaveRoleAcquired(info device.Info)
	OnSlaveRoleNotAcquired(info device.Info)

	// OnNotAbleToStartMastershipMandatory reports a failed promotion. The
	// attempt is not retried.
	OnNotAbleToStartMastershipMandatory(info device.Info, reason string)
}

// Executor runs submitted tasks asynchronously, each exactly once.
type Executor interface {
	// Submit queues task. It returns an error if the executor no longer
	// accepts work.
	Submit(task func()) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(task func()) error

// Submit calls f(task).
func (f ExecutorFunc) Submit(task func()) error { return f(task) }

// goExecutor runs each task on a fresh goroutine.
var goExecutor = ExecutorFunc(func(task func()) error {
	go task()
	return nil
})

// DeviceRemovedHandler is told when a device session has ended.
type DeviceRemovedHandler interface {
	OnDeviceRemoved(info device.Info)
}

// DeviceRemovedHandlerFunc adapts a function to the DeviceRemovedHandler interface.
type DeviceRemovedHandlerFunc func(info device.Info)

// OnDeviceRemoved calls f(info).
func (f DeviceRemovedHandlerFunc) OnDeviceRemoved(info device.Info) { f(info) }
