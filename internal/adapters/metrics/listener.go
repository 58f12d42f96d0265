// Package metrics reports role changes as OpenTelemetry metrics.
package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bft-labs/rolekeeper/pkg/device"
	"github.com/bft-labs/rolekeeper/pkg/lifecycle"
)

const namespace = "rolekeeper"

// Outcome attribute values.
const (
	OutcomeAcquired    = "acquired"
	OutcomeNotAcquired = "not_acquired"
	OutcomeFailed      = "failed"
)

var (
	_ lifecycle.MastershipChangeListener = (*Listener)(nil)
	_ lifecycle.DeviceRemovedHandler     = (*Listener)(nil)
)

// Listener counts role change outcomes per role.
type Listener struct {
	roleChanges    metric.Int64Counter
	masters        metric.Int64UpDownCounter
	devicesRemoved metric.Int64Counter

	mu          sync.Mutex
	heldMasters map[device.ID]struct{}
}

// NewListener registers the instruments with mp.
func NewListener(mp metric.MeterProvider) (*Listener, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion(lifecycle.Version))

	l := &Listener{heldMasters: make(map[device.ID]struct{})}
	var err error

	if l.roleChanges, err = meter.Int64Counter(
		"role_changes_total",
		metric.WithDescription("Total number of role change outcomes by role and outcome"),
	); err != nil {
		return nil, err
	}

	if l.masters, err = meter.Int64UpDownCounter(
		"master_devices",
		metric.WithDescription("Number of devices this process currently holds as master"),
	); err != nil {
		return nil, err
	}

	if l.devicesRemoved, err = meter.Int64Counter(
		"devices_removed_total",
		metric.WithDescription("Total number of device sessions torn down"),
	); err != nil {
		return nil, err
	}

	return l, nil
}

func (l *Listener) record(role device.Role, outcome string) {
	l.roleChanges.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("role", role.String()),
		attribute.String("outcome", outcome),
	))
}

// setMaster updates master_devices when the held state of id flips.
func (l *Listener) setMaster(id device.ID, held bool) {
	l.mu.Lock()
	_, was := l.heldMasters[id]
	if held {
		l.heldMasters[id] = struct{}{}
	} else {
		delete(l.heldMasters, id)
	}
	l.mu.Unlock()

	switch {
	case held && !was:
		l.masters.Add(context.Background(), 1)
	case !held && was:
		l.masters.Add(context.Background(), -1)
	}
}

func (l *Listener) OnMasterRoleAcquired(info device.Info) {
	l.record(device.RoleMaster, OutcomeAcquired)
	l.setMaster(info.ID, true)
}

func (l *Listener) OnSlaveRoleAcquired(info device.Info) {
	l.record(device.RoleSlave, OutcomeAcquired)
	l.setMaster(info.ID, false)
}

func (l *Listener) OnSlaveRoleNotAcquired(info device.Info) {
	l.record(device.RoleSlave, OutcomeNotAcquired)
}

func (l *Listener) OnNotAbleToStartMastershipMandatory(info device.Info, reason string) {
	l.record(device.RoleMaster, OutcomeFailed)
}

func (l *Listener) OnDeviceRemoved(info device.Info) {
	l.devicesRemoved.Add(context.Background(), 1)
	l.setMaster(info.ID, false)
}
