package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/rolekeeper/internal/domain"
	"github.com/bft-labs/rolekeeper/internal/ports"
	"github.com/bft-labs/rolekeeper/pkg/device"
	"github.com/bft-labs/rolekeeper/pkg/lifecycle"
	"github.com/bft-labs/rolekeeper/pkg/log"
)

// LoggingListener writes every role notification to a logger.
type LoggingListener struct {
	logger ports.Logger
}

var _ lifecycle.MastershipChangeListener = (*LoggingListener)(nil)

// NewLoggingListener creates a listener logging to logger.
func NewLoggingListener(logger ports.Logger) *LoggingListener {
	return &LoggingListener{logger: log.OrNoop(logger)}
}

func (l *LoggingListener) OnMasterRoleAcquired(info device.Info) {
	l.logger.Info("master role acquired", log.Stringer("device", info.ID))
}

func (l *LoggingListener) OnSlaveRoleAcquired(info device.Info) {
	l.logger.Info("slave role acquired", log.Stringer("device", info.ID))
}

func (l *LoggingListener) OnSlaveRoleNotAcquired(info device.Info) {
	l.logger.Warn("slave role not acquired", log.Stringer("device", info.ID))
}

func (l *LoggingListener) OnNotAbleToStartMastershipMandatory(info device.Info, reason string) {
	l.logger.Error("mastership mandatory but not started",
		log.Stringer("device", info.ID),
		log.String("reason", reason),
	)
}

// StatusListener keeps the latest role of every device and persists it
// after each change.
type StatusListener struct {
	repo   ports.StatusRepository
	logger ports.Logger
	now    func() time.Time

	// mu also serializes saves so the file follows notification order.
	mu     sync.Mutex
	status domain.Status
}

var (
	_ lifecycle.MastershipChangeListener = (*StatusListener)(nil)
	_ lifecycle.DeviceRemovedHandler     = (*StatusListener)(nil)
	_ ConnectObserver                    = (*StatusListener)(nil)
)

// NewStatusListener loads the previous snapshot from repo and marks every
// device in it disconnected.
func NewStatusListener(ctx context.Context, repo ports.StatusRepository, logger ports.Logger) (*StatusListener, error) {
	status, err := repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	for id, ds := range status.Devices {
		ds.Connected = false
		status.Devices[id] = ds
	}
	return &StatusListener{
		repo:   repo,
		logger: log.OrNoop(logger),
		now:    time.Now,
		status: status,
	}, nil
}

// Snapshot returns a copy of the current status.
func (l *StatusListener) Snapshot() domain.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.copyLocked()
}

func (l *StatusListener) copyLocked() domain.Status {
	out := domain.Status{
		Devices:   make(map[device.ID]domain.DeviceStatus, len(l.status.Devices)),
		UpdatedAt: l.status.UpdatedAt,
	}
	for id, ds := range l.status.Devices {
		out.Devices[id] = ds
	}
	return out
}

func (l *StatusListener) update(info device.Info, fn func(ds *domain.DeviceStatus)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ds, ok := l.status.Get(info.ID)
	if !ok {
		ds = domain.DeviceStatus{ID: info.ID}
	}
	if info.Endpoint != "" {
		ds.Endpoint = info.Endpoint
	}
	fn(&ds)
	l.status.Put(ds, l.now())

	if err := l.repo.Save(context.Background(), l.copyLocked()); err != nil {
		l.logger.Warn("failed to persist status", log.Stringer("device", info.ID), log.Err(err))
	}
}

func (l *StatusListener) OnDeviceConnected(info device.Info) {
	l.update(info, func(ds *domain.DeviceStatus) {
		ds.Connected = true
		ds.Role = device.RoleUnknown
		ds.Reason = ""
	})
}

func (l *StatusListener) OnMasterRoleAcquired(info device.Info) {
	l.update(info, func(ds *domain.DeviceStatus) {
		ds.Role = device.RoleMaster
		ds.Reason = ""
	})
}

func (l *StatusListener) OnSlaveRoleAcquired(info device.Info) {
	l.update(info, func(ds *domain.DeviceStatus) {
		ds.Role = device.RoleSlave
		ds.Reason = ""
	})
}

func (l *StatusListener) OnSlaveRoleNotAcquired(info device.Info) {
	l.update(info, func(ds *domain.DeviceStatus) {
		ds.Reason = "slave role not acquired"
	})
}

func (l *StatusListener) OnNotAbleToStartMastershipMandatory(info device.Info, reason string) {
	l.update(info, func(ds *domain.DeviceStatus) {
		ds.Reason = reason
	})
}

func (l *StatusListener) OnDeviceRemoved(info device.Info) {
	l.update(info, func(ds *domain.DeviceStatus) {
		ds.Connected = false
	})
}
