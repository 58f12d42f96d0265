package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/rolekeeper/internal/domain"
	"github.com/bft-labs/rolekeeper/internal/ports"
	"github.com/bft-labs/rolekeeper/pkg/device"
	"github.com/bft-labs/rolekeeper/pkg/lifecycle"
	"github.com/bft-labs/rolekeeper/pkg/log"
)

// DefaultConnectConcurrency bounds parallel dials during Reconcile.
const DefaultConnectConcurrency = 8

// ConnectObserver is implemented by removal handlers that also want to
// hear about devices entering the manager.
type ConnectObserver interface {
	OnDeviceConnected(info device.Info)
}

var _ lifecycle.DeviceRemovedHandler = (*Manager)(nil)

// Manager owns one lifecycle.Service per connected device.
type Manager struct {
	dialer   ports.SessionDialer
	provider lifecycle.SingletonProvider
	listener lifecycle.MastershipChangeListener
	executor lifecycle.Executor
	logger   ports.Logger
	handlers []lifecycle.DeviceRemovedHandler

	// reconcileMu serializes whole Reconcile passes.
	reconcileMu sync.Mutex

	mu         sync.Mutex
	devices    map[device.ID]*managedDevice
	connecting map[device.ID]struct{}
}

type managedDevice struct {
	svc     *lifecycle.Service
	session device.Session
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the manager logger. Each service gets a child
// logger carrying the device id.
func WithManagerLogger(logger ports.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = log.OrNoop(logger)
	}
}

// WithRemovedHandler registers h on every service the manager creates. If h
// also implements ConnectObserver it is told about new devices.
func WithRemovedHandler(h lifecycle.DeviceRemovedHandler) ManagerOption {
	return func(m *Manager) {
		if h != nil {
			m.handlers = append(m.handlers, h)
		}
	}
}

// NewManager creates a manager. listener receives role notifications for
// every device; executor delivers the asynchronous ones.
func NewManager(
	dialer ports.SessionDialer,
	provider lifecycle.SingletonProvider,
	listener lifecycle.MastershipChangeListener,
	executor lifecycle.Executor,
	opts ...ManagerOption,
) *Manager {
	m := &Manager{
		dialer:     dialer,
		provider:   provider,
		listener:   listener,
		executor:   executor,
		logger:     log.NewNoopLogger(),
		devices:    make(map[device.ID]*managedDevice),
		connecting: make(map[device.ID]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect opens a session to info and enters it in the election for its
// device.
func (m *Manager) Connect(ctx context.Context, info device.Info) error {
	if err := info.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	m.mu.Lock()
	_, exists := m.devices[info.ID]
	_, pending := m.connecting[info.ID]
	if exists || pending {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrDeviceExists, info.ID)
	}
	m.connecting[info.ID] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.connecting, info.ID)
		m.mu.Unlock()
	}()

	session, err := m.dialer.Dial(ctx, info)
	if err != nil {
		return fmt.Errorf("dial device %s: %w", info.ID, err)
	}
	if session == nil {
		return fmt.Errorf("dial device %s: %w", info.ID, lifecycle.ErrNilSession)
	}

	svc := lifecycle.NewService(m.listener, m.executor,
		lifecycle.WithLogger(m.logger.With(log.Stringer("device", info.ID))),
	)
	svc.RegisterDeviceRemovedHandler(m)
	for _, h := range m.handlers {
		svc.RegisterDeviceRemovedHandler(h)
	}

	m.mu.Lock()
	m.devices[info.ID] = &managedDevice{svc: svc, session: session}
	m.mu.Unlock()

	for _, h := range m.handlers {
		if obs, ok := h.(ConnectObserver); ok {
			obs.OnDeviceConnected(info)
		}
	}

	if _, err := svc.RegisterService(m.provider, session); err != nil {
		_ = svc.Close()
		return err
	}

	m.logger.Info("device connected",
		log.Stringer("device", info.ID),
		log.String("endpoint", info.Endpoint),
	)
	return nil
}

// Disconnect tears down the service of id.
func (m *Manager) Disconnect(id device.ID) error {
	d, ok := m.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownDevice, id)
	}
	return d.svc.Close()
}

// OnDeviceRemoved drops the device from the manager once its service has
// been torn down.
func (m *Manager) OnDeviceRemoved(info device.Info) {
	m.mu.Lock()
	_, ok := m.devices[info.ID]
	delete(m.devices, info.ID)
	m.mu.Unlock()

	if ok {
		m.logger.Info("device removed", log.Stringer("device", info.ID))
	}
}

// RequestSlaveRole asks the device id to become slave. The outcome is
// reported to the listener.
func (m *Manager) RequestSlaveRole(ctx context.Context, id device.ID) error {
	d, ok := m.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownDevice, id)
	}
	return d.svc.RequestSlaveRole(ctx, d.session)
}

// Devices returns the connected devices ordered by id.
func (m *Manager) Devices() []device.Info {
	m.mu.Lock()
	out := make([]device.Info, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, d.session.Info())
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reconcile makes the connected set match want. Devices missing from want
// or whose endpoint changed are disconnected, new ones are connected.
// Every device is attempted; the returned error joins all failures.
// Concurrent calls run one after another, so the last call wins.
func (m *Manager) Reconcile(ctx context.Context, want []device.Info) error {
	m.reconcileMu.Lock()
	defer m.reconcileMu.Unlock()

	desired := make(map[device.ID]device.Info, len(want))
	for _, info := range want {
		desired[info.ID] = info
	}

	var errs []error
	for _, cur := range m.Devices() {
		next, keep := desired[cur.ID]
		if keep && next.Endpoint == cur.Endpoint {
			delete(desired, cur.ID)
			continue
		}
		if err := m.Disconnect(cur.ID); err != nil && !errors.Is(err, domain.ErrUnknownDevice) {
			errs = append(errs, err)
		}
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(DefaultConnectConcurrency)
	for _, info := range desired {
		g.Go(func() error {
			if err := m.Connect(ctx, info); err != nil {
				m.logger.Warn("connect failed", log.Stringer("device", info.ID), log.Err(err))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// CloseAll tears down every device concurrently. It returns early with the
// context error if ctx expires first.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	services := make([]*lifecycle.Service, 0, len(m.devices))
	for _, d := range m.devices {
		services = append(services, d.svc)
	}
	m.mu.Unlock()

	if len(services) == 0 {
		return nil
	}
	m.logger.Info("closing all devices", log.Int("count", len(services)))

	g, _ := errgroup.WithContext(ctx)
	for _, svc := range services {
		g.Go(svc.Close)
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) lookup(id device.ID) (*managedDevice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	return d, ok
}
