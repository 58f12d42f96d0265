package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/rolekeeper/pkg/device"
	"github.com/bft-labs/rolekeeper/pkg/log"
)

// Compile-time check that Service can be handed to a SingletonProvider.
var _ SingletonService = (*Service)(nil)

// Option configures optional behavior of a Service.
type Option func(*Service)

// WithLogger sets the logger used by the service.
func WithLogger(logger log.Logger) Option {
	return func(s *Service) {
		s.logger = log.OrNoop(logger)
	}
}

// Service coordinates the role of one device and tears its session down
// exactly once.
type Service struct {
	listener MastershipChangeListener
	executor Executor
	logger   log.Logger

	// state only moves forward; Close wins by compare-and-swap.
	state atomic.Int32

	// ctx is canceled by the winning Close to abort in-flight promotions.
	ctx    context.Context
	cancel context.CancelFunc

	// mu guards the fields below. It is never held while calling into the
	// provider, the executor, the session or a listener.
	mu           sync.Mutex
	session      device.Session
	info         device.Info
	registration Registration
	handlers     removedHandlers
}

// NewService creates a service that reports to listener and hands
// asynchronous completions to executor. A nil executor runs each
// completion on its own goroutine.
func NewService(listener MastershipChangeListener, executor Executor, opts ...Option) *Service {
	if listener == nil {
		listener = NoopListener{}
	}
	if executor == nil {
		executor = goExecutor
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		listener: listener,
		executor: executor,
		logger:   log.NewNoopLogger(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	return State(s.state.Load())
}

// RegisterService binds session to the service and enters it as a
// singleton candidate with provider. It must be called once, before any
// other operation.
func (s *Service) RegisterService(provider SingletonProvider, session device.Session) (Registration, error) {
	if session == nil {
		return nil, ErrNilSession
	}

	info := session.Info()
	// The provider may grant ownership before RegisterSingleton returns, so
	// the session is bound in the same critical section that claims the
	// Registered state.
	s.mu.Lock()
	if !s.state.CompareAndSwap(int32(StateNew), int32(StateRegistered)) {
		s.mu.Unlock()
		if s.State() == StateClosed {
			return nil, ErrServiceClosed
		}
		return nil, ErrAlreadyRegistered
	}
	s.session = session
	s.info = info
	s.mu.Unlock()

	reg, err := provider.RegisterSingleton(s)
	if err != nil {
		s.state.CompareAndSwap(int32(StateRegistered), int32(StateNew))
		s.logger.Error("singleton registration failed", log.Err(err))
		return nil, fmt.Errorf("register %s as singleton candidate: %w", info.ID, err)
	}

	s.mu.Lock()
	if s.State() == StateClosed {
		// Close ran while the provider was registering us and found no
		// handle to release; release it here instead.
		s.mu.Unlock()
		_ = s.releaseRegistration(reg)
		return nil, ErrServiceClosed
	}
	s.registration = reg
	s.mu.Unlock()

	s.logger.Info("registered as singleton candidate", log.Stringer("device", info.ID))
	return reg, nil
}

// Identifier returns the group identifier derived from the bound session.
func (s *Service) Identifier() device.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info.ID
}

// DeviceInfo returns the description of the bound device.
func (s *Service) DeviceInfo() device.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// RequestSlaveRole asks session to switch its device to the slave role and
// returns without waiting. Exactly one of OnSlaveRoleAcquired or
// OnSlaveRoleNotAcquired is delivered later, from the executor.
func (s *Service) RequestSlaveRole(ctx context.Context, session device.Session) error {
	if session == nil {
		return ErrNilSession
	}
	if s.State() == StateClosed {
		return ErrServiceClosed
	}

	info := session.Info()
	s.logger.Debug("requesting slave role", log.Stringer("target", info.ID))
	go s.awaitSlaveRole(info, session.RequestSlaveRole(ctx))
	return nil
}

// awaitSlaveRole runs on its own goroutine and only forwards the outcome.
func (s *Service) awaitSlaveRole(info device.Info, result <-chan error) {
	err, ok := <-result
	if !ok {
		err = errNoResult
	}

	notify := func() {
		if err != nil {
			s.logger.Warn("slave role not acquired", log.Stringer("target", info.ID), log.Err(err))
			s.listener.OnSlaveRoleNotAcquired(info)
			return
		}
		s.logger.Info("slave role acquired", log.Stringer("target", info.ID))
		s.listener.OnSlaveRoleAcquired(info)
	}

	if subErr := s.executor.Submit(notify); subErr != nil {
		s.logger.Warn("executor rejected role notification, delivering directly", log.Err(subErr))
		notify()
	}
}

// InstantiateServiceInstance promotes the device to master. It is called by
// the singleton provider once this process owns the device. A failed
// promotion is reported to the listener and not retried.
func (s *Service) InstantiateServiceInstance() {
	if s.State() != StateRegistered {
		s.logger.Warn("ignoring ownership grant", log.Stringer("state", s.State()))
		return
	}

	s.mu.Lock()
	session, info := s.session, s.info
	s.mu.Unlock()

	s.logger.Info("ownership granted, starting mastership")
	err := session.TryPromoteToMaster(s.ctx)
	if s.State() == StateClosed {
		// Close already released the device.
		s.logger.Debug("closed during promotion, dropping outcome", log.Err(err))
		return
	}
	if err != nil {
		reason := fmt.Sprintf("device %s: not able to start mastership: %v", info.ID, err)
		s.logger.Error("mastership could not be started", log.Err(err))
		s.listener.OnNotAbleToStartMastershipMandatory(info, reason)
		return
	}
	s.listener.OnMasterRoleAcquired(info)
}

// CloseServiceInstance is called when ownership is revoked while the session
// is still alive. The device is demoted to slave.
func (s *Service) CloseServiceInstance() {
	if s.State() != StateRegistered {
		s.logger.Debug("ignoring ownership revocation", log.Stringer("state", s.State()))
		return
	}

	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	s.logger.Info("ownership revoked, demoting device")
	if err := s.RequestSlaveRole(s.ctx, session); err != nil {
		s.logger.Debug("demotion skipped", log.Err(err))
	}
}

// RegisterDeviceRemovedHandler adds h to the handlers notified when the
// session ends. Registering after Close is a no-op.
func (s *Service) RegisterDeviceRemovedHandler(h DeviceRemovedHandler) {
	if h == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() == StateClosed {
		s.logger.Debug("service closed, dropping device removed handler")
		return
	}
	s.handlers.add(h)
}

// Close tears the service down. Only the first call has an effect: it
// releases the provider registration and notifies every removal handler
// once. Later or concurrent calls return nil immediately.
func (s *Service) Close() error {
	for {
		cur := s.state.Load()
		if State(cur) == StateClosed {
			return nil
		}
		if s.state.CompareAndSwap(cur, int32(StateClosed)) {
			break
		}
	}
	s.cancel()

	s.mu.Lock()
	reg := s.registration
	s.registration = nil
	count := s.handlers.len()
	handlers := s.handlers.drain()
	info := s.info
	s.mu.Unlock()

	s.logger.Info("closing device lifecycle", log.Int("removed_handlers", count))

	err := s.releaseRegistration(reg)
	fireAll(handlers, info, s.logger)
	return err
}

func (s *Service) releaseRegistration(reg Registration) error {
	if reg == nil {
		return nil
	}
	if err := reg.Close(); err != nil {
		s.logger.Error("failed to release singleton registration", log.Err(err))
		return fmt.Errorf("release singleton registration: %w", err)
	}
	return nil
}
