package rolekeeper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/rolekeeper/internal/adapters/election"
	"github.com/bft-labs/rolekeeper/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/rolekeeper/internal/adapters/http"
	"github.com/bft-labs/rolekeeper/internal/adapters/metrics"
	"github.com/bft-labs/rolekeeper/internal/app"
	"github.com/bft-labs/rolekeeper/internal/domain"
	"github.com/bft-labs/rolekeeper/internal/ports"
	"github.com/bft-labs/rolekeeper/pkg/device"
	"github.com/bft-labs/rolekeeper/pkg/executor"
	"github.com/bft-labs/rolekeeper/pkg/lifecycle"
	"github.com/bft-labs/rolekeeper/pkg/log"
)

// Rolekeeper coordinates the role of a set of devices.
// Use New() to create an instance, then Start() to connect the devices.
type Rolekeeper struct {
	config     Config
	opts       options
	supervisor *app.Supervisor
	repo       ports.StatusRepository
	dialer     ports.SessionDialer
	logger     log.Logger
	plugins    []Plugin

	// active is nil outside of a run.
	active atomic.Pointer[run]

	mu  sync.RWMutex
	run *run
}

// run holds the components built by Start and torn down by Stop.
type run struct {
	manager *app.Manager
	pool    *executor.Pool
	status  *app.StatusListener
	// local is set when the instance owns the election provider.
	local *election.LocalProvider
	// ready is closed once the configured devices have been reconciled.
	ready chan struct{}
}

// New creates a new Rolekeeper instance with the given configuration.
// The instance is created in StateStopped; call Start() to connect devices.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Rolekeeper, error) {
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions(&http.Client{Timeout: cfg.HTTPTimeout})
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.OrNoop(o.logger)

	dialer := o.dialer
	if dialer == nil {
		dialer = httpAdapter.NewDialer(o.httpClient,
			httpAdapter.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
			httpAdapter.WithLogger(logger),
		)
	}

	return &Rolekeeper{
		config:     cfg,
		opts:       o,
		supervisor: app.NewSupervisor(logger, stateObserver{handler: o.eventHandler}),
		repo:       fs.NewStatusFileRepository(cfg.StateDir),
		dialer:     dialer,
		logger:     logger,
		plugins:    o.plugins,
	}, nil
}

// Start builds the election provider, initializes plugins and connects the
// configured devices in the background.
// Returns an error if already running or if startup fails.
// The provided context is used for the lifetime of the run.
func (r *Rolekeeper) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.supervisor.CanStart() {
		return domain.ErrAlreadyRunning
	}

	if err := r.supervisor.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.supervisor.SetCancel(cancel)

	rn, err := r.build(runCtx)
	if err != nil {
		cancel()
		_ = r.supervisor.TransitionTo(app.StateCrashed, "start failed: "+err.Error())
		return err
	}
	r.run = rn
	r.active.Store(rn)

	pluginCfg := PluginConfig{
		StateDir:   r.config.StateDir,
		Logger:     r.logger,
		Controller: r,
	}
	for i, p := range r.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			r.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			cancel()
			r.shutdownPlugins(i)
			r.active.Store(nil)
			r.run = nil
			close(rn.ready)
			r.teardown(rn)
			_ = r.supervisor.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		r.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	devices := append([]device.Info(nil), r.config.Devices...)
	r.supervisor.Go(func() {
		if err := r.supervisor.TransitionTo(app.StateRunning, "devices connecting"); err != nil {
			r.logger.Error("failed to transition to running", log.Err(err))
			close(rn.ready)
			return
		}

		err := rn.manager.Reconcile(runCtx, devices)
		close(rn.ready)
		if err != nil {
			r.logger.Warn("some devices failed to connect", log.Err(err))
		}

		<-runCtx.Done()
	})

	return nil
}

// Stop withdraws every device from its election and releases it.
// Waits up to 30 seconds before giving up.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
func (r *Rolekeeper) Stop() error {
	r.mu.Lock()

	if !r.supervisor.CanStop() {
		r.mu.Unlock()
		return domain.ErrNotRunning
	}

	if err := r.supervisor.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		r.mu.Unlock()
		return err
	}

	r.supervisor.Cancel()
	rn := r.run
	r.run = nil
	r.active.Store(nil)

	r.mu.Unlock()

	err := r.supervisor.WaitWithTimeout(app.ShutdownTimeout)

	r.shutdownPlugins(len(r.plugins))

	if terr := r.teardown(rn); terr != nil && err == nil {
		err = terr
	}

	if err != nil {
		_ = r.supervisor.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = r.supervisor.TransitionTo(app.StateStopped, "graceful shutdown")
	}

	return err
}

// Status returns the current run state.
// Safe to call concurrently from any goroutine.
func (r *Rolekeeper) Status() State {
	return fromRunState(r.supervisor.State())
}

// Snapshot returns the last known role of every device. Outside of a run
// it reads the snapshot persisted in the state dir.
func (r *Rolekeeper) Snapshot(ctx context.Context) (Snapshot, error) {
	r.mu.RLock()
	rn := r.run
	r.mu.RUnlock()

	if rn != nil {
		return rn.status.Snapshot(), nil
	}
	return r.repo.Load(ctx)
}

// Reconcile makes the connected devices match want. Devices no longer
// wanted, or whose endpoint changed, are released first. A call made right
// after Start waits for the configured devices to be connected, so want is
// never overwritten by the startup set.
func (r *Rolekeeper) Reconcile(ctx context.Context, want []device.Info) error {
	rn := r.active.Load()
	if rn == nil {
		return domain.ErrNotRunning
	}
	select {
	case <-rn.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	return rn.manager.Reconcile(ctx, want)
}

// Devices returns the connected devices ordered by id.
func (r *Rolekeeper) Devices() []device.Info {
	rn := r.active.Load()
	if rn == nil {
		return nil
	}
	return rn.manager.Devices()
}

// RequestSlaveRole asks device id to become slave. The outcome is reported
// to the listeners.
func (r *Rolekeeper) RequestSlaveRole(ctx context.Context, id device.ID) error {
	rn := r.active.Load()
	if rn == nil {
		return domain.ErrNotRunning
	}
	return rn.manager.RequestSlaveRole(ctx, id)
}

// build wires the components of one run.
func (r *Rolekeeper) build(ctx context.Context) (*run, error) {
	provider, local, err := r.provider()
	if err != nil {
		return nil, fmt.Errorf("create election provider: %w", err)
	}

	status, err := app.NewStatusListener(ctx, r.repo, r.logger)
	if err != nil {
		if local != nil {
			local.Stop()
		}
		return nil, fmt.Errorf("load status: %w", err)
	}

	listeners := lifecycle.MultiListener{app.NewLoggingListener(r.logger), status}
	managerOpts := []app.ManagerOption{
		app.WithManagerLogger(r.logger),
		app.WithRemovedHandler(status),
	}

	if r.opts.meterProvider != nil {
		ml, err := metrics.NewListener(r.opts.meterProvider)
		if err != nil {
			if local != nil {
				local.Stop()
			}
			return nil, fmt.Errorf("create metrics: %w", err)
		}
		listeners = append(listeners, ml)
		managerOpts = append(managerOpts, app.WithRemovedHandler(ml))
	}
	if r.opts.listener != nil {
		listeners = append(listeners, r.opts.listener)
	}

	pool := executor.NewPool(r.config.Workers, r.config.QueueSize, executor.WithLogger(r.logger))
	manager := app.NewManager(r.dialer, provider, listeners, pool, managerOpts...)

	return &run{
		manager: manager,
		pool:    pool,
		status:  status,
		local:   local,
		ready:   make(chan struct{}),
	}, nil
}

// provider returns the election backend. local is non-nil when the
// instance created the provider and must stop it.
func (r *Rolekeeper) provider() (lifecycle.SingletonProvider, *election.LocalProvider, error) {
	if r.opts.provider != nil {
		return r.opts.provider, nil, nil
	}

	switch r.config.Election {
	case ElectionKubernetes:
		client := r.opts.kubeClient
		if client == nil {
			c, err := election.NewKubernetesClient(r.config.Kubeconfig)
			if err != nil {
				return nil, nil, err
			}
			client = c
		}
		p, err := election.NewKubernetesProvider(client, r.config.kubernetes(),
			election.WithKubernetesLogger(r.logger))
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	default:
		p := election.NewLocalProvider(election.WithLocalLogger(r.logger))
		return p, p, nil
	}
}

// teardown releases every device, then drains pending notifications.
func (r *Rolekeeper) teardown(rn *run) error {
	if rn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
	defer cancel()

	var result error
	if err := rn.manager.CloseAll(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			result = domain.ErrShutdownTimeout
		}
		r.logger.Warn("device release failed", log.Err(err))
	}

	if err := rn.pool.Shutdown(app.ShutdownTimeout); err != nil {
		r.logger.Warn("notification pool shutdown failed", log.Err(err))
		if result == nil {
			result = domain.ErrShutdownTimeout
		}
	}

	if rn.local != nil {
		rn.local.Stop()
	}
	return result
}

// shutdownPlugins shuts down the first n plugins in reverse order.
func (r *Rolekeeper) shutdownPlugins(n int) {
	shutdownCtx := context.Background()
	for i := n - 1; i >= 0; i-- {
		p := r.plugins[i]
		if err := p.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
		} else {
			r.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}
}

// validateModuleVersions checks that all module versions are compatible.
// Returns an error if any module version is below its minimum compatible version.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"device":    {device.Version, device.MinCompatibleVersion},
		"lifecycle": {lifecycle.Version, lifecycle.MinCompatibleVersion},
		"executor":  {executor.Version, executor.MinCompatibleVersion},
		"log":       {log.Version, log.MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}

	return nil
}

// isVersionCompatible checks if version >= minVersion using semantic versioning.
// Assumes versions are in format "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
