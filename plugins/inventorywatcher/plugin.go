// Package inventorywatcher keeps the devices of a rolekeeper instance in
// sync with an inventory file. When the file changes it is parsed again and
// the instance is reconciled against it.
package inventorywatcher

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/rolekeeper/internal/cliconfig"
	"github.com/bft-labs/rolekeeper/pkg/device"
	"github.com/bft-labs/rolekeeper/pkg/log"
	"github.com/bft-labs/rolekeeper/pkg/rolekeeper"
)

// ErrNoController is returned by Initialize when the plugin has nothing to
// reconcile.
var ErrNoController = errors.New("inventorywatcher: no controller")

// Plugin watches an inventory file and reconciles devices on change.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration

	controller rolekeeper.Controller
	logger     log.Logger
	load       func(path string) ([]device.Info, error)
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	debounce   *time.Timer

	// reloading is held for the duration of a reload.
	reloading sync.Mutex
}

// Config holds configuration options for the inventory watcher plugin.
type Config struct {
	// Path is the TOML or YAML inventory file.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 200 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 200 * time.Millisecond,
	}
}

// New creates a new inventory watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 200 * time.Millisecond
	}

	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		load:          cliconfig.LoadInventory,
		logger:        log.NewNoopLogger(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "inventorywatcher"
}

// Initialize starts watching the inventory file.
func (p *Plugin) Initialize(ctx context.Context, cfg rolekeeper.PluginConfig) error {
	p.mu.Lock()
	p.controller = cfg.Controller
	p.logger = log.OrNoop(cfg.Logger)
	p.mu.Unlock()

	if p.path == "" {
		p.logger.Warn("inventory watcher disabled: no inventory path configured")
		return nil
	}
	if p.controller == nil {
		return ErrNoController
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors replace files on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("inventory watcher plugin initialized", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the watcher and any pending reload.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()

	p.reloading.Lock()
	defer p.reloading.Unlock()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload(ctx, p.debounceDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("inventory watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	p.debounce = time.AfterFunc(delay, func() {
		p.reload(ctx)
	})
}

// reload parses the inventory and reconciles. A file that fails to parse
// leaves the current devices untouched.
func (p *Plugin) reload(ctx context.Context) {
	p.reloading.Lock()
	defer p.reloading.Unlock()

	if ctx.Err() != nil {
		return
	}

	devices, err := p.load(p.path)
	if err != nil {
		p.logger.Warn("inventory reload failed, keeping current devices",
			log.String("path", p.path),
			log.Err(err))
		return
	}

	if err := p.controller.Reconcile(ctx, devices); err != nil {
		p.logger.Warn("inventory reconcile incomplete", log.Err(err))
		return
	}
	p.logger.Info("inventory reloaded", log.Int("devices", len(devices)))
}

// Ensure Plugin implements rolekeeper.Plugin.
var _ rolekeeper.Plugin = (*Plugin)(nil)
