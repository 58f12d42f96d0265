package inventorywatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/rolekeeper/pkg/device"
	"github.com/bft-labs/rolekeeper/pkg/rolekeeper"
)

const inventoryOne = `
[[device]]
id = "node-1"
endpoint = "http://10.0.0.1:8181"
`

const inventoryTwo = `
[[device]]
id = "node-1"
endpoint = "http://10.0.0.1:8181"

[[device]]
id = "node-2"
endpoint = "http://10.0.0.2:8181"
`

// fakeController records every reconcile.
type fakeController struct {
	mu    sync.Mutex
	calls [][]device.Info
}

func (c *fakeController) Reconcile(ctx context.Context, want []device.Info) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, want)
	return nil
}

func (c *fakeController) Devices() []device.Info { return nil }

func (c *fakeController) Calls() [][]device.Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]device.Info(nil), c.calls...)
}

// writeInventory replaces path atomically so the watcher never sees a
// half-written file.
func writeInventory(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o644))
	require.NoError(t, os.Rename(tmp, path))
}

func startPlugin(t *testing.T, path string, opts ...func(*Plugin)) (*Plugin, *fakeController) {
	t.Helper()
	ctrl := &fakeController{}
	p := New(Config{Path: path, DebounceDelay: 20 * time.Millisecond})
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, p.Initialize(context.Background(), rolekeeper.PluginConfig{Controller: ctrl}))
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p, ctrl
}

func TestPlugin_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.toml")
	writeInventory(t, path, inventoryOne)

	_, ctrl := startPlugin(t, path)
	assert.Empty(t, ctrl.Calls(), "no reconcile before the file changes")

	writeInventory(t, path, inventoryTwo)

	require.Eventually(t, func() bool {
		calls := ctrl.Calls()
		return len(calls) > 0 && len(calls[len(calls)-1]) == 2
	}, 5*time.Second, 10*time.Millisecond)

	calls := ctrl.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, device.ID("node-1"), last[0].ID)
	assert.Equal(t, device.ID("node-2"), last[1].ID)
}

func TestPlugin_InvalidFileKeepsDevices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.toml")
	writeInventory(t, path, inventoryOne)

	var (
		mu    sync.Mutex
		loads int
	)
	_, ctrl := startPlugin(t, path, func(p *Plugin) {
		load := p.load
		p.load = func(path string) ([]device.Info, error) {
			mu.Lock()
			loads++
			mu.Unlock()
			return load(path)
		}
	})

	writeInventory(t, path, "[[device]]\nid = \"node-1\"\n")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return loads > 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, ctrl.Calls())
}

func TestPlugin_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devices.toml")
	writeInventory(t, path, inventoryOne)

	_, ctrl := startPlugin(t, path)

	writeInventory(t, filepath.Join(dir, "other.toml"), inventoryTwo)
	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, ctrl.Calls())
}

func TestPlugin_DisabledWithoutPath(t *testing.T) {
	p := New(DefaultConfig())
	require.NoError(t, p.Initialize(context.Background(), rolekeeper.PluginConfig{Controller: &fakeController{}}))
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPlugin_RequiresController(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.toml")
	p := New(Config{Path: path})
	err := p.Initialize(context.Background(), rolekeeper.PluginConfig{})
	assert.ErrorIs(t, err, ErrNoController)
}

func TestPlugin_Name(t *testing.T) {
	assert.Equal(t, "inventorywatcher", New(Config{}).Name())
}
