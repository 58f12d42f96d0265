package rolekeeper

import (
	"context"

	"github.com/bft-labs/rolekeeper/pkg/device"
)

// Plugin extends a Rolekeeper instance. Plugins are initialized in
// registration order by Start and shut down in reverse order by Stop.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize starts the plugin. ctx is cancelled when the instance stops.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin and waits for its goroutines.
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to Plugin.Initialize.
type PluginConfig struct {
	StateDir   string
	Logger     Logger
	Controller Controller
}

// Controller is the part of a Rolekeeper instance plugins may drive.
type Controller interface {
	// Reconcile makes the connected devices match want.
	Reconcile(ctx context.Context, want []device.Info) error

	// Devices returns the connected devices ordered by id.
	Devices() []device.Info
}

var _ Controller = (*Rolekeeper)(nil)
