package inventorywatcher

import "github.com/bft-labs/rolekeeper/pkg/rolekeeper"

// WithInventoryWatcher returns a rolekeeper Option that reconciles devices
// whenever the inventory file changes.
//
// Usage:
//
//	rk, err := rolekeeper.New(cfg,
//	    inventorywatcher.WithInventoryWatcher(inventorywatcher.Config{
//	        Path:          "/etc/rolekeeper/devices.toml",
//	        DebounceDelay: 200 * time.Millisecond,
//	    }),
//	)
func WithInventoryWatcher(cfg Config) rolekeeper.Option {
	return rolekeeper.WithPlugin(New(cfg))
}
