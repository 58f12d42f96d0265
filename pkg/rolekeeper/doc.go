// Package rolekeeper provides an embeddable coordinator for the master/slave
// role of network devices shared by several controller processes.
//
// For every device in its inventory a rolekeeper instance opens a session,
// enters the process in a cluster-wide election for that device and drives
// the device's role from the election outcome: the elected process promotes
// the device to master, all others can ask for the slave role. Role outcomes
// are reported to a [lifecycle.MastershipChangeListener].
//
// # Basic Usage
//
//	cfg := rolekeeper.Config{
//	    Devices: []device.Info{
//	        {ID: "node-1", Endpoint: "http://10.0.0.1:8181"},
//	    },
//	    StateDir: "/var/lib/rolekeeper",
//	}
//
//	rk, err := rolekeeper.New(cfg, rolekeeper.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := rk.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... run until shutdown signal ...
//
//	if err := rk.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Election Backends
//
// [ElectionLocal] elects within the process and is meant for a single
// controller or for tests. [ElectionKubernetes] uses one coordination.k8s.io
// Lease per device. Any [lifecycle.SingletonProvider] can be injected with
// [WithProvider].
//
// # Listening to Role Changes
//
//	rk, err := rolekeeper.New(cfg, rolekeeper.WithListener(myListener))
//
// Notifications are delivered from a worker pool, never from the goroutine
// that completed the device request. Listeners should return quickly.
//
// # Lifecycle States
//
// An instance is in one of [StateStopped], [StateStarting], [StateRunning],
// [StateStopping] or [StateCrashed]. Use [Rolekeeper.Status] to query it and
// [WithEventHandler] to be told about changes.
//
// # Plugins
//
//	import "github.com/bft-labs/rolekeeper/plugins/inventorywatcher"
//
//	rk, err := rolekeeper.New(cfg,
//	    inventorywatcher.WithInventoryWatcher(inventorywatcher.Config{
//	        Path: "/etc/rolekeeper/devices.toml",
//	    }),
//	)
//
// # Version
//
// Current version: 1.0.0
package rolekeeper
