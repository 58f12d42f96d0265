// Package rolekeeper coordinates the master/slave role of network devices
// shared by several controllers.
//
// Example usage:
//
//	devices, err := rolekeeper.LoadInventory("/etc/rolekeeper/devices.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rk, err := rolekeeper.New(rolekeeper.Config{Devices: devices})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := rk.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer rk.Stop()
package rolekeeper

import (
	"github.com/bft-labs/rolekeeper/internal/cliconfig"
	"github.com/bft-labs/rolekeeper/pkg/device"
	"github.com/bft-labs/rolekeeper/pkg/rolekeeper"
)

// Config holds the configuration of a Rolekeeper instance.
type Config = rolekeeper.Config

// Rolekeeper coordinates the role of a set of devices.
type Rolekeeper = rolekeeper.Rolekeeper

// Option configures optional behavior of Rolekeeper.
type Option = rolekeeper.Option

// New creates a stopped Rolekeeper instance. See rolekeeper.New in
// pkg/rolekeeper for the available options.
func New(cfg Config, opts ...Option) (*Rolekeeper, error) {
	return rolekeeper.New(cfg, opts...)
}

// LoadInventory reads a TOML or YAML device inventory.
func LoadInventory(path string) ([]device.Info, error) {
	return cliconfig.LoadInventory(path)
}
