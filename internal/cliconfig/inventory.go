package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/bft-labs/rolekeeper/pkg/device"
)

// inventoryFile is the on-disk device list. TOML files use [[device]]
// tables, YAML files a top-level "device" sequence.
type inventoryFile struct {
	Devices []device.Info `toml:"device" yaml:"device"`
}

// LoadInventory reads the device list at path. Files ending in .yaml or
// .yml are parsed as YAML, everything else as TOML. Every entry must be
// valid and ids must be unique.
func LoadInventory(path string) ([]device.Info, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseInventory(b, filepath.Ext(path))
}

// ParseInventory decodes an inventory document. ext selects the format as
// in LoadInventory.
func ParseInventory(data []byte, ext string) ([]device.Info, error) {
	var inv inventoryFile
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &inv); err != nil {
			return nil, fmt.Errorf("parse yaml inventory: %w", err)
		}
	default:
		if err := toml.Unmarshal(data, &inv); err != nil {
			return nil, fmt.Errorf("parse toml inventory: %w", err)
		}
	}

	seen := make(map[device.ID]struct{}, len(inv.Devices))
	for i, info := range inv.Devices {
		if err := info.Validate(); err != nil {
			return nil, fmt.Errorf("inventory entry %d: %w", i, err)
		}
		if _, dup := seen[info.ID]; dup {
			return nil, fmt.Errorf("inventory entry %d: duplicate device id %s", i, info.ID)
		}
		seen[info.ID] = struct{}{}
	}
	return inv.Devices, nil
}
