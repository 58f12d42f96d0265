package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ID identifies a device across the cluster. It doubles as the group
// identifier under which ownership of the device is elected.
type ID string

// String returns the identifier as a plain string.
func (id ID) String() string { return string(id) }

// Info is the immutable description of a connected device.
type Info struct {
	ID ID `json:"id" toml:"id" yaml:"id"`

	// Endpoint is the base URL of the device's management agent.
	Endpoint string `json:"endpoint" toml:"endpoint" yaml:"endpoint"`
}

// Validate checks that the description can be used to open a session.
func (i Info) Validate() error {
	if strings.TrimSpace(string(i.ID)) == "" {
		return errors.New("device: id is required")
	}
	if strings.TrimSpace(i.Endpoint) == "" {
		return fmt.Errorf("device %s: endpoint is required", i.ID)
	}
	return nil
}

// Role is the operational mode this process holds over a device.
type Role int

const (
	RoleUnknown Role = iota
	RoleMaster
	RoleSlave
)

// String returns the wire name of the role.
func (r Role) String() string {
	switch r {
	case RoleMaster:
		return "master"
	case RoleSlave:
		return "slave"
	default:
		return "unknown"
	}
}

// ParseRole converts a wire name back into a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "master":
		return RoleMaster, nil
	case "slave":
		return RoleSlave, nil
	case "unknown", "":
		return RoleUnknown, nil
	default:
		return RoleUnknown, fmt.Errorf("device: unknown role %q", s)
	}
}

// MarshalText encodes the role by its wire name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a wire name produced by MarshalText.
func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Session is the live connection to a device.
type Session interface {
	// Info returns the description of the device behind this session.
	Info() Info

	// RequestSlaveRole starts switching the device to the slave role and
	// returns immediately. The returned channel yields exactly one value:
	// nil on success, otherwise the reason the switch failed.
	RequestSlaveRole(ctx context.Context) <-chan error

	// TryPromoteToMaster switches the device to the master role and
	// returns once the device has answered. A nil error means this
	// process now holds mastership.
	TryPromoteToMaster(ctx context.Context) error
}
