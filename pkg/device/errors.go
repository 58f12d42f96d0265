package device

import (
	"errors"
	"fmt"
)

// ErrRoleChangeRejected is returned when the device refuses a role change.
var ErrRoleChangeRejected = errors.New("device: role change rejected")

// RoleChangeError reports a failed attempt to put a device into a role.
type RoleChangeError struct {
	Device ID
	Role   Role
	Err    error
}

func (e *RoleChangeError) Error() string {
	return fmt.Sprintf("device %s: change to %s role failed: %v", e.Device, e.Role, e.Err)
}

func (e *RoleChangeError) Unwrap() error { return e.Err }

// Rejected returns a RoleChangeError wrapping ErrRoleChangeRejected.
func Rejected(id ID, role Role) error {
	return &RoleChangeError{Device: id, Role: role, Err: ErrRoleChangeRejected}
}
