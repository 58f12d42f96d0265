package ports

import (
	"context"

	"github.com/bft-labs/rolekeeper/pkg/device"
)

// SessionDialer opens sessions to devices.
type SessionDialer interface {
	// Dial returns a session for info. It may contact the device to check
	// that it is reachable.
	Dial(ctx context.Context, info device.Info) (device.Session, error)
}

// SessionDialerFunc adapts a function to SessionDialer.
type SessionDialerFunc func(ctx context.Context, info device.Info) (device.Session, error)

// Dial calls f(ctx, info).
func (f SessionDialerFunc) Dial(ctx context.Context, info device.Info) (device.Session, error) {
	return f(ctx, info)
}
