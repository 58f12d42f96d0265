package domain

import "errors"

// Domain errors returned by the public API. Check them with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("rolekeeper: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("rolekeeper: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("rolekeeper: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("rolekeeper: invalid configuration")

	// ErrUnknownDevice is returned for operations on a device that is not
	// connected.
	ErrUnknownDevice = errors.New("rolekeeper: unknown device")

	// ErrDeviceExists is returned when connecting a device twice.
	ErrDeviceExists = errors.New("rolekeeper: device already connected")
)
