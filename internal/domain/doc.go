// Package domain contains the core value types of rolekeeper that are not
// part of the public device API.
//
// This package has no dependencies on infrastructure concerns (HTTP, file
// system, logging).
//
// # Entities
//
//   - [DeviceStatus]: The last known role of one device and why it changed
//   - [Status]: The persisted snapshot of every device this process tracks
package domain
