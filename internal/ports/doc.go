// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// Ports are the boundaries between the application core and the outside
// world. They define what the application needs from external systems
// without specifying how those needs are fulfilled.
//
// # Port Interfaces
//
//   - [SessionDialer]: Opens a live session to a device from its inventory entry
//   - [StatusRepository]: Persists and loads the per-device role snapshot
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// The singleton provider port lives in pkg/lifecycle because library users
// implement it too.
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// implementations (file system, HTTP, Kubernetes, etc.).
package ports
