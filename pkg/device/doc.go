// Package device describes a managed network device as seen by the
// control plane: its stable identity, the role this process holds over it
// and the live session used to change that role.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package device
