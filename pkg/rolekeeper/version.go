package rolekeeper

// Version information for the rolekeeper module.
const (
	// Version is the current version of the rolekeeper module.
	Version = "1.0.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "1.0.0"
)
