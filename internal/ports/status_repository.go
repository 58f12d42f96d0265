package ports

import (
	"context"

	"github.com/bft-labs/rolekeeper/internal/domain"
)

// StatusRepository persists the per-device role snapshot so that it can be
// inspected from outside the running process.
type StatusRepository interface {
	// Load retrieves the last saved snapshot.
	// Returns an empty snapshot and nil error if none exists.
	Load(ctx context.Context) (domain.Status, error)

	// Save persists the snapshot atomically.
	Save(ctx context.Context, status domain.Status) error
}
