package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bft-labs/rolekeeper/internal/domain"
	"github.com/bft-labs/rolekeeper/internal/ports"
)

// StatusFileName is the snapshot file written inside the state directory.
const StatusFileName = "status.json"

var _ ports.StatusRepository = (*StatusFileRepository)(nil)

// StatusFileRepository implements ports.StatusRepository using a JSON file.
type StatusFileRepository struct {
	dir string

	// mu serializes writers sharing the same temp file.
	mu sync.Mutex
}

// NewStatusFileRepository creates a repository rooted at dir.
func NewStatusFileRepository(dir string) *StatusFileRepository {
	return &StatusFileRepository{dir: dir}
}

// Load retrieves the last saved snapshot from disk.
// Returns an empty snapshot and nil error if no file exists.
func (r *StatusFileRepository) Load(ctx context.Context) (domain.Status, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewStatus(), nil
		}
		return domain.Status{}, fmt.Errorf("read status file: %w", err)
	}

	status := domain.NewStatus()
	if err := json.Unmarshal(data, &status); err != nil {
		return domain.Status{}, fmt.Errorf("decode status file %s: %w", r.Path(), err)
	}
	return status, nil
}

// Save writes to a temp file and renames it over the snapshot.
func (r *StatusFileRepository) Save(ctx context.Context, status domain.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	path := r.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the status file.
func (r *StatusFileRepository) Path() string {
	return filepath.Join(r.dir, StatusFileName)
}
