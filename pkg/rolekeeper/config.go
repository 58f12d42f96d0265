package rolekeeper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bft-labs/rolekeeper/internal/adapters/election"
	"github.com/bft-labs/rolekeeper/internal/domain"
	"github.com/bft-labs/rolekeeper/pkg/device"
	"github.com/bft-labs/rolekeeper/pkg/executor"
)

// Election backends.
const (
	ElectionLocal      = "local"
	ElectionKubernetes = "kubernetes"
)

// Config holds the configuration of a Rolekeeper instance.
type Config struct {
	// Devices is the initial inventory. It may be empty and filled later
	// with Reconcile.
	Devices []device.Info

	// StateDir holds the persisted role snapshot.
	// Default: ~/.rolekeeper
	StateDir string

	// Election selects the singleton provider backend. Ignored when a
	// provider is injected with WithProvider.
	// Default: ElectionLocal
	Election string

	// Kubernetes election settings. Zero values take the backend defaults.
	Namespace     string
	LeasePrefix   string
	Identity      string
	Kubeconfig    string
	LeaseDuration time.Duration
	RenewDeadline time.Duration
	RetryPeriod   time.Duration

	// Workers and QueueSize size the notification pool.
	Workers   int
	QueueSize int

	// HTTPTimeout bounds a single role request to a device.
	// Default: 10 seconds
	HTTPTimeout time.Duration

	// RateLimit is the number of role requests per second sent to a single
	// device, RateBurst the burst on top. A zero RateLimit disables limiting.
	RateLimit float64
	RateBurst int
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.StateDir == "" {
		if h, err := os.UserHomeDir(); err == nil {
			c.StateDir = filepath.Join(h, ".rolekeeper")
		}
	}
	c.Election = strings.ToLower(strings.TrimSpace(c.Election))
	if c.Election == "" {
		c.Election = ElectionLocal
	}
	if c.Namespace == "" {
		c.Namespace = election.DefaultNamespace
	}
	if c.LeasePrefix == "" {
		c.LeasePrefix = election.DefaultLeasePrefix
	}
	if c.LeaseDuration <= 0 {
		c.LeaseDuration = election.DefaultLeaseDuration
	}
	if c.RenewDeadline <= 0 {
		c.RenewDeadline = election.DefaultRenewDeadline
	}
	if c.RetryPeriod <= 0 {
		c.RetryPeriod = election.DefaultRetryPeriod
	}
	if c.Workers <= 0 {
		c.Workers = executor.DefaultWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = executor.DefaultQueueSize
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 1
	}
}

// Validate checks the configuration. Call SetDefaults first.
func (c *Config) Validate() error {
	if c.StateDir == "" {
		return fmt.Errorf("%w: state dir is required", domain.ErrInvalidConfig)
	}
	switch c.Election {
	case ElectionLocal, ElectionKubernetes:
	default:
		return fmt.Errorf("%w: unknown election backend %q", domain.ErrInvalidConfig, c.Election)
	}
	if c.LeaseDuration <= c.RenewDeadline {
		return fmt.Errorf("%w: lease duration must be greater than renew deadline", domain.ErrInvalidConfig)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate limit must not be negative", domain.ErrInvalidConfig)
	}

	seen := make(map[device.ID]struct{}, len(c.Devices))
	for _, info := range c.Devices {
		if err := info.Validate(); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
		}
		if _, dup := seen[info.ID]; dup {
			return fmt.Errorf("%w: duplicate device %s", domain.ErrInvalidConfig, info.ID)
		}
		seen[info.ID] = struct{}{}
	}
	return nil
}

func (c *Config) kubernetes() election.KubernetesConfig {
	return election.KubernetesConfig{
		Namespace:     c.Namespace,
		LeasePrefix:   c.LeasePrefix,
		Identity:      c.Identity,
		LeaseDuration: c.LeaseDuration,
		RenewDeadline: c.RenewDeadline,
		RetryPeriod:   c.RetryPeriod,
	}
}
