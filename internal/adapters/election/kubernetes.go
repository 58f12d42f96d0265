package election

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/bft-labs/rolekeeper/pkg/device"
	"github.com/bft-labs/rolekeeper/pkg/lifecycle"
	"github.com/bft-labs/rolekeeper/pkg/log"
)

// Default lease timings, matching the client-go recommendations.
const (
	DefaultLeaseDuration = 15 * time.Second
	DefaultRenewDeadline = 10 * time.Second
	DefaultRetryPeriod   = 2 * time.Second
	DefaultLeasePrefix   = "rolekeeper"
	DefaultNamespace     = "default"
)

// ErrInvalidLeaseName is returned when a device id cannot be turned into a
// valid Lease name.
var ErrInvalidLeaseName = errors.New("election: invalid lease name")

var _ lifecycle.SingletonProvider = (*KubernetesProvider)(nil)

// KubernetesConfig configures the Lease based provider.
type KubernetesConfig struct {
	Namespace   string
	LeasePrefix string
	// Identity is written as the lease holder. Empty means a random id per
	// registration.
	Identity string

	LeaseDuration time.Duration
	RenewDeadline time.Duration
	RetryPeriod   time.Duration

	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

func (c *KubernetesConfig) applyDefaults() {
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.LeasePrefix == "" {
		c.LeasePrefix = DefaultLeasePrefix
	}
	if c.LeaseDuration <= 0 {
		c.LeaseDuration = DefaultLeaseDuration
	}
	if c.RenewDeadline <= 0 {
		c.RenewDeadline = DefaultRenewDeadline
	}
	if c.RetryPeriod <= 0 {
		c.RetryPeriod = DefaultRetryPeriod
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = DefaultBackoffInitial
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = DefaultBackoffMax
	}
}

// KubernetesProvider runs one leader election per device group, backed by
// a coordination.k8s.io Lease named <prefix>-<device id>.
type KubernetesProvider struct {
	client kubernetes.Interface
	config KubernetesConfig
	logger log.Logger
}

// KubernetesOption configures a KubernetesProvider.
type KubernetesOption func(*KubernetesProvider)

// WithKubernetesLogger sets the provider logger.
func WithKubernetesLogger(logger log.Logger) KubernetesOption {
	return func(p *KubernetesProvider) {
		p.logger = log.OrNoop(logger)
	}
}

// NewKubernetesProvider creates a provider using client for lease access.
func NewKubernetesProvider(client kubernetes.Interface, cfg KubernetesConfig, opts ...KubernetesOption) (*KubernetesProvider, error) {
	if client == nil {
		return nil, errors.New("election: kubernetes client is required")
	}
	cfg.applyDefaults()

	p := &KubernetesProvider{
		client: client,
		config: cfg,
		logger: log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(
		log.String("component", "kubernetes_election"),
		log.String("namespace", cfg.Namespace),
	)
	return p, nil
}

// RegisterSingleton starts competing for the lease of svc's device. The
// election is retried with backoff until the registration is closed.
func (p *KubernetesProvider) RegisterSingleton(svc lifecycle.SingletonService) (lifecycle.Registration, error) {
	name, err := LeaseName(p.config.LeasePrefix, svc.Identifier())
	if err != nil {
		return nil, err
	}

	identity := p.config.Identity
	if identity == "" {
		identity = uuid.NewString()
	}

	reg := &leaseRegistration{
		svc:    svc,
		logger: p.logger.With(log.String("lease", name), log.String("identity", identity)),
		done:   make(chan struct{}),
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: p.config.Namespace,
		},
		Client: p.client.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: identity,
		},
	}
	leaderConfig := leaderelection.LeaderElectionConfig{
		Lock:            lock,
		Name:            name,
		LeaseDuration:   p.config.LeaseDuration,
		RenewDeadline:   p.config.RenewDeadline,
		RetryPeriod:     p.config.RetryPeriod,
		ReleaseOnCancel: true,
		Callbacks: leaderelection.LeaderCallbacks{
			OnStartedLeading: reg.onStartedLeading,
			OnStoppedLeading: reg.onStoppedLeading,
		},
	}

	// Validate once up front so configuration errors surface to the caller.
	if _, err := leaderelection.NewLeaderElector(leaderConfig); err != nil {
		return nil, fmt.Errorf("creating leader elector for %s: %w", name, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	reg.cancel = cancel
	go reg.run(ctx, leaderConfig, newBackoff(p.config.BackoffInitial, p.config.BackoffMax))

	reg.logger.Info("competing for device lease")
	return reg, nil
}

type leaseRegistration struct {
	svc    lifecycle.SingletonService
	logger log.Logger

	leading atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

func (r *leaseRegistration) run(ctx context.Context, cfg leaderelection.LeaderElectionConfig, b *backoff) {
	defer close(r.done)
	for {
		elector, err := leaderelection.NewLeaderElector(cfg)
		if err != nil {
			r.logger.Error("creating leader elector", log.Err(err))
			return
		}

		start := time.Now()
		elector.Run(ctx)
		if ctx.Err() != nil {
			return
		}

		// A long tenure means the lease was lost, not that the API server is
		// unreachable.
		if time.Since(start) > cfg.LeaseDuration {
			b.reset()
		}
		r.logger.Warn("leader election ended, retrying")
		if err := b.wait(ctx); err != nil {
			return
		}
	}
}

func (r *leaseRegistration) onStartedLeading(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	r.leading.Store(true)
	r.logger.Info("acquired device lease")
	r.svc.InstantiateServiceInstance()
}

// onStoppedLeading is called on every election exit, leader or not.
func (r *leaseRegistration) onStoppedLeading() {
	if !r.leading.CompareAndSwap(true, false) {
		return
	}
	r.logger.Info("lost device lease")
	r.svc.CloseServiceInstance()
}

// Close stops the election and releases the lease if held. Only the first
// call has an effect.
func (r *leaseRegistration) Close() error {
	r.once.Do(func() {
		r.cancel()
		<-r.done
	})
	return nil
}

// LeaseName builds the Lease object name for a device. Ids that are not
// already valid DNS labels are lowercased, stripped of invalid characters
// and suffixed with a hash of the raw id to keep names distinct.
func LeaseName(prefix string, id device.ID) (string, error) {
	raw := string(id)
	if raw == "" {
		return "", fmt.Errorf("%w: empty device id", ErrInvalidLeaseName)
	}

	clean := sanitize(raw)
	if clean != raw {
		h := fnv.New32a()
		_, _ = h.Write([]byte(raw))
		clean = fmt.Sprintf("%s-%08x", strings.Trim(clean, "-."), h.Sum32())
		clean = strings.TrimLeft(clean, "-.")
	}

	name := prefix + "-" + clean
	if prefix == "" {
		name = clean
	}
	if errs := validation.IsDNS1123Subdomain(name); len(errs) > 0 {
		return "", fmt.Errorf("%w: %q: %s", ErrInvalidLeaseName, name, strings.Join(errs, "; "))
	}
	return name, nil
}

func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
