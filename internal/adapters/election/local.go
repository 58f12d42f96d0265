package election

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/bft-labs/rolekeeper/pkg/device"
	"github.com/bft-labs/rolekeeper/pkg/lifecycle"
	"github.com/bft-labs/rolekeeper/pkg/log"
)

// ErrProviderStopped is returned when registering with a stopped provider.
var ErrProviderStopped = errors.New("election: provider stopped")

var _ lifecycle.SingletonProvider = (*LocalProvider)(nil)

// LocalProvider is an in-memory singleton registry. The first candidate
// registered for a device owns it; when the owner leaves, the next
// candidate in registration order takes over. Ownership callbacks of one
// device run in the order they were decided, on a goroutine of that device,
// so a slow promotion only holds up its own device.
type LocalProvider struct {
	logger log.Logger

	mu     sync.Mutex
	groups map[device.ID][]*localRegistration
	// queues holds pending callbacks per device. A key is present while a
	// drain goroutine runs for that device.
	queues  map[device.ID][]func()
	stopped bool

	wg sync.WaitGroup
}

// LocalOption configures a LocalProvider.
type LocalOption func(*LocalProvider)

// WithLocalLogger sets the provider logger.
func WithLocalLogger(logger log.Logger) LocalOption {
	return func(p *LocalProvider) {
		p.logger = log.OrNoop(logger)
	}
}

// NewLocalProvider returns an empty provider. Stop must be called to wait
// for pending callbacks.
func NewLocalProvider(opts ...LocalOption) *LocalProvider {
	p := &LocalProvider{
		logger: log.NewNoopLogger(),
		groups: make(map[device.ID][]*localRegistration),
		queues: make(map[device.ID][]func()),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RegisterSingleton enters svc as a candidate for the device it identifies.
func (p *LocalProvider) RegisterSingleton(svc lifecycle.SingletonService) (lifecycle.Registration, error) {
	group := svc.Identifier()
	reg := &localRegistration{
		id:       uuid.New(),
		group:    group,
		svc:      svc,
		provider: p,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil, ErrProviderStopped
	}

	p.groups[group] = append(p.groups[group], reg)
	if len(p.groups[group]) == 1 {
		p.logger.Info("candidate owns device",
			log.Stringer("device", group),
			log.Stringer("registration", reg.id),
		)
		p.enqueueLocked(group, svc.InstantiateServiceInstance)
	} else {
		p.logger.Debug("candidate queued",
			log.Stringer("device", group),
			log.Stringer("registration", reg.id),
			log.Int("position", len(p.groups[group])-1),
		)
	}
	return reg, nil
}

// Owner returns the registration id currently owning group.
func (p *LocalProvider) Owner(group device.ID) (uuid.UUID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	candidates := p.groups[group]
	if len(candidates) == 0 {
		return uuid.Nil, false
	}
	return candidates[0].id, true
}

// Candidates returns how many registrations are queued for group, owner
// included.
func (p *LocalProvider) Candidates(group device.ID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.groups[group])
}

// Stop refuses new registrations and waits for pending callbacks.
// Registrations closed after Stop are dropped silently.
func (p *LocalProvider) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *LocalProvider) release(reg *localRegistration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	candidates := p.groups[reg.group]
	idx := -1
	for i, c := range candidates {
		if c == reg {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	candidates = append(candidates[:idx], candidates[idx+1:]...)
	if len(candidates) == 0 {
		delete(p.groups, reg.group)
	} else {
		p.groups[reg.group] = candidates
	}

	if idx != 0 || p.stopped {
		return
	}

	p.logger.Info("owner left device",
		log.Stringer("device", reg.group),
		log.Stringer("registration", reg.id),
	)
	p.enqueueLocked(reg.group, reg.svc.CloseServiceInstance)
	if len(candidates) > 0 {
		next := candidates[0]
		p.logger.Info("candidate owns device",
			log.Stringer("device", next.group),
			log.Stringer("registration", next.id),
		)
		p.enqueueLocked(next.group, next.svc.InstantiateServiceInstance)
	}
}

// enqueueLocked must be called with p.mu held.
func (p *LocalProvider) enqueueLocked(group device.ID, fn func()) {
	q, draining := p.queues[group]
	p.queues[group] = append(q, fn)
	if draining {
		return
	}
	p.wg.Add(1)
	go p.drain(group)
}

// drain runs the callbacks of group until its queue is empty.
func (p *LocalProvider) drain(group device.ID) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		pending := p.queues[group]
		if len(pending) == 0 {
			delete(p.queues, group)
			p.mu.Unlock()
			return
		}
		p.queues[group] = nil
		p.mu.Unlock()

		for _, fn := range pending {
			fn()
		}
	}
}

type localRegistration struct {
	id       uuid.UUID
	group    device.ID
	svc      lifecycle.SingletonService
	provider *LocalProvider
	once     sync.Once
}

// Close withdraws the candidate. Only the first call has an effect.
func (r *localRegistration) Close() error {
	r.once.Do(func() {
		r.provider.release(r)
	})
	return nil
}
