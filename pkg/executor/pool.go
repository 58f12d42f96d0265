package executor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/rolekeeper/pkg/log"
)

var (
	// ErrPoolClosed is returned by Submit after Shutdown has been called.
	ErrPoolClosed = errors.New("executor: pool closed")

	// ErrQueueFull is returned by Submit when no queue slot is free.
	ErrQueueFull = errors.New("executor: queue full")

	// ErrShutdownTimeout is returned when workers do not drain in time.
	ErrShutdownTimeout = errors.New("executor: shutdown timeout exceeded")
)

// Default pool sizing.
const (
	DefaultWorkers   = 4
	DefaultQueueSize = 256
)

// Pool is a fixed-size worker pool.
type Pool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	logger log.Logger

	mu     sync.RWMutex
	closed bool
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithLogger sets the logger used to report panicking tasks.
func WithLogger(logger log.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = log.OrNoop(logger)
	}
}

// NewPool starts workers goroutines reading from a queue of queueSize
// slots. Non-positive values fall back to the defaults.
func NewPool(workers, queueSize int, opts ...PoolOption) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	p := &Pool{
		tasks:  make(chan func(), queueSize),
		logger: log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work(i)
	}
	return p
}

// Submit queues task for execution.
func (p *Pool) Submit(task func()) error {
	if task == nil {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued tasks not yet picked up.
func (p *Pool) Pending() int {
	return len(p.tasks)
}

// Shutdown stops accepting tasks and waits up to timeout for queued ones to
// finish. It is safe to call more than once.
func (p *Pool) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		p.logger.Warn("executor shutdown timeout",
			log.Duration("timeout", timeout),
			log.Int("pending", len(p.tasks)),
		)
		return fmt.Errorf("%w after %s", ErrShutdownTimeout, timeout)
	}
}

func (p *Pool) work(id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(id, task)
	}
}

func (p *Pool) run(id int, task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("executor task panicked",
				log.Int("worker", id),
				log.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	task()
}
