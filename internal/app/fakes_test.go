package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/rolekeeper/pkg/device"
	"github.com/bft-labs/rolekeeper/pkg/lifecycle"
)

// fakeSession answers role changes from fixed results.
type fakeSession struct {
	info       device.Info
	promoteErr error
	slaveErr   error

	promotions atomic.Int32
	demotions  atomic.Int32
}

func (s *fakeSession) Info() device.Info { return s.info }

func (s *fakeSession) RequestSlaveRole(ctx context.Context) <-chan error {
	s.demotions.Add(1)
	ch := make(chan error, 1)
	ch <- s.slaveErr
	close(ch)
	return ch
}

func (s *fakeSession) TryPromoteToMaster(ctx context.Context) error {
	s.promotions.Add(1)
	return s.promoteErr
}

// fakeDialer hands out fakeSessions and remembers them by device id.
type fakeDialer struct {
	mu       sync.Mutex
	sessions map[device.ID]*fakeSession
	fail     map[device.ID]error
	promote  error
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		sessions: make(map[device.ID]*fakeSession),
		fail:     make(map[device.ID]error),
	}
}

func (d *fakeDialer) Dial(ctx context.Context, info device.Info) (device.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail[info.ID]; err != nil {
		return nil, err
	}
	s := &fakeSession{info: info, promoteErr: d.promote}
	d.sessions[info.ID] = s
	return s, nil
}

func (d *fakeDialer) session(id device.ID) *fakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessions[id]
}

// syncProvider grants ownership to every candidate before returning.
type syncProvider struct {
	err      error
	released atomic.Int32
}

func (p *syncProvider) RegisterSingleton(svc lifecycle.SingletonService) (lifecycle.Registration, error) {
	if p.err != nil {
		return nil, p.err
	}
	svc.InstantiateServiceInstance()
	return registrationFunc(func() error {
		p.released.Add(1)
		return nil
	}), nil
}

type registrationFunc func() error

func (f registrationFunc) Close() error { return f() }

// eventListener records notifications as "<event>:<device>" strings.
type eventListener struct {
	mu     sync.Mutex
	events []string
}

func (l *eventListener) add(kind string, info device.Info) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, kind+":"+string(info.ID))
}

func (l *eventListener) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventListener) OnMasterRoleAcquired(info device.Info)   { l.add("master", info) }
func (l *eventListener) OnSlaveRoleAcquired(info device.Info)    { l.add("slave", info) }
func (l *eventListener) OnSlaveRoleNotAcquired(info device.Info) { l.add("slave-failed", info) }
func (l *eventListener) OnNotAbleToStartMastershipMandatory(info device.Info, reason string) {
	l.add("mandatory", info)
}

// observer records connect and remove callbacks.
type observer struct {
	eventListener
}

func (o *observer) OnDeviceConnected(info device.Info) { o.add("connected", info) }
func (o *observer) OnDeviceRemoved(info device.Info)   { o.add("removed", info) }

var errDialRefused = errors.New("connection refused")
