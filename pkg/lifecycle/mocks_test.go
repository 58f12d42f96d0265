package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/bft-labs/rolekeeper/pkg/device"
)

type mockListener struct{ mock.Mock }

func (m *mockListener) OnMasterRoleAcquired(info device.Info) { m.Called(info) }
func (m *mockListener) OnSlaveRoleAcquired(info device.Info)  { m.Called(info) }
func (m *mockListener) OnSlaveRoleNotAcquired(info device.Info) {
	m.Called(info)
}
func (m *mockListener) OnNotAbleToStartMastershipMandatory(info device.Info, reason string) {
	m.Called(info, reason)
}

type mockSession struct{ mock.Mock }

func (m *mockSession) Info() device.Info {
	return m.Called().Get(0).(device.Info)
}

func (m *mockSession) RequestSlaveRole(ctx context.Context) <-chan error {
	return m.Called(ctx).Get(0).(<-chan error)
}

func (m *mockSession) TryPromoteToMaster(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockProvider struct{ mock.Mock }

func (m *mockProvider) RegisterSingleton(svc SingletonService) (Registration, error) {
	args := m.Called(svc)
	reg, _ := args.Get(0).(Registration)
	return reg, args.Error(1)
}

type mockRegistration struct{ mock.Mock }

func (m *mockRegistration) Close() error { return m.Called().Error(0) }

type mockRemovedHandler struct{ mock.Mock }

func (m *mockRemovedHandler) OnDeviceRemoved(info device.Info) { m.Called(info) }

// result returns a completed slave-role request.
func result(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	return ch
}

// inlineExecutor runs tasks on the submitting goroutine and counts them.
type inlineExecutor struct {
	submitted atomic.Int32
}

func (e *inlineExecutor) Submit(task func()) error {
	e.submitted.Add(1)
	task()
	return nil
}

// countingRegistration counts Close calls without testify bookkeeping so it
// can be hammered from many goroutines.
type countingRegistration struct {
	closed atomic.Int32
}

func (r *countingRegistration) Close() error {
	r.closed.Add(1)
	return nil
}

// recordingHandler appends its name to a shared log when fired.
type recordingHandler struct {
	name string
	mu   *sync.Mutex
	log  *[]string
}

func (h recordingHandler) OnDeviceRemoved(device.Info) {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.log = append(*h.log, h.name)
}
