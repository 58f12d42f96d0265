package election

import (
	"testing"
	"time"

	"github.com/bft-labs/rolekeeper/pkg/device"
)

// fakeService records ownership callbacks on buffered channels.
type fakeService struct {
	id          device.ID
	instantiate chan struct{}
	closed      chan struct{}
}

func newFakeService(id device.ID) *fakeService {
	return &fakeService{
		id:          id,
		instantiate: make(chan struct{}, 16),
		closed:      make(chan struct{}, 16),
	}
}

func (f *fakeService) Identifier() device.ID        { return f.id }
func (f *fakeService) InstantiateServiceInstance() { f.instantiate <- struct{}{} }
func (f *fakeService) CloseServiceInstance()       { f.closed <- struct{}{} }

func expectSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func expectNoSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
		t.Fatalf("unexpected %s", what)
	case <-time.After(100 * time.Millisecond):
	}
}

func deviceID(s string) device.ID { return device.ID(s) }
