package election

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProvider_FirstCandidateOwns(t *testing.T) {
	p := NewLocalProvider()
	defer p.Stop()

	first := newFakeService("node-1")
	second := newFakeService("node-1")

	reg1, err := p.RegisterSingleton(first)
	require.NoError(t, err)
	reg2, err := p.RegisterSingleton(second)
	require.NoError(t, err)

	expectSignal(t, first.instantiate, "first instantiate")
	expectNoSignal(t, second.instantiate, "second instantiate")
	assert.Equal(t, 2, p.Candidates("node-1"))

	owner, ok := p.Owner("node-1")
	require.True(t, ok)
	assert.Equal(t, reg1.(*localRegistration).id, owner)

	require.NoError(t, reg1.Close())
	expectSignal(t, first.closed, "first close")
	expectSignal(t, second.instantiate, "second instantiate")

	owner, ok = p.Owner("node-1")
	require.True(t, ok)
	assert.Equal(t, reg2.(*localRegistration).id, owner)
}

func TestLocalProvider_GroupsAreIndependent(t *testing.T) {
	p := NewLocalProvider()
	defer p.Stop()

	a := newFakeService("node-1")
	b := newFakeService("node-2")
	_, err := p.RegisterSingleton(a)
	require.NoError(t, err)
	_, err = p.RegisterSingleton(b)
	require.NoError(t, err)

	expectSignal(t, a.instantiate, "node-1 instantiate")
	expectSignal(t, b.instantiate, "node-2 instantiate")
}

func TestLocalProvider_CloseIsIdempotent(t *testing.T) {
	p := NewLocalProvider()
	defer p.Stop()

	owner := newFakeService("node-1")
	waiting := newFakeService("node-1")
	reg, err := p.RegisterSingleton(owner)
	require.NoError(t, err)
	_, err = p.RegisterSingleton(waiting)
	require.NoError(t, err)
	expectSignal(t, owner.instantiate, "owner instantiate")

	for i := 0; i < 3; i++ {
		require.NoError(t, reg.Close())
	}

	expectSignal(t, owner.closed, "owner close")
	expectSignal(t, waiting.instantiate, "waiting instantiate")
	expectNoSignal(t, owner.closed, "second owner close")
	expectNoSignal(t, waiting.instantiate, "second instantiate")
	assert.Equal(t, 1, p.Candidates("node-1"))
}

func TestLocalProvider_NonOwnerLeavesQuietly(t *testing.T) {
	p := NewLocalProvider()
	defer p.Stop()

	owner := newFakeService("node-1")
	waiting := newFakeService("node-1")
	_, err := p.RegisterSingleton(owner)
	require.NoError(t, err)
	reg, err := p.RegisterSingleton(waiting)
	require.NoError(t, err)
	expectSignal(t, owner.instantiate, "owner instantiate")

	require.NoError(t, reg.Close())
	expectNoSignal(t, owner.closed, "owner close")
	assert.Equal(t, 1, p.Candidates("node-1"))
}

func TestLocalProvider_LastCandidateLeaves(t *testing.T) {
	p := NewLocalProvider()
	defer p.Stop()

	svc := newFakeService("node-1")
	reg, err := p.RegisterSingleton(svc)
	require.NoError(t, err)
	require.NoError(t, reg.Close())

	expectSignal(t, svc.closed, "close")
	_, ok := p.Owner("node-1")
	assert.False(t, ok)
	assert.Equal(t, 0, p.Candidates("node-1"))
}

func TestLocalProvider_RegisterAfterStop(t *testing.T) {
	p := NewLocalProvider()
	p.Stop()
	p.Stop()

	_, err := p.RegisterSingleton(newFakeService("node-1"))
	assert.ErrorIs(t, err, ErrProviderStopped)
}

// slowService blocks in InstantiateServiceInstance until release is closed.
type slowService struct {
	*fakeService
	release chan struct{}
}

func (s *slowService) InstantiateServiceInstance() {
	s.fakeService.InstantiateServiceInstance()
	<-s.release
}

func TestLocalProvider_SlowDeviceDoesNotBlockOthers(t *testing.T) {
	p := NewLocalProvider()

	slow := &slowService{fakeService: newFakeService("node-1"), release: make(chan struct{})}
	_, err := p.RegisterSingleton(slow)
	require.NoError(t, err)
	expectSignal(t, slow.instantiate, "node-1 instantiate")

	fast := newFakeService("node-2")
	_, err = p.RegisterSingleton(fast)
	require.NoError(t, err)
	expectSignal(t, fast.instantiate, "node-2 instantiate while node-1 is still promoting")

	close(slow.release)
	p.Stop()
}
