package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/rolekeeper/pkg/device"
)

// agent is a fake device management agent.
type agent struct {
	status   int
	requests atomic.Int32
	lastRole atomic.Value
}

func (a *agent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.requests.Add(1)
	if r.URL.Path != roleEndpoint || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a.lastRole.Store(req.Role)
	if a.status != 0 {
		http.Error(w, "role change refused", a.status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func dial(t *testing.T, endpoint string, opts ...DialerOption) device.Session {
	t.Helper()
	s, err := NewDialer(nil, opts...).Dial(context.Background(), device.Info{ID: "node-1", Endpoint: endpoint})
	require.NoError(t, err)
	return s
}

func awaitResult(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for role result")
		return nil
	}
}

func TestSession_RequestSlaveRole(t *testing.T) {
	a := &agent{}
	srv := httptest.NewServer(a)
	defer srv.Close()

	s := dial(t, srv.URL+"/")
	ch := s.RequestSlaveRole(context.Background())

	require.NoError(t, awaitResult(t, ch))
	assert.Equal(t, "slave", a.lastRole.Load())

	_, open := <-ch
	assert.False(t, open, "result channel should be closed after the single value")
}

func TestSession_TryPromoteToMaster(t *testing.T) {
	a := &agent{}
	srv := httptest.NewServer(a)
	defer srv.Close()

	require.NoError(t, dial(t, srv.URL).TryPromoteToMaster(context.Background()))
	assert.Equal(t, "master", a.lastRole.Load())
}

func TestSession_Rejected(t *testing.T) {
	srv := httptest.NewServer(&agent{status: http.StatusConflict})
	defer srv.Close()

	err := awaitResult(t, dial(t, srv.URL).RequestSlaveRole(context.Background()))
	assert.ErrorIs(t, err, device.ErrRoleChangeRejected)

	var rce *device.RoleChangeError
	require.True(t, errors.As(err, &rce))
	assert.Equal(t, device.RoleSlave, rce.Role)
}

func TestSession_ServerError(t *testing.T) {
	srv := httptest.NewServer(&agent{status: http.StatusInternalServerError})
	defer srv.Close()

	err := dial(t, srv.URL).TryPromoteToMaster(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, device.ErrRoleChangeRejected)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "role change refused")
}

func TestSession_Unreachable(t *testing.T) {
	srv := httptest.NewServer(&agent{})
	url := srv.URL
	srv.Close()

	err := awaitResult(t, dial(t, url).RequestSlaveRole(context.Background()))
	var rce *device.RoleChangeError
	require.True(t, errors.As(err, &rce))
}

func TestSession_CanceledContext(t *testing.T) {
	a := &agent{}
	srv := httptest.NewServer(a)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := dial(t, srv.URL).TryPromoteToMaster(ctx)
	require.Error(t, err)
	assert.EqualValues(t, 0, a.requests.Load())
}

func TestSession_RateLimited(t *testing.T) {
	a := &agent{}
	srv := httptest.NewServer(a)
	defer srv.Close()

	s := dial(t, srv.URL, WithRateLimit(0.001, 1))
	require.NoError(t, s.TryPromoteToMaster(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.TryPromoteToMaster(ctx)
	require.Error(t, err)
	assert.EqualValues(t, 1, a.requests.Load())
}

func TestSession_Unlimited(t *testing.T) {
	a := &agent{}
	srv := httptest.NewServer(a)
	defer srv.Close()

	s := dial(t, srv.URL, WithRateLimit(0, 0))
	for i := 0; i < 20; i++ {
		require.NoError(t, s.TryPromoteToMaster(context.Background()))
	}
	assert.EqualValues(t, 20, a.requests.Load())
}

func TestDialer_Dial(t *testing.T) {
	tests := []struct {
		name    string
		info    device.Info
		wantErr bool
	}{
		{name: "valid", info: device.Info{ID: "node-1", Endpoint: "http://10.0.0.1:8181"}},
		{name: "https", info: device.Info{ID: "node-1", Endpoint: "https://node-1.lab"}},
		{name: "missing id", info: device.Info{Endpoint: "http://10.0.0.1:8181"}, wantErr: true},
		{name: "missing endpoint", info: device.Info{ID: "node-1"}, wantErr: true},
		{name: "bad scheme", info: device.Info{ID: "node-1", Endpoint: "tcp://10.0.0.1:6653"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewDialer(nil).Dial(context.Background(), tt.info)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.info, s.Info())
		})
	}
}
