package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/bft-labs/rolekeeper/internal/ports"
	"github.com/bft-labs/rolekeeper/pkg/device"
	"github.com/bft-labs/rolekeeper/pkg/log"
)

const roleEndpoint = "/v1/role"

// Default outbound request budget shared by all sessions of a Dialer.
const (
	DefaultRateLimit = 20
	DefaultBurst     = 5
)

// roleRequest is the body of a role change request.
type roleRequest struct {
	Role device.Role `json:"role"`
}

var (
	_ ports.SessionDialer = (*Dialer)(nil)
	_ device.Session      = (*Session)(nil)
)

// Dialer creates HTTP sessions to device management agents.
type Dialer struct {
	client  ports.HTTPClient
	limiter *rate.Limiter
	logger  log.Logger
}

// DialerOption configures a Dialer.
type DialerOption func(*Dialer)

// WithRateLimit caps role change requests across all sessions at limit per
// second with the given burst. A non-positive limit disables limiting.
func WithRateLimit(limit float64, burst int) DialerOption {
	return func(d *Dialer) {
		if limit <= 0 {
			d.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst <= 0 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
}

// WithLogger sets the logger for dialed sessions.
func WithLogger(logger log.Logger) DialerOption {
	return func(d *Dialer) {
		d.logger = log.OrNoop(logger)
	}
}

// NewDialer creates a dialer that sends requests through client. A nil
// client uses http.DefaultClient.
func NewDialer(client ports.HTTPClient, opts ...DialerOption) *Dialer {
	if client == nil {
		client = http.DefaultClient
	}
	d := &Dialer{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultBurst),
		logger:  log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dial returns a session for info. The device is not contacted.
func (d *Dialer) Dial(ctx context.Context, info device.Info) (device.Session, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	u, err := url.Parse(info.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("device %s: parse endpoint: %w", info.ID, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("device %s: unsupported endpoint scheme %q", info.ID, u.Scheme)
	}

	return &Session{
		info:    info,
		roleURL: strings.TrimRight(info.Endpoint, "/") + roleEndpoint,
		client:  d.client,
		limiter: d.limiter,
		logger:  d.logger.With(log.Stringer("device", info.ID)),
	}, nil
}

// Session changes the role of one device through its management agent.
type Session struct {
	info    device.Info
	roleURL string
	client  ports.HTTPClient
	limiter *rate.Limiter
	logger  log.Logger
}

// Info returns the device description.
func (s *Session) Info() device.Info {
	return s.info
}

// RequestSlaveRole sends the request on its own goroutine and delivers the
// single result on the returned channel.
func (s *Session) RequestSlaveRole(ctx context.Context) <-chan error {
	result := make(chan error, 1)
	go func() {
		defer close(result)
		result <- s.setRole(ctx, device.RoleSlave)
	}()
	return result
}

// TryPromoteToMaster asks the device to accept this process as master.
func (s *Session) TryPromoteToMaster(ctx context.Context) error {
	return s.setRole(ctx, device.RoleMaster)
}

func (s *Session) setRole(ctx context.Context, role device.Role) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return &device.RoleChangeError{Device: s.info.ID, Role: role, Err: fmt.Errorf("rate limit: %w", err)}
	}

	body, err := json.Marshal(roleRequest{Role: role})
	if err != nil {
		return fmt.Errorf("marshal role request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.roleURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("role request failed", log.Stringer("role", role), log.Err(err))
		return &device.RoleChangeError{Device: s.info.ID, Role: role, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode/100 == 2:
		_, _ = io.Copy(io.Discard, resp.Body)
		s.logger.Debug("role changed", log.Stringer("role", role))
		return nil
	case resp.StatusCode == http.StatusConflict:
		_, _ = io.Copy(io.Discard, resp.Body)
		s.logger.Info("device rejected role change", log.Stringer("role", role))
		return device.Rejected(s.info.ID, role)
	default:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &device.RoleChangeError{
			Device: s.info.ID,
			Role:   role,
			Err:    fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
		}
	}
}
