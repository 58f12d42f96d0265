package rolekeeper

import (
	"go.opentelemetry.io/otel/metric"
	"k8s.io/client-go/kubernetes"

	"github.com/bft-labs/rolekeeper/internal/ports"
	"github.com/bft-labs/rolekeeper/pkg/lifecycle"
	"github.com/bft-labs/rolekeeper/pkg/log"
)

// Logger is the interface for structured logging.
type Logger = log.Logger

// LogField represents a structured log field.
type LogField = log.Field

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// SessionDialer opens device sessions.
type SessionDialer = ports.SessionDialer

// Option configures optional behavior of Rolekeeper.
type Option func(*options)

// options holds the optional configuration for a Rolekeeper instance.
type options struct {
	httpClient    ports.HTTPClient
	logger        log.Logger
	eventHandler  EventHandler
	listener      lifecycle.MastershipChangeListener
	provider      lifecycle.SingletonProvider
	kubeClient    kubernetes.Interface
	meterProvider metric.MeterProvider
	dialer        ports.SessionDialer
	plugins       []Plugin
}

// defaultOptions returns options with sensible defaults.
func defaultOptions(client ports.HTTPClient) options {
	return options{
		httpClient: client,
		logger:     log.NewNoopLogger(),
	}
}

// WithHTTPClient sets the HTTP client used to talk to devices.
// If not provided, a client with Config.HTTPTimeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = log.OrNoop(logger)
	}
}

// WithEventHandler sets a handler for run state transitions.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithListener adds a listener for role changes of every device.
func WithListener(listener lifecycle.MastershipChangeListener) Option {
	return func(o *options) {
		o.listener = listener
	}
}

// WithProvider replaces the election backend selected by Config.Election.
// The caller owns the provider; Stop does not stop it.
func WithProvider(provider lifecycle.SingletonProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithKubernetesClient sets the client of the Kubernetes election backend.
// If not provided, one is built from Config.Kubeconfig or the in-cluster
// configuration.
func WithKubernetesClient(client kubernetes.Interface) Option {
	return func(o *options) {
		o.kubeClient = client
	}
}

// WithMeterProvider enables role change metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithSessionDialer replaces the HTTP device sessions.
func WithSessionDialer(dialer SessionDialer) Option {
	return func(o *options) {
		o.dialer = dialer
	}
}

// WithPlugin registers a plugin to be initialized when Rolekeeper starts.
// Plugins are initialized in registration order and shutdown in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
