package categorycheck

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures a validation run.
type Option func(*checkConfig)

// checkConfig holds all run configuration.
type checkConfig struct {
	lookup      Lookuper
	registryURL string
	httpClient  *http.Client
	delay       time.Duration
	delaySet    bool
	timeout     time.Duration
	onProgress  func(Event)

	// logger is the structured logger for debug/info output.
	// If nil, logging is disabled (silent mode).
	logger *slog.Logger
}

// WithRegistry injects a registry lookup implementation directly,
// bypassing client construction. Intended for tests and embedders that
// already hold a configured client.
func WithRegistry(l Lookuper) Option {
	return func(c *checkConfig) {
		c.lookup = l
	}
}

// WithRegistryURL sets the registry API base URL. Empty selects the
// public crates.io endpoint.
func WithRegistryURL(url string) Option {
	return func(c *checkConfig) {
		c.registryURL = url
	}
}

// WithHTTPClient sets a custom HTTP client for registry requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *checkConfig) {
		c.httpClient = client
	}
}

// WithRequestDelay sets the courtesy pause before each uncached registry
// request. Zero disables the pause.
func WithRequestDelay(d time.Duration) Option {
	return func(c *checkConfig) {
		c.delay = d
		c.delaySet = true
	}
}

// WithTimeout sets an HTTP request timeout for registry lookups.
func WithTimeout(d time.Duration) Option {
	return func(c *checkConfig) {
		c.timeout = d
	}
}

// WithProgress sets a callback for run progress events: one per package
// checked and one per problem found, in order.
func WithProgress(fn func(Event)) Option {
	return func(c *checkConfig) {
		c.onProgress = fn
	}
}

// WithLogger sets a structured logger for run diagnostics.
// If not set, logging is disabled (silent mode).
func WithLogger(l *slog.Logger) Option {
	return func(c *checkConfig) {
		c.logger = l
	}
}
