package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client configuration defaults.
const (
	// DefaultBaseURL is the public crates.io API root.
	DefaultBaseURL = "https://crates.io/api"

	// DefaultRequestDelay is the courtesy pause before each uncached
	// request, keeping the tool polite to the public registry.
	DefaultRequestDelay = 1 * time.Second

	// DefaultUserAgent identifies the tool to the registry, as the
	// crates.io crawler policy asks.
	DefaultUserAgent = "categorycheck (https://github.com/crateops/categorycheck)"

	// maxErrBody caps how much of an offending response body is carried
	// inside a ProtocolError.
	maxErrBody = 4096
)

// categoryPath is the lookup path template relative to the API base.
const categoryPath = "v1/categories/"

// Client looks category slugs up in the registry taxonomy, memoizing every
// outcome by request URL.
type Client struct {
	baseURL   string
	client    *http.Client
	cache     Cache
	delay     time.Duration
	userAgent string
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithTimeout sets an HTTP request timeout. By default no timeout is set
// and a hung registry blocks the run; CI callers that care should either
// set one here or wrap the whole invocation externally.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// WithRequestDelay sets the courtesy pause before each uncached request.
// Zero disables the pause; tests use this to stay fast.
func WithRequestDelay(d time.Duration) Option {
	return func(c *Client) {
		c.delay = d
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithCache sets an external lookup cache.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithLogger sets a structured logger for request diagnostics.
// If not set, logging is disabled (silent mode).
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the given registry API base URL. An empty
// baseURL selects the public crates.io endpoint.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		client:    &http.Client{},
		cache:     NewMemoryCache(),
		delay:     DefaultRequestDelay,
		userAgent: DefaultUserAgent,
		logger:    slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the registry API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Lookup resolves a category slug against the registry taxonomy.
//
// It returns (entry, true, nil) when the registry knows the slug,
// (nil, false, nil) when it explicitly does not, and a *ProtocolError when
// the response fits neither shape. Outcomes, including absences, are
// cached by request URL; a cache hit performs no network I/O.
func (c *Client) Lookup(ctx context.Context, slug string) (*Category, bool, error) {
	reqURL := c.baseURL + "/" + categoryPath + url.PathEscape(slug)

	if res, ok := c.cache.Get(reqURL); ok {
		c.logger.Debug("lookup cache hit", "slug", slug, "found", res.Found)
		return res.Category, res.Found, nil
	}

	if err := c.pause(ctx); err != nil {
		return nil, false, err
	}

	c.logger.Debug("lookup", "slug", slug, "url", reqURL)
	status, body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, false, err
	}

	switch status {
	case http.StatusOK:
		return c.classifyOK(reqURL, slug, body)
	case http.StatusNotFound:
		return c.classifyNotFound(reqURL, slug, body)
	default:
		return nil, false, &ProtocolError{
			URL:        reqURL,
			StatusCode: status,
			Reason:     "unexpected HTTP status",
			Body:       clip(body),
		}
	}
}

// classifyOK handles a 200 response: the body must be a JSON object with a
// "category" key wrapping the taxonomy entry.
func (c *Client) classifyOK(reqURL, slug string, body []byte) (*Category, bool, error) {
	fields, perr := decodeObject(reqURL, http.StatusOK, body)
	if perr != nil {
		c.logger.Error("registry returned a non-JSON body", "url", reqURL, "body", clip(body))
		return nil, false, perr
	}

	raw, ok := fields["category"]
	if !ok {
		return nil, false, &ProtocolError{
			URL:        reqURL,
			StatusCode: http.StatusOK,
			Reason:     "unexpected JSON data: no \"category\" key",
			Body:       clip(body),
		}
	}

	var cat Category
	if err := json.Unmarshal(raw, &cat); err != nil {
		return nil, false, &ProtocolError{
			URL:        reqURL,
			StatusCode: http.StatusOK,
			Reason:     fmt.Sprintf("malformed category object: %v", err),
			Body:       clip(body),
		}
	}

	c.cache.Put(reqURL, Result{Category: &cat, Found: true})
	c.logger.Debug("category found", "slug", slug, "subcategories", len(cat.Subcategories))
	return &cat, true, nil
}

// classifyNotFound handles a 404 response: only a JSON body carrying an
// "errors" key counts as the registry's explicit "no such category".
func (c *Client) classifyNotFound(reqURL, slug string, body []byte) (*Category, bool, error) {
	fields, perr := decodeObject(reqURL, http.StatusNotFound, body)
	if perr != nil {
		c.logger.Error("registry returned a non-JSON body", "url", reqURL, "body", clip(body))
		return nil, false, perr
	}

	if _, ok := fields["errors"]; !ok {
		return nil, false, &ProtocolError{
			URL:        reqURL,
			StatusCode: http.StatusNotFound,
			Reason:     "404 without \"errors\" marker",
			Body:       clip(body),
		}
	}

	c.cache.Put(reqURL, Result{Found: false})
	c.logger.Debug("category not known at registry", "slug", slug)
	return nil, false, nil
}

// get performs the HTTP request and returns the status code and body.
// Transport-level failures are protocol errors too: the registry could not
// be asked, so the run cannot conclude anything about the taxonomy.
func (c *Client) get(ctx context.Context, reqURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return 0, nil, &ProtocolError{URL: reqURL, Reason: fmt.Sprintf("building request: %v", err)}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, &ProtocolError{URL: reqURL, Reason: fmt.Sprintf("request failed: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &ProtocolError{
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Reason:     fmt.Sprintf("reading body: %v", err),
		}
	}

	return resp.StatusCode, body, nil
}

// pause sleeps for the courtesy delay, honoring context cancellation.
func (c *Client) pause(ctx context.Context) error {
	if c.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// decodeObject unmarshals a response body into a JSON object, mapping any
// failure to a ProtocolError.
func decodeObject(reqURL string, status int, body []byte) (map[string]json.RawMessage, *ProtocolError) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, &ProtocolError{
			URL:        reqURL,
			StatusCode: status,
			Reason:     fmt.Sprintf("body is not a JSON object: %v", err),
			Body:       clip(body),
		}
	}
	return fields, nil
}

// clip bounds a body for inclusion in error messages.
func clip(body []byte) string {
	if len(body) > maxErrBody {
		return string(body[:maxErrBody]) + "...(truncated)"
	}
	return string(body)
}
