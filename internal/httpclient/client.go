// Package httpclient provides the HTTP client used for dataset downloads.
// It wraps the standard http.Client with context management, timeout
// enforcement, connection pooling, conditional requests and observability
// hooks.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tphakala/gridscreen-go/internal/errors"
)

const (
	// DefaultTimeout is applied when the request context carries no deadline.
	DefaultTimeout = 30 * time.Second

	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second

	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultResponseHeaderTimeout = 10 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultDialTimeout           = 30 * time.Second
	defaultDialKeepAlive         = 30 * time.Second

	defaultUserAgent = "GridScreen-Go"

	// Fetch retries transient failures a few times with a linear backoff.
	maxFetchAttempts = 3
	fetchRetryDelay  = 500 * time.Millisecond

	// maxErrorBodyPreview limits how much of a failed response body ends up
	// inside the returned error.
	maxErrorBodyPreview = 200
)

// Client wraps http.Client for the dataset fetch paths. Requests run under
// the caller's context, pick up the default timeout when that context has no
// deadline, and carry the configured User-Agent. Hooks observe every request
// for metrics and logging. Safe for concurrent use.
type Client struct {
	client         *http.Client
	defaultTimeout time.Duration
	userAgent      string
	// Hooks for observability, protected by hookMu.
	hookMu        sync.RWMutex
	beforeRequest func(*http.Request)
	afterResponse func(*http.Request, *http.Response, error)
}

// Config holds configuration for creating an HTTP client. Zero values fall
// back to the DefaultConfig numbers.
type Config struct {
	DefaultTimeout time.Duration // applied when the request context has no deadline
	UserAgent      string        // sent when the request sets none

	// Connection pool tuning.
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// Per-phase network timeouts.
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	ExpectContinueTimeout time.Duration

	DisableKeepAlives  bool
	DisableCompression bool

	// Transport replaces the pooled transport entirely when set. The pool
	// and timeout fields above are ignored in that case. Used by tests to
	// inject a mock transport.
	Transport http.RoundTripper
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:        DefaultTimeout,
		UserAgent:             defaultUserAgent,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: defaultResponseHeaderTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
		DisableKeepAlives:     false,
		DisableCompression:    false,
	}
}

// New creates a new HTTP client with the given configuration.
// Accepts nil cfg (falls back to DefaultConfig) and does not mutate the
// caller's config.
func New(cfg *Config) *Client {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
		def := DefaultConfig()
		if c.DefaultTimeout == 0 {
			c.DefaultTimeout = def.DefaultTimeout
		}
		if c.UserAgent == "" {
			c.UserAgent = def.UserAgent
		}
		if c.MaxIdleConns == 0 {
			c.MaxIdleConns = def.MaxIdleConns
		}
		if c.MaxIdleConnsPerHost == 0 {
			c.MaxIdleConnsPerHost = def.MaxIdleConnsPerHost
		}
		if c.IdleConnTimeout == 0 {
			c.IdleConnTimeout = def.IdleConnTimeout
		}
		if c.TLSHandshakeTimeout == 0 {
			c.TLSHandshakeTimeout = def.TLSHandshakeTimeout
		}
		if c.ResponseHeaderTimeout == 0 {
			c.ResponseHeaderTimeout = def.ResponseHeaderTimeout
		}
		if c.ExpectContinueTimeout == 0 {
			c.ExpectContinueTimeout = def.ExpectContinueTimeout
		}
	}

	var transport http.RoundTripper = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   defaultDialTimeout,
			KeepAlive: defaultDialKeepAlive,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          c.MaxIdleConns,
		MaxIdleConnsPerHost:   c.MaxIdleConnsPerHost,
		IdleConnTimeout:       c.IdleConnTimeout,
		TLSHandshakeTimeout:   c.TLSHandshakeTimeout,
		ResponseHeaderTimeout: c.ResponseHeaderTimeout,
		ExpectContinueTimeout: c.ExpectContinueTimeout,
		DisableKeepAlives:     c.DisableKeepAlives,
		DisableCompression:    c.DisableCompression,
	}
	if c.Transport != nil {
		transport = c.Transport
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			// No default timeout, handled per-request with context
		},
		defaultTimeout: c.DefaultTimeout,
		userAgent:      c.UserAgent,
	}
}

// Do executes the request under ctx. A context without a deadline gets the
// client's default timeout; cancellation aborts the request immediately. On
// success the caller owns resp.Body.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req = req.WithContext(ctx)

	// Give deadline-less contexts the default timeout
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.hookMu.RLock()
	beforeHook := c.beforeRequest
	c.hookMu.RUnlock()
	if beforeHook != nil {
		beforeHook(req)
	}

	resp, err := c.client.Do(req)

	c.hookMu.RLock()
	afterHook := c.afterResponse
	c.hookMu.RUnlock()
	if afterHook != nil {
		afterHook(req, resp, err)
	}

	return resp, err
}

// Get issues a GET for the URL through Do.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating GET request: %w", err)
	}
	return c.Do(ctx, req)
}

// Validators carries the cache validators returned by a previous fetch of
// the same URL. Zero value means no conditional headers are sent.
type Validators struct {
	ETag         string
	LastModified string
}

// FetchResult is the outcome of a Fetch call. When NotModified is true the
// server confirmed the cached payload is still current and Body is nil.
type FetchResult struct {
	Body        []byte
	Validators  Validators
	NotModified bool
	Status      int
}

// Fetch downloads a URL with conditional request support. Known validators
// from a previous fetch are sent as If-None-Match / If-Modified-Since, and a
// 304 response is reported through FetchResult.NotModified rather than as an
// error. Transient failures (network errors, 5xx, 429) are retried with a
// linear backoff; client errors fail immediately.
func (c *Client) Fetch(ctx context.Context, url string, prev Validators) (*FetchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var lastErr error
	for attempt := range maxFetchAttempts {
		result, retryable, err := c.fetchOnce(ctx, url, prev)
		if err == nil {
			return result, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, lastErr
		}
		if attempt < maxFetchAttempts-1 {
			delay := time.Duration(attempt+1) * fetchRetryDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

// fetchOnce performs a single conditional GET attempt. The second return
// value reports whether the failure is worth retrying.
func (c *Client) fetchOnce(ctx context.Context, url string, prev Validators) (*FetchResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, false, errors.New(err).
			Component("httpclient").
			Category(errors.CategoryValidation).
			Context("operation", "create_fetch_request").
			Context("url", url).
			Build()
	}
	if prev.ETag != "" {
		req.Header.Set("If-None-Match", prev.ETag)
	}
	if prev.LastModified != "" {
		req.Header.Set("If-Modified-Since", prev.LastModified)
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, true, errors.New(err).
			Component("httpclient").
			Category(errors.CategoryNetwork).
			Context("operation", "fetch").
			NetworkContext(url, c.defaultTimeout).
			Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return &FetchResult{Validators: prev, NotModified: true, Status: resp.StatusCode}, false, nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, true, errors.New(readErr).
				Component("httpclient").
				Category(errors.CategoryNetwork).
				Context("operation", "read_fetch_body").
				NetworkContext(url, c.defaultTimeout).
				Build()
		}
		return &FetchResult{
			Body: body,
			Validators: Validators{
				ETag:         resp.Header.Get("ETag"),
				LastModified: resp.Header.Get("Last-Modified"),
			},
			Status: resp.StatusCode,
		}, false, nil

	default:
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyPreview))
		statusErr := errors.Newf("fetch returned status %d: %s", resp.StatusCode, string(preview)).
			Component("httpclient").
			Category(statusCategory(resp.StatusCode)).
			Context("operation", "fetch").
			Context("status_code", resp.StatusCode).
			NetworkContext(url, c.defaultTimeout).
			Build()
		return nil, retryableStatus(resp.StatusCode), statusErr
	}
}

// statusCategory maps an HTTP status to an error category.
func statusCategory(status int) errors.ErrorCategory {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.CategoryConfiguration
	case http.StatusNotFound:
		return errors.CategoryNotFound
	default:
		return errors.CategoryHTTP
	}
}

// retryableStatus reports whether a non-2xx status is worth another attempt.
func retryableStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

// SetBeforeRequestHook installs fn to run before every request. Safe to call
// concurrently with Do.
func (c *Client) SetBeforeRequestHook(fn func(*http.Request)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.beforeRequest = fn
}

// SetAfterResponseHook installs fn to run after every request, including
// failed ones. Safe to call concurrently with Do.
func (c *Client) SetAfterResponseHook(fn func(*http.Request, *http.Response, error)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.afterResponse = fn
}

// Close drops the idle connections held by the pool.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}
