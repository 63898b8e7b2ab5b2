// Package http provides the HTTP client used for all feed traffic.
//
// It wraps the standard http.Client with retry, per-host circuit breaking,
// an injected proxy provider, structured request logging and Prometheus
// metrics. Proxy configuration is never discovered from the environment;
// the collaborator owning proxy policy injects a ProxyProvider.
package http

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/yever/Paket/observability"
	"github.com/yever/Paket/resilience"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultDialTimeout = 10 * time.Second

	// DefaultUserAgent identifies the client to feeds.
	DefaultUserAgent = "Paket"
)

// ProxyProvider supplies per-URL proxy configuration.
// A nil provider means direct connections.
type ProxyProvider func(req *http.Request) (*url.URL, error)

// Client wraps http.Client with feed-specific behavior.
type Client struct {
	httpClient  *http.Client
	userAgent   string
	retryConfig *RetryConfig
	logger      observability.Logger
	breaker     *resilience.FeedBreaker // optional, nil disables
}

// Config holds HTTP client configuration.
type Config struct {
	Timeout       time.Duration
	DialTimeout   time.Duration
	UserAgent     string
	TLSConfig     *tls.Config
	MaxIdleConns  int
	EnableHTTP2   bool
	RetryConfig   *RetryConfig
	Proxy         ProxyProvider           // optional proxy provider (nil = direct)
	Logger        observability.Logger    // optional logger (nil uses NullLogger)
	EnableTracing bool                    // enable OpenTelemetry HTTP tracing
	Breaker       *resilience.FeedBreaker // optional circuit breaker (nil disables)
}

// DefaultConfig returns a client configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Timeout:      DefaultTimeout,
		DialTimeout:  DefaultDialTimeout,
		UserAgent:    DefaultUserAgent,
		MaxIdleConns: 100,
		EnableHTTP2:  true,
		RetryConfig:  DefaultRetryConfig(),
	}
}

// NewClient creates a new HTTP client with the given configuration.
func NewClient(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = DefaultRetryConfig()
	}

	transport := &http.Transport{
		Proxy: proxyFunc(cfg.Proxy),
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     cfg.TLSConfig,
		ForceAttemptHTTP2:   cfg.EnableHTTP2,
	}

	var finalTransport http.RoundTripper = transport
	if cfg.EnableTracing {
		finalTransport = observability.NewHTTPTracingTransport(transport, "github.com/yever/Paket/http")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewNullLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Transport: finalTransport,
			Timeout:   cfg.Timeout,
		},
		userAgent:   cfg.UserAgent,
		retryConfig: cfg.RetryConfig,
		logger:      logger,
		breaker:     cfg.Breaker,
	}
}

func proxyFunc(p ProxyProvider) func(*http.Request) (*url.URL, error) {
	if p == nil {
		return nil
	}
	return p
}

// Do executes an HTTP request with context and user agent.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	host := req.URL.Host

	if c.breaker != nil {
		if err := c.breaker.Allow(host); err != nil {
			return nil, fmt.Errorf("host %s: %w", host, err)
		}
	}

	resp, err := c.execute(ctx, req)

	if c.breaker != nil {
		c.breaker.Report(host, err == nil && resp.StatusCode < 500)
	}

	return resp, err
}

func (c *Client) execute(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.WarnContext(ctx, "HTTP {Method} {URL} failed after {Duration}ms: {Error}",
			req.Method, req.URL.String(), duration.Milliseconds(), err)
		observability.HTTPRequestsTotal.WithLabelValues(req.Method, "error", req.URL.Host).Inc()
		return nil, err
	}

	c.logger.DebugContext(ctx, "HTTP {Method} {URL} → {StatusCode} ({Duration}ms)",
		req.Method, req.URL.String(), resp.StatusCode, duration.Milliseconds())
	observability.HTTPRequestsTotal.WithLabelValues(req.Method, fmt.Sprintf("%d", resp.StatusCode), req.URL.Host).Inc()
	observability.HTTPRequestDuration.WithLabelValues(req.Method, req.URL.Host).Observe(duration.Seconds())

	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.Do(ctx, req)
}

// DoWithRetry executes an HTTP request with retry on transient faults.
// Retries cover transport errors and 429/503/504 responses; everything else
// is returned to the caller, who decides at the source-iteration level.
func (c *Client) DoWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	host := req.URL.Host

	if c.breaker != nil {
		if err := c.breaker.Allow(host); err != nil {
			return nil, fmt.Errorf("host %s: %w", host, err)
		}
	}

	resp, err := c.doWithRetry(ctx, req)

	if c.breaker != nil {
		c.breaker.Report(host, err == nil && resp.StatusCode < 500)
	}

	return resp, err
}

func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	var resp *http.Response

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		// Clone request for retry (body may have been consumed)
		reqClone := req.Clone(ctx)
		if reqClone.Header.Get("User-Agent") == "" {
			reqClone.Header.Set("User-Agent", c.userAgent)
		}

		resp, lastErr = c.execute(ctx, reqClone)

		if lastErr == nil && !IsRetriableStatus(resp.StatusCode) {
			if attempt > 0 {
				c.logger.InfoContext(ctx, "HTTP {Method} {URL} succeeded after {Attempt} retries",
					req.Method, req.URL.String(), attempt)
			}
			return resp, nil
		}

		if lastErr != nil && !IsRetriable(lastErr) {
			return nil, lastErr
		}

		if attempt < c.retryConfig.MaxRetries {
			var backoff time.Duration
			if resp != nil {
				backoff = ParseRetryAfter(resp.Header.Get("Retry-After"))
			}
			if backoff == 0 {
				backoff = c.retryConfig.CalculateBackoff(attempt)
			}

			c.logger.DebugContext(ctx, "HTTP {Method} {URL} retry {Attempt}/{MaxRetries} after {Backoff}ms",
				req.Method, req.URL.String(), attempt+1, c.retryConfig.MaxRetries, backoff.Milliseconds())

			if resp != nil {
				_ = resp.Body.Close()
			}

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("after %d retries: %w", c.retryConfig.MaxRetries, lastErr)
	}
	return resp, nil
}
