package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"hermes/pkg/backoff"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
	"hermes/pkg/models"
)

// Payload is a decoded JSON object. Failed requests yield an empty Payload.
type Payload map[string]interface{}

// IdentitySource supplies and rotates the outbound User-Agent
type IdentitySource interface {
	Rotate() string
	Current() string
}

// ProxySource rotates the egress proxy
type ProxySource interface {
	Advance() (models.Proxy, bool)
	Len() int
}

// Pacer bounds the outbound request rate
type Pacer interface {
	Wait(ctx context.Context) error
}

// Options controls timeouts, rotation cadence and rate-limit handling
type Options struct {
	Timeout             time.Duration
	IdentityRotateEvery int
	ProxyRotateEvery    int
	BackoffMin          time.Duration
	BackoffMax          time.Duration
	RotateProxyOnError  bool

	// Transport overrides the HTTP transport; ProxyPool.Transport is the usual value
	Transport http.RoundTripper

	// Pacer, when set, is waited on before every request
	Pacer Pacer
}

// DefaultOptions returns the standard cadence: identity every 10 requests,
// proxy every 5, 10s timeout and a 5-10s rate-limit backoff
func DefaultOptions() Options {
	return Options{
		Timeout:             10 * time.Second,
		IdentityRotateEvery: 10,
		ProxyRotateEvery:    5,
		BackoffMin:          5 * time.Second,
		BackoffMax:          10 * time.Second,
		RotateProxyOnError:  true,
	}
}

// Stats is a snapshot of gateway counters since construction
type Stats struct {
	Requests          int64
	RateLimitHits     int64
	IdentityRotations int64
	ProxyRotations    int64
	Failures          int64
}

// Gateway issues one GET at a time on behalf of the discovery strategies.
// It owns the session headers, identity and proxy rotation, and the counters
// that drive rotation cadence.
type Gateway struct {
	client   *http.Client
	identity IdentitySource
	proxies  ProxySource
	headers  map[string]string
	opts     Options
	backoff  backoff.Strategy
	logger   logger.Logger

	// serializes requests; the cadence counters assume one in-flight call
	mu sync.Mutex

	requests          atomic.Int64
	rateLimitHits     atomic.Int64
	identityRotations atomic.Int64
	proxyRotations    atomic.Int64
	failures          atomic.Int64

	wait func(ctx context.Context, d time.Duration) error
}

// New creates a gateway. proxies may be nil when no pool is configured.
func New(identity IdentitySource, proxies ProxySource, opts Options, log logger.Logger) *Gateway {
	if log == nil {
		log = logger.WithComponent("gateway")
	}
	defaults := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.IdentityRotateEvery <= 0 {
		opts.IdentityRotateEvery = defaults.IdentityRotateEvery
	}
	if opts.ProxyRotateEvery <= 0 {
		opts.ProxyRotateEvery = defaults.ProxyRotateEvery
	}

	client := &http.Client{Timeout: opts.Timeout}
	if opts.Transport != nil {
		client.Transport = opts.Transport
	}

	return &Gateway{
		client:   client,
		identity: identity,
		proxies:  proxies,
		headers: map[string]string{
			"Accept":          "application/json, text/plain, */*",
			"Accept-Language": "en-US,en;q=0.9",
			"Referer":         BaseURL + "/",
			"Origin":          BaseURL,
		},
		opts:    opts,
		backoff: backoff.Uniform{Min: opts.BackoffMin, Max: opts.BackoffMax},
		logger:  log,
		wait:    backoff.Wait,
	}
}

// SetHeader sets a session header sent with every request
func (g *Gateway) SetHeader(key, value string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.headers[key] = value
}

// Fetch performs one GET against endpoint. It never returns an error: every
// failure is logged, classified and answered with an empty Payload.
func (g *Gateway) Fetch(ctx context.Context, endpoint string, params url.Values) Payload {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.opts.Pacer != nil {
		if err := g.opts.Pacer.Wait(ctx); err != nil {
			g.logger.Debug("Request budget wait interrupted")
			return Payload{}
		}
	}

	if ctx.Err() != nil {
		g.logger.Debug("Skipping request after cancellation")
		return Payload{}
	}

	n := g.requests.Add(1)
	if n%int64(g.opts.IdentityRotateEvery) == 0 {
		g.rotateIdentity("cadence")
	}
	if g.hasProxies() && n%int64(g.opts.ProxyRotateEvery) == 0 {
		g.rotateProxy("cadence")
	}

	target := BuildURL(endpoint, params)
	payload, err := g.do(ctx, target)
	if err == nil {
		return payload
	}
	if ctx.Err() != nil {
		g.logger.DebugWithFields("Request cancelled", map[string]interface{}{
			"endpoint": endpoint,
			"request":  n,
		})
		return Payload{}
	}

	g.failures.Add(1)
	switch errors.TypeOf(err) {
	case errors.ErrorTypeRateLimit:
		g.handleRateLimit(ctx, endpoint)
	case errors.ErrorTypeNetwork:
		g.logger.WithError(err).ErrorWithFields("Request failed", map[string]interface{}{
			"endpoint": endpoint,
			"request":  n,
		})
		if g.opts.RotateProxyOnError && g.hasProxies() {
			g.rotateProxy("network_error")
		}
	default:
		g.logger.WithError(err).ErrorWithFields("Request returned no usable data", map[string]interface{}{
			"endpoint":  endpoint,
			"request":   n,
			"type":      string(errors.TypeOf(err)),
			"retryable": errors.IsRetryable(errors.TypeOf(err)),
		})
	}
	return Payload{}
}

// do sends the request and decodes a 200 body
func (g *Gateway) do(ctx context.Context, target string) (Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeUnknown, 0, "failed to create request", err)
	}
	for key, value := range g.headers {
		req.Header.Set(key, value)
	}
	if g.identity != nil {
		req.Header.Set("User-Agent", g.identity.Current())
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNetwork, 0, "request failed", err)
	}
	defer resp.Body.Close()

	logger.LogRequest(g.logger, req.Method, target, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, errors.New(errors.ClassifyStatus(resp.StatusCode), resp.StatusCode,
			fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNetwork, resp.StatusCode, "failed to read response body", err)
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return nil, errors.Wrap(errors.ErrorTypeParsing, resp.StatusCode,
			fmt.Sprintf("invalid JSON body: %s", preview), err)
	}
	if payload == nil {
		payload = Payload{}
	}
	return payload, nil
}

// handleRateLimit rotates both identity and proxy, then blocks for the backoff
func (g *Gateway) handleRateLimit(ctx context.Context, endpoint string) {
	hits := g.rateLimitHits.Add(1)
	g.rotateIdentity("rate_limited")
	if g.hasProxies() {
		g.rotateProxy("rate_limited")
	}

	delay := g.backoff.NextDelay()
	logger.LogRateLimit(g.logger, endpoint, delay, hits)

	if err := g.wait(ctx, delay); err != nil {
		g.logger.Debug("Rate limit backoff interrupted")
	}
}

func (g *Gateway) hasProxies() bool {
	return g.proxies != nil && g.proxies.Len() > 0
}

func (g *Gateway) rotateIdentity(reason string) {
	if g.identity == nil {
		return
	}
	agent := g.identity.Rotate()
	g.identityRotations.Add(1)
	logger.LogRotation(g.logger, "identity", reason, agent)
}

func (g *Gateway) rotateProxy(reason string) {
	px, ok := g.proxies.Advance()
	if !ok {
		return
	}
	g.proxyRotations.Add(1)
	logger.LogRotation(g.logger, "proxy", reason, px.String())
}

// Stats returns the current counters
func (g *Gateway) Stats() Stats {
	return Stats{
		Requests:          g.requests.Load(),
		RateLimitHits:     g.rateLimitHits.Load(),
		IdentityRotations: g.identityRotations.Load(),
		ProxyRotations:    g.proxyRotations.Load(),
		Failures:          g.failures.Load(),
	}
}
