// Package proxy keeps the ordered egress proxy list and exposes it as an
// http.Transport that always dials through the currently active entry.
package proxy

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	xproxy "golang.org/x/net/proxy"

	"hermes/pkg/logger"
	"hermes/pkg/models"
)

const (
	SchemeHTTP   = "http"
	SchemeHTTPS  = "https"
	SchemeSOCKS5 = "socks5"
)

// Pool is a round-robin proxy list. The zero index is only active until the
// first Advance; Load advances once so the second entry is used first.
type Pool struct {
	mu      sync.RWMutex
	proxies []models.Proxy
	index   int
	scheme  string
	logger  logger.Logger
}

// NewPool creates an empty pool dialing with scheme (http, https or socks5)
func NewPool(scheme string, log logger.Logger) *Pool {
	if log == nil {
		log = logger.WithComponent("proxy")
	}
	if scheme == "" {
		scheme = SchemeHTTP
	}
	return &Pool{scheme: strings.ToLower(scheme), logger: log}
}

// LoadFile replaces the pool with the proxies listed in path
func (p *Pool) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open proxy file: %w", err)
	}
	defer f.Close()

	return p.Load(f)
}

// Load replaces the pool with the proxies read from r and returns how many were accepted.
// Lines are host:port or host:port:user:pass; blanks and #-comments are ignored and
// any other shape is skipped.
func (p *Pool) Load(r io.Reader) (int, error) {
	var parsed []models.Proxy

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		px, err := ParseLine(line)
		if err != nil {
			p.logger.WarnWithFields("Skipping malformed proxy line", map[string]interface{}{
				"line":  lineNo,
				"error": err.Error(),
			})
			continue
		}
		parsed = append(parsed, px)
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read proxy list: %w", err)
	}

	p.mu.Lock()
	p.proxies = parsed
	p.index = 0
	p.mu.Unlock()

	p.Advance()

	p.logger.InfoWithFields("Proxy list loaded", map[string]interface{}{
		"count":  len(parsed),
		"scheme": p.scheme,
	})
	return len(parsed), nil
}

// ParseLine parses host:port or host:port:user:pass
func ParseLine(line string) (models.Proxy, error) {
	parts := strings.Split(line, ":")
	if len(parts) != 2 && len(parts) != 4 {
		return models.Proxy{}, fmt.Errorf("expected 2 or 4 fields, got %d", len(parts))
	}

	port, err := strconv.Atoi(parts[1])
	if err != nil {
		return models.Proxy{}, fmt.Errorf("invalid port %q", parts[1])
	}

	px := models.Proxy{Host: parts[0], Port: port}
	if len(parts) == 4 {
		px.Username = parts[2]
		px.Password = parts[3]
	}
	return px, nil
}

// Advance moves to the next proxy and returns it. It is a no-op on an empty pool.
func (p *Pool) Advance() (models.Proxy, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return models.Proxy{}, false
	}
	p.index = (p.index + 1) % len(p.proxies)
	return p.proxies[p.index], true
}

// Current returns the active proxy
func (p *Pool) Current() (models.Proxy, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.proxies) == 0 {
		return models.Proxy{}, false
	}
	return p.proxies[p.index], true
}

// Index returns the active position
func (p *Pool) Index() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.index
}

// Len returns the pool size
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.proxies)
}

// All returns a copy of the proxies in load order
func (p *Pool) All() []models.Proxy {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]models.Proxy, len(p.proxies))
	copy(out, p.proxies)
	return out
}

// Scheme returns the dial scheme
func (p *Pool) Scheme() string {
	return p.scheme
}

// Transport returns a transport that resolves the active proxy per connection
func (p *Pool) Transport(timeout time.Duration) *http.Transport {
	t := &http.Transport{
		MaxIdleConns:          10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		// a rotation must take effect on the next request, not the next idle timeout
		DisableKeepAlives: true,
	}

	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	if p.scheme == SchemeSOCKS5 {
		t.DialContext = p.socksDialContext(dialer)
	} else {
		t.Proxy = p.proxyURL
		t.DialContext = dialer.DialContext
	}
	return t
}

// proxyURL implements http.Transport.Proxy for http(s) proxies
func (p *Pool) proxyURL(*http.Request) (*url.URL, error) {
	px, ok := p.Current()
	if !ok {
		return nil, nil
	}
	return px.URL(p.scheme), nil
}

// socksDialContext dials through the active proxy, or directly when the pool is empty
func (p *Pool) socksDialContext(forward *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		px, ok := p.Current()
		if !ok {
			return forward.DialContext(ctx, network, addr)
		}

		var auth *xproxy.Auth
		if px.HasAuth() {
			auth = &xproxy.Auth{User: px.Username, Password: px.Password}
		}

		d, err := xproxy.SOCKS5("tcp", px.Address(), auth, forward)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		if cd, ok := d.(xproxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, addr)
		}
		return d.Dial(network, addr)
	}
}
