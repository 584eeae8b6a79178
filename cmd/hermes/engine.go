package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"hermes/pkg/config"
	"hermes/pkg/discovery"
	"hermes/pkg/gateway"
	"hermes/pkg/identity"
	"hermes/pkg/logger"
	"hermes/pkg/proxy"
	"hermes/pkg/ratelimit"
	"hermes/pkg/storage"
)

// engine wires the discovery components for one command invocation
type engine struct {
	cfg     *config.Config
	pool    *proxy.Pool
	gateway *gateway.Gateway
	store   *discovery.Store
	backend storage.Backend
	filter  discovery.Filter
}

// setupLogging installs the global logger. The dashboard owns the terminal,
// so in that mode console output is discarded and only a log file receives
// entries.
func setupLogging(cfg *config.Config, dashboard bool) error {
	if !dashboard {
		return logger.Initialize(&cfg.Logging)
	}

	l, err := logger.NewWithWriter(&cfg.Logging, io.Discard)
	if err != nil {
		return err
	}
	logger.SetLogger(l)
	return nil
}

// isTerminal reports whether stdout is attached to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// openState opens the configured backend and loads the known accounts
func openState(ctx context.Context, cfg *config.Config) (*discovery.Store, storage.Backend, error) {
	backend, err := storage.Open(cfg.Storage, logger.WithComponent("storage"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	snap, err := backend.Load(ctx)
	if err != nil {
		backend.Close()
		return nil, nil, fmt.Errorf("failed to load found usernames: %w", err)
	}

	store := discovery.NewStore()
	n := store.Restore(snap)
	logger.WithFields(map[string]interface{}{
		"count":   n,
		"backend": cfg.Storage.Backend,
		"path":    cfg.Storage.Path,
	}).Info("Loaded previously found usernames")

	return store, backend, nil
}

// newEngine builds the proxy pool, gateway and state for cfg
func newEngine(ctx context.Context, cfg *config.Config) (*engine, error) {
	pool := proxy.NewPool(cfg.Proxy.Scheme, logger.WithComponent("proxy"))
	if cfg.Proxy.File != "" {
		if _, err := pool.LoadFile(cfg.Proxy.File); err != nil {
			return nil, err
		}
	}

	var agents []string
	if cfg.Gateway.UserAgent != "" {
		agents = append(agents, cfg.Gateway.UserAgent)
	}

	opts := gateway.Options{
		Timeout:             cfg.Gateway.Timeout,
		IdentityRotateEvery: cfg.Gateway.IdentityRotateEvery,
		ProxyRotateEvery:    cfg.Gateway.ProxyRotateEvery,
		BackoffMin:          cfg.Gateway.BackoffMin,
		BackoffMax:          cfg.Gateway.BackoffMax,
		RotateProxyOnError:  cfg.Gateway.RotateProxyOnError,
		Transport:           pool.Transport(cfg.Gateway.Timeout),
	}
	if n := cfg.Gateway.MaxRequestsPerMinute; n > 0 {
		opts.Pacer = ratelimit.PerMinute(n)
	}
	gw := gateway.New(identity.NewRotator(agents...), pool, opts, logger.WithComponent("gateway"))

	store, backend, err := openState(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &engine{
		cfg:     cfg,
		pool:    pool,
		gateway: gw,
		store:   store,
		backend: backend,
		filter:  discovery.NewFilter(cfg.Discovery.TargetLength),
	}, nil
}

type profilePatterned interface {
	SetProfileURLPattern(pattern string)
}

func (e *engine) configure(s discovery.Strategy) discovery.Strategy {
	if p, ok := s.(profilePatterned); ok {
		p.SetProfileURLPattern(e.cfg.Discovery.ProfileURLPattern)
	}
	return s
}

func (e *engine) trending() discovery.Strategy {
	return e.configure(discovery.NewTrending(e.gateway, e.filter, e.store, logger.WithComponent("trending")))
}

func (e *engine) suggested() discovery.Strategy {
	return e.configure(discovery.NewSuggestedUsers(e.gateway, e.filter, e.store, logger.WithComponent("suggested")))
}

func (e *engine) keywordSearches(keywords []string) []discovery.Strategy {
	strategies := make([]discovery.Strategy, 0, len(keywords))
	for _, kw := range keywords {
		strategies = append(strategies, e.configure(discovery.NewKeywordSearch(kw, e.gateway, e.filter, e.store, logger.WithComponent("search"))))
	}
	return strategies
}

func (e *engine) Close() error {
	return e.backend.Close()
}
