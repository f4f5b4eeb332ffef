package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/nutri/internal/config"
	"github.com/aretw0/nutri/pkg/adapters/file"
	"github.com/aretw0/nutri/pkg/adapters/memory"
	"github.com/aretw0/nutri/pkg/adapters/redis"
	"github.com/aretw0/nutri/pkg/adapters/rpc"
	"github.com/aretw0/nutri/pkg/adapters/sqlite"
	"github.com/aretw0/nutri/pkg/dispatch"
	"github.com/aretw0/nutri/pkg/machine"
	"github.com/aretw0/nutri/pkg/observability"
	"github.com/aretw0/nutri/pkg/persistence/middleware"
	"github.com/aretw0/nutri/pkg/ports"
	"github.com/aretw0/nutri/pkg/session"
)

// app is the wired bot shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics

	store      ports.SessionStore
	journal    *sqlite.Store // set with the sqlite backend only
	sessions   *session.Manager
	dispatcher *dispatch.Dispatcher

	closers []func() error
}

type appOptions struct {
	notifier ports.Notifier
	// gateway overrides the configured one.
	gateway ports.Gateway
}

// newApp builds the store, the gateway and the dispatcher described by cfg.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts appOptions) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = observability.NewMetrics(a.registry)

	store, locker, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = middleware.Chain(store, middleware.NewInstrumented(a.metrics.ObserveStore, logger))

	hooks := a.metrics.Hooks(logger)
	managerOpts := []session.Option{
		session.WithMaxAttempts(cfg.ConflictRetries),
		session.WithLifecycleHooks(hooks),
		session.WithLogger(logger),
	}
	if locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(locker), session.WithLockTTL(cfg.Lock.TTL))
	}
	a.sessions = session.NewManager(a.store, managerOpts...)

	gw := opts.gateway
	if gw == nil {
		gw = a.newGateway()
	}
	m := machine.New(gw,
		machine.WithLocation(loc),
		machine.WithLifecycleHooks(hooks),
		machine.WithLogger(logger),
	)

	dispatchOpts := []dispatch.Option{
		dispatch.WithLifecycleHooks(hooks),
		dispatch.WithLogger(logger),
	}
	if opts.notifier != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithNotifier(opts.notifier))
	}
	a.dispatcher = dispatch.New(a.sessions, m, dispatchOpts...)
	return a, nil
}

func (a *app) openStore(ctx context.Context) (ports.SessionStore, ports.DistributedLocker, error) {
	cfg := a.cfg.Store
	switch cfg.Backend {
	case config.BackendRedis:
		s := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithTTL(cfg.TTL),
			redis.WithPrefix(cfg.Prefix),
		)
		a.closers = append(a.closers, s.Close)
		if err := s.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		a.logger.Info("Using redis session store", "addr", cfg.Redis.Addr, "prefix", cfg.Prefix)
		if a.cfg.Lock.Distributed {
			return s, redis.NewLocker(s.Client(), cfg.Prefix), nil
		}
		return s, nil, nil

	case config.BackendSQLite:
		s, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, s.Close)
		a.journal = s
		a.logger.Info("Using sqlite session store", "path", cfg.SQLite.Path)
		return s, nil, nil

	case config.BackendFile:
		a.logger.Info("Using file session store", "dir", cfg.File.Dir)
		return file.New(cfg.File.Dir), nil, nil
	}

	a.logger.Info("Using in-memory session store")
	return memory.NewStore(), nil, nil
}

func (a *app) newGateway() ports.Gateway {
	cfg := a.cfg.Gateway
	if cfg.Offline {
		a.logger.Info("Using offline gateway", "codes", len(cfg.OfflineCodes))
		return memory.NewGateway(
			memory.WithCodes(cfg.OfflineCodes...),
			memory.WithCatalog(memory.DefaultCatalog),
		)
	}
	return rpc.New(cfg.BaseURL,
		rpc.WithAPIKey(cfg.APIKey),
		rpc.WithTimeout(cfg.Timeout),
		rpc.WithLogger(a.logger),
	)
}

// Close releases the store connections.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
