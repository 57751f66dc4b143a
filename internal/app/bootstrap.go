package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/fiscalreg/internal/observability"
	"github.com/odyssey-erp/fiscalreg/internal/platform/kv"
	"github.com/odyssey-erp/fiscalreg/internal/registry"
	registryhttp "github.com/odyssey-erp/fiscalreg/internal/registry/http"
)

// Runtime owns the long-lived components shared by the server and the CLI.
type Runtime struct {
	Config  *Config
	Logger  *slog.Logger
	Store   *registry.Store
	Service *registry.Service
	Metrics *observability.Metrics

	closers []func()
}

// OpenBackend connects the storage backend selected by cfg. The returned
// close function releases its resources.
func OpenBackend(ctx context.Context, cfg *Config) (kv.Backend, func(), error) {
	noop := func() {}
	switch cfg.StoreBackend {
	case BackendMemory:
		return kv.NewMemory(), noop, nil
	case BackendFile:
		backend, err := kv.NewFile(cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return backend, noop, nil
	case BackendRedis:
		backend, err := kv.DialRedis(ctx, cfg.RedisAddr, cfg.StoreKeyPrefix)
		if err != nil {
			return nil, nil, err
		}
		return backend, func() { _ = backend.Close() }, nil
	case BackendPostgres:
		backend, err := kv.OpenPostgres(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		return backend, backend.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// NewRuntime opens the backend and wires store, validator, service and metrics.
func NewRuntime(ctx context.Context, cfg *Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = NewLogger(cfg)
	}
	backend, closeBackend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.StoreBackend, err)
	}
	return newRuntime(ctx, cfg, logger, backend, closeBackend)
}

func newRuntime(ctx context.Context, cfg *Config, logger *slog.Logger, backend kv.Backend, closeBackend func()) (*Runtime, error) {
	store, err := registry.NewStore(ctx, backend)
	if err != nil {
		closeBackend()
		return nil, err
	}
	metrics := observability.NewMetrics()
	service := registry.NewService(store, registry.NewValidator(store), logger, metrics)
	logger.Info("registry store ready", slog.String("backend", cfg.StoreBackend))
	return &Runtime{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Service: service,
		Metrics: metrics,
		closers: []func(){closeBackend},
	}, nil
}

// Handler builds the HTTP router over the runtime's service.
func (rt *Runtime) Handler() http.Handler {
	return NewRouter(RouterParams{
		Logger:          rt.Logger,
		Config:          rt.Config,
		RegistryHandler: registryhttp.NewHandler(rt.Logger, rt.Service, rt.Config.WriteRateLimitPerMinute),
		Metrics:         rt.Metrics,
	})
}

// Server returns an http.Server configured with the runtime's timeouts.
func (rt *Runtime) Server() *http.Server {
	return &http.Server{
		Addr:         rt.Config.AppAddr,
		Handler:      rt.Handler(),
		ReadTimeout:  rt.Config.AppReadTimeout,
		WriteTimeout: rt.Config.AppWriteTimeout,
	}
}

// Close releases the backend.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
