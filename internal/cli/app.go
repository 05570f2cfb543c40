package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rshade/fluxi/internal/config"
	"github.com/rshade/fluxi/internal/engine"
	"github.com/rshade/fluxi/internal/engine/cache"
	"github.com/rshade/fluxi/internal/ledger"
)

// appState holds the per-invocation wiring shared by every subcommand.
// It is filled by the root PersistentPreRunE and released by PersistentPostRunE.
type appState struct {
	cfg      *config.Config
	registry *prometheus.Registry
	cache    *cache.Cache
	closers  []io.Closer
	store    *ledger.Store
	engine   *engine.FinanceEngine
	logger   zerolog.Logger
}

// redisPingTimeout bounds the connectivity check made when the redis backend opens.
const redisPingTimeout = 2 * time.Second

// rootFlags are the persistent flags of the root command.
type rootFlags struct {
	debug        bool
	configPath   string
	cacheBackend string
	cacheTTL     string
	dataFile     string
	metrics      bool
}

// loadConfig reads the config file and applies flag overrides on top of the
// file and environment.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("cache-backend") {
		cfg.Cache.Backend = flags.cacheBackend
	}
	if cmd.Flags().Changed("cache-ttl") {
		cfg.Cache.TTL = flags.cacheTTL
	}
	if cmd.Flags().Changed("data-file") {
		cfg.Data.File = flags.dataFile
	}
	if flags.debug {
		cfg.Logging.Level = "debug"
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// init builds the cache from cfg. The ledger and engine are opened lazily so
// cache commands work even when the ledger file is unreadable.
func (a *appState) init(ctx context.Context, cfg *config.Config) error {
	a.cfg = cfg
	a.registry = prometheus.NewRegistry()
	a.logger = config.ComponentLogger("cli")

	if cfg.Cache.Backend == config.BackendNone {
		a.logger.Debug().Msg("cache disabled")
		return nil
	}

	storage, closer, err := newStorage(ctx, cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	metrics, err := cache.NewMetrics(a.registry)
	if err != nil {
		return err
	}
	ttl, err := cfg.CacheTTL()
	if err != nil {
		return err
	}

	opts := []cache.Option{
		cache.WithPrefix(cfg.Cache.Prefix),
		cache.WithDefaultTTL(ttl),
		cache.WithLogger(config.ComponentLogger("cache")),
		cache.WithMetrics(metrics),
	}
	if cfg.Cache.Singleflight {
		opts = append(opts, cache.WithSingleflight())
	}
	if cfg.Cache.GenerationGuard {
		opts = append(opts, cache.WithGenerationGuard())
	}
	a.cache = cache.New(storage, opts...)

	a.logger.Debug().
		Str("backend", cfg.Cache.Backend).
		Str("ttl", cache.FormatDuration(ttl)).
		Str("prefix", cfg.Cache.Prefix).
		Msg("cache ready")
	return nil
}

// newStorage opens the storage medium named by cfg.Cache.Backend. A redis
// backend must answer a ping before it is used.
func newStorage(ctx context.Context, cfg *config.Config) (cache.Storage, io.Closer, error) {
	switch cfg.Cache.Backend {
	case config.BackendMemory:
		return cache.NewMemoryStorage(), nil, nil
	case config.BackendFile:
		s, err := cache.NewFileStorage(cfg.Cache.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case config.BackendRistretto:
		s, err := cache.NewRistrettoStorage(cfg.Cache.MaxCost)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.BackendRedis:
		r := cfg.Cache.Redis
		s := cache.NewRedisStorage(r.Addr, r.Password, r.DB)
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := s.Ping(pingCtx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", r.Addr, err)
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("%w: cache backend %q", config.ErrInvalidConfig, cfg.Cache.Backend)
	}
}

// requireCache returns the cache or an error when caching is disabled.
func (a *appState) requireCache() (*cache.Cache, error) {
	if a.cache == nil {
		return nil, errors.New("cache is disabled (backend \"none\")")
	}
	return a.cache, nil
}

// financeEngine opens the ledger on first use and returns the engine.
func (a *appState) financeEngine() (*engine.FinanceEngine, error) {
	if a.engine != nil {
		return a.engine, nil
	}

	store, err := ledger.Open(a.cfg.Data.File)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	a.store = store
	a.engine = engine.NewFinanceEngine(store,
		engine.WithCache(a.cache),
		engine.WithLogger(config.ComponentLogger("engine")),
	)
	a.logger.Debug().Str("ledger", store.FilePath()).Msg("ledger opened")
	return a.engine, nil
}

// close releases backend resources.
func (a *appState) close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// commandContext returns the command context, never nil.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
