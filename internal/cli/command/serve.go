package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/memkv-go/internal/infra/buildinfo"
	"github.com/yndnr/memkv-go/internal/infra/confloader"
	"github.com/yndnr/memkv-go/internal/infra/shutdown"
	"github.com/yndnr/memkv-go/internal/server/config"
	"github.com/yndnr/memkv-go/internal/server/httpserver"
	"github.com/yndnr/memkv-go/internal/server/memcache"
	"github.com/yndnr/memkv-go/internal/storage"
	"github.com/yndnr/memkv-go/internal/telemetry/logger"
	"github.com/yndnr/memkv-go/internal/telemetry/metric"
)

// ShutdownTimeout bounds the graceful stop of all listeners and storage.
const ShutdownTimeout = 30 * time.Second

// ServeCommand returns the serve subcommand.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Start the memcache protocol listener",
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	flags := ParseGlobalFlags(c)

	cfg, err := LoadConfig(flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg, c.App.ErrWriter)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	log.Info("starting memkv-server",
		append([]any{"version", buildinfo.Version, "config", flags.ConfigFile}, config.LogAttrs(cfg)...)...)

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	inst, err := startInstance(ctx, cfg, metric.Global(), log)
	if err != nil {
		return err
	}

	if flags.ConfigFile != "" {
		inst.watchConfig(flags)
	}

	handler := shutdown.NewHandler(ShutdownTimeout, log.Slog())
	handler.OnShutdown("memkv-server", inst.stop)

	log.Info("server started, press Ctrl+C to stop")
	if err := handler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// instance is one running server: storage, protocol listener and the
// optional metrics listener.
type instance struct {
	log      logger.Logger
	engine   storage.Engine
	memcache *memcache.Server
	http     *httpserver.Server
	watcher  *confloader.Watcher
}

// startInstance opens storage and starts the listeners. Anything
// already started is torn down again on error.
func startInstance(ctx context.Context, cfg *config.ServerConfig, registry *metric.Registry, log logger.Logger) (*instance, error) {
	engine, err := openStorage(ctx, cfg, log.Slog())
	if err != nil {
		return nil, err
	}
	inst := &instance{log: log, engine: engine}

	if err := registry.Register(metric.NewStorageCollector(engine)); err != nil {
		log.Warn("storage metrics not registered", "error", err)
	}

	inst.memcache = memcache.New(memcacheConfig(cfg), engine, registry, log.Slog())
	if err := inst.memcache.Start(ctx); err != nil {
		inst.stop(context.Background())
		return nil, err
	}

	if addr := cfg.Server.Metrics.Addr; addr != "" {
		router := httpserver.NewRouter(&httpserver.RouterConfig{
			Metrics: registry,
			Ready:   readyProbe(engine),
			Logger:  log.Slog(),
		})
		srv := httpserver.New(addr, router, log.Slog())
		if err := srv.Start(); err != nil {
			inst.stop(context.Background())
			return nil, fmt.Errorf("metrics listener: %w", err)
		}
		inst.http = srv
	}

	return inst, nil
}

// stop shuts the listeners down before closing storage. It joins every
// error encountered.
func (i *instance) stop(ctx context.Context) error {
	var errs []error

	if i.watcher != nil {
		errs = append(errs, i.watcher.Stop())
	}
	if i.http != nil {
		i.log.Info("shutting down metrics listener")
		errs = append(errs, i.http.Shutdown(ctx))
	}
	if i.memcache != nil {
		i.log.Info("shutting down memcache listener")
		errs = append(errs, i.memcache.Shutdown(ctx))
	}
	if i.engine != nil {
		i.log.Info("shutting down storage engine")
		errs = append(errs, i.engine.Close())
	}

	return errors.Join(errs...)
}

// watchConfig reloads log.level whenever the config file changes. Other
// settings need a restart.
func (i *instance) watchConfig(flags *GlobalFlags) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(i.log.Slog()))
	if err != nil {
		i.log.Warn("config watcher unavailable", "error", err)
		return
	}
	if err := w.Watch(flags.ConfigFile); err != nil {
		i.log.Warn("config watcher unavailable", "error", err)
		w.Stop()
		return
	}

	w.OnChange(func(path string) {
		cfg, err := LoadConfig(flags)
		if err != nil {
			i.log.Warn("config reload rejected", "path", path, "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			i.log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	w.Start()
	i.watcher = w
}

func memcacheConfig(cfg *config.ServerConfig) *memcache.Config {
	mc := cfg.Server.Memcache
	return &memcache.Config{
		Address:      mc.Addr,
		MaxItemSize:  mc.MaxItemSize,
		MaxLineLen:   mc.MaxLineLen,
		ReadTimeout:  mc.ReadTimeout,
		WriteTimeout: mc.WriteTimeout,
		IdleTimeout:  mc.IdleTimeout,
		RateLimit:    mc.RateLimit,
	}
}

// readyProbe reports ready while the engine answers a stats query.
func readyProbe(engine storage.Engine) httpserver.ReadyFunc {
	return func(ctx context.Context) error {
		_, err := engine.Stats(ctx)
		return err
	}
}
