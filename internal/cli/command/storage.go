package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/memkv-go/internal/cli/output"
	"github.com/yndnr/memkv-go/internal/server/config"
	"github.com/yndnr/memkv-go/internal/storage"
)

// storageConfig maps the storage and security sections onto the engine
// configuration.
func storageConfig(cfg *config.ServerConfig) storage.Config {
	sc := storage.DefaultConfig(cfg.Storage.DataDir)
	sc.Engine = cfg.Storage.Engine
	sc.EncryptionKey = cfg.Security.EncryptionKey
	sc.Badger.SyncWrites = cfg.Storage.SyncWrites
	if cfg.Storage.GCInterval > 0 {
		sc.Badger.GCInterval = cfg.Storage.GCInterval.String()
	}
	if cfg.Storage.SQLiteFile != "" {
		sc.SQLite.File = cfg.Storage.SQLiteFile
	}
	return sc
}

// openStorage opens the configured engine and bootstraps its schema.
func openStorage(ctx context.Context, cfg *config.ServerConfig, log *slog.Logger) (storage.Engine, error) {
	engine, err := storage.Open(storageConfig(cfg), log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := engine.Bootstrap(ctx); err != nil {
		engine.Close()
		return nil, fmt.Errorf("bootstrap storage: %w", err)
	}
	return engine, nil
}

// collector is implemented by engines with a manual garbage collection
// pass (Badger).
type collector interface {
	GC(ctx context.Context) (int, error)
}

// StorageCommand returns the storage subcommand group.
func StorageCommand() *cli.Command {
	return &cli.Command{
		Name:  "storage",
		Usage: "Offline storage maintenance (server must be stopped)",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show storage size statistics",
				Action: storageStats,
			},
			{
				Name:   "gc",
				Usage:  "Run value log garbage collection (badger only)",
				Action: storageGC,
			},
		},
	}
}

func withStorage(c *cli.Context, fn func(ctx context.Context, engine storage.Engine) error) error {
	cfg, err := LoadConfig(ParseGlobalFlags(c))
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, c.App.ErrWriter)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	engine, err := openStorage(ctx, cfg, log.Slog())
	if err != nil {
		return err
	}

	return errors.Join(fn(ctx, engine), engine.Close())
}

func storageStats(c *cli.Context) error {
	flags := ParseGlobalFlags(c)
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return err
	}

	return withStorage(c, func(ctx context.Context, engine storage.Engine) error {
		stats, err := engine.Stats(ctx)
		if err != nil {
			return err
		}
		view := statsView{
			Engine:       stats.Engine,
			TotalSize:    stats.TotalSize,
			LSMSize:      stats.LSMSize,
			ValueLogSize: stats.ValueLogSize,
		}

		switch format {
		case output.FormatJSON, output.FormatYAML:
			return output.NewFormatter(format, false).Format(c.App.Writer, view)
		default:
			t := &output.Table{Headers: []string{"FIELD", "VALUE"}}
			t.AddRow("engine", view.Engine)
			t.AddRow("total_size", strconv.FormatUint(view.TotalSize, 10))
			t.AddRow("lsm_size", strconv.FormatUint(view.LSMSize, 10))
			t.AddRow("value_log_size", strconv.FormatUint(view.ValueLogSize, 10))
			return t.RenderWithOptions(c.App.Writer, format == output.FormatText)
		}
	})
}

type statsView struct {
	Engine       string `json:"engine" yaml:"engine"`
	TotalSize    uint64 `json:"total_size" yaml:"total_size"`
	LSMSize      uint64 `json:"lsm_size" yaml:"lsm_size"`
	ValueLogSize uint64 `json:"value_log_size" yaml:"value_log_size"`
}

func storageGC(c *cli.Context) error {
	return withStorage(c, func(ctx context.Context, engine storage.Engine) error {
		gc, ok := engine.(collector)
		if !ok {
			return fmt.Errorf("storage gc: not supported by this engine")
		}
		runs, err := gc.GC(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "gc complete: %d value log file(s) rewritten\n", runs)
		return nil
	})
}
