package command

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/memkv-go/internal/cli/output"
	"github.com/yndnr/memkv-go/internal/infra/buildinfo"
	"github.com/yndnr/memkv-go/internal/infra/confloader"
	"github.com/yndnr/memkv-go/internal/server/config"
	"github.com/yndnr/memkv-go/internal/telemetry/logger"
)

// ErrNoCommand is returned when the program is run without a subcommand.
var ErrNoCommand = errors.New("no command given")

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:     buildinfo.Name,
		Usage:    "persistent key-value store speaking the memcached text protocol",
		Version:  buildinfo.String(),
		Flags:    globalFlags(),
		Commands: []*cli.Command{
			ServeCommand(),
			ShowCommand(),
			ConfigCommand(),
			StorageCommand(),
			VersionCommand(),
		},
		Action: func(c *cli.Context) error {
			cli.ShowAppHelp(c)
			if c.NArg() > 0 {
				return fmt.Errorf("unknown command %q", c.Args().First())
			}
			return ErrNoCommand
		},
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file (YAML)",
			EnvVars: []string{"MEMKV_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "Storage directory (overrides storage.data_dir)",
		},
		&cli.StringFlag{
			Name:  "engine",
			Usage: "Storage engine: badger or sqlite (overrides storage.engine)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: text, table, json, yaml",
			Value:   string(output.FormatText),
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Print full values in table output",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	ConfigFile string
	DataDir    string
	Engine     string

	Output string
	Wide   bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		ConfigFile: c.String("config"),
		DataDir:    c.String("data-dir"),
		Engine:     c.String("engine"),
		Output:     c.String("output"),
		Wide:       c.Bool("wide"),
	}
}

// overrides returns the config keys set explicitly on the command line.
func (g *GlobalFlags) overrides() map[string]any {
	m := make(map[string]any)
	if g.DataDir != "" {
		m["storage.data_dir"] = g.DataDir
	}
	if g.Engine != "" {
		m["storage.engine"] = g.Engine
	}
	return m
}

// formatter builds the output formatter selected by --output.
func (g *GlobalFlags) formatter() (output.Formatter, error) {
	format, err := output.ParseFormat(g.Output)
	if err != nil {
		return nil, err
	}
	return output.NewFormatter(format, g.Wide), nil
}

// LoadConfig merges defaults, the config file, MEMKV_* environment
// variables and command line overrides, then verifies the result.
func LoadConfig(flags *GlobalFlags) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if flags.ConfigFile != "" {
		opts = append(opts, confloader.WithConfigFile(flags.ConfigFile))
	}
	loader := confloader.NewLoader(opts...)

	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if o := flags.overrides(); len(o) > 0 {
		if err := loader.LoadMap(o); err != nil {
			return nil, err
		}
		if err := loader.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// newLogger builds the process logger from the log section.
func newLogger(cfg *config.ServerConfig, w io.Writer) (logger.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	return logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: w,
	})
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
