package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/memkv-go/internal/cli/output"
	"github.com/yndnr/memkv-go/internal/infra/buildinfo"
)

// VersionCommand returns the version subcommand.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			format, err := output.ParseFormat(ParseGlobalFlags(c).Output)
			if err != nil {
				return err
			}
			switch format {
			case output.FormatJSON, output.FormatYAML:
				return output.NewFormatter(format, false).Format(c.App.Writer, buildinfo.Get())
			default:
				info := buildinfo.Get()
				fmt.Fprintf(c.App.Writer, "%s %s\n  commit: %s\n  built:  %s\n  go:     %s\n",
					buildinfo.Name, info.Version, info.Commit, info.BuildTime, info.GoVersion)
				return nil
			}
		},
	}
}
