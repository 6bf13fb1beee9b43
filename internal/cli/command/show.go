package command

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/memkv-go/internal/cli/output"
	"github.com/yndnr/memkv-go/internal/storage"
)

// ShowCommand returns the show subcommand.
func ShowCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print every stored record as key, metadata, length, value",
		Description: "Reads the store directly. With the badger engine the server must be\n" +
			"stopped first, since the data directory is locked while it runs.",
		Action: runShow,
	}
}

func runShow(c *cli.Context) error {
	f, err := ParseGlobalFlags(c).formatter()
	if err != nil {
		return err
	}

	return withStorage(c, func(ctx context.Context, engine storage.Engine) error {
		records, err := dumpRecords(ctx, engine)
		if err != nil {
			return err
		}
		return f.Format(c.App.Writer, records)
	})
}

// dumpRecords collects every record in key order.
func dumpRecords(ctx context.Context, engine storage.Engine) ([]output.Record, error) {
	records := []output.Record{}
	err := engine.Scan(ctx, func(rec *storage.Record) bool {
		records = append(records, output.FromStorage(rec))
		return true
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
