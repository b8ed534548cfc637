package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/usecase/journal"
	"github.com/urfave/cli/v3"
)

func seedCommand() *cli.Command {
	var (
		cfg  config
		days int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "days",
			Usage:       "Number of days of demo entries",
			Value:       journal.DefaultSeedDays,
			Destination: &days,
		},
	}
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, loggingFlags(&cfg)...)

	return &cli.Command{
		Name:  "seed",
		Usage: "Fill an empty journal with demo entries and goals",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}

			a, err := cfg.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.journal.Seed(ctx, int(days))
			if err != nil {
				return err
			}

			w := c.Root().Writer
			if report.Skipped {
				fmt.Fprintln(w, "Journal already has entries, nothing seeded")
				return nil
			}
			fmt.Fprintf(w, "Seeded %d entries, %d daily reports and %d goals\n", report.Entries, report.Reports, report.Goals)
			return nil
		},
	}
}

func clearCommand() *cli.Command {
	var (
		cfg config
		yes bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "yes",
			Aliases:     []string{"y"},
			Usage:       "Confirm deleting every entry and goal",
			Destination: &yes,
		},
	}
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, loggingFlags(&cfg)...)

	return &cli.Command{
		Name:  "clear",
		Usage: "Delete every entry and goal",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if !yes {
				return goerr.New("refusing to clear the journal without --yes")
			}

			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}

			a, err := cfg.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.journal.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintln(c.Root().Writer, "Journal cleared")
			return nil
		},
	}
}

// snapshotFlags are the store flags plus the snapshot bucket
func snapshotFlags(cfg *config, key *string, required bool) []cli.Flag {
	usage := "Object key of the snapshot"
	if !required {
		usage += ". Defaults to a timestamped key under snapshots/"
	}

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "key",
			Aliases:     []string{"k"},
			Usage:       usage,
			Destination: key,
			Required:    required,
		},
	}
	flags = append(flags, storeFlags(cfg)...)
	flags = append(flags, cloudFlags(cfg)...)
	flags = append(flags, loggingFlags(cfg)...)
	return flags
}

func backupCommand() *cli.Command {
	var (
		cfg config
		key string
	)

	return &cli.Command{
		Name:  "backup",
		Usage: "Save every entry and goal as a snapshot in Cloud Storage",
		Flags: snapshotFlags(&cfg, &key, false),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}

			storage, err := cfg.newStorage(ctx)
			if err != nil {
				return err
			}

			a, err := cfg.newApp(ctx, journal.WithStorage(storage))
			if err != nil {
				return err
			}
			defer a.Close()

			if key == "" {
				key = a.journal.DefaultSnapshotKey()
			}

			snapshot, err := a.journal.Backup(ctx, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.Root().Writer, "Saved %d entries and %d goals to %s\n", len(snapshot.Entries), len(snapshot.Goals), key)
			return nil
		},
	}
}

func restoreCommand() *cli.Command {
	var (
		cfg config
		key string
	)

	return &cli.Command{
		Name:  "restore",
		Usage: "Restore entries and goals from a snapshot in Cloud Storage",
		Flags: snapshotFlags(&cfg, &key, true),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}

			storage, err := cfg.newStorage(ctx)
			if err != nil {
				return err
			}

			a, err := cfg.newApp(ctx, journal.WithStorage(storage))
			if err != nil {
				return err
			}
			defer a.Close()

			snapshot, err := a.journal.Restore(ctx, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.Root().Writer, "Restored %d entries and %d goals from %s\n", len(snapshot.Entries), len(snapshot.Goals), key)
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	var (
		cfg     config
		dataset string
		table   string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "dataset",
			Usage:       "BigQuery dataset ID",
			Value:       "lifesync",
			Sources:     cli.EnvVars("LIFESYNC_BQ_DATASET"),
			Destination: &dataset,
		},
		&cli.StringFlag{
			Name:        "table",
			Usage:       "BigQuery table ID",
			Value:       "entries",
			Sources:     cli.EnvVars("LIFESYNC_BQ_TABLE"),
			Destination: &table,
		},
	}
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, loggingFlags(&cfg)...)

	return &cli.Command{
		Name:  "export",
		Usage: "Export every entry into a BigQuery table",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}

			bq, err := cfg.newBigQuery(ctx)
			if err != nil {
				return err
			}

			a, err := cfg.newApp(ctx, journal.WithBigQuery(bq))
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.journal.Export(ctx, dataset, table)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.Root().Writer, "Exported %d rows to %s.%s\n", report.Rows, report.Dataset, report.Table)
			return nil
		},
	}
}
