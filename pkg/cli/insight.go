package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/lifesync/pkg/model"
	"github.com/urfave/cli/v3"
)

func reportCommand() *cli.Command {
	var (
		cfg  config
		date string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "date",
			Usage:       "Day to summarize in YYYY-MM-DD format. Defaults to today",
			Destination: &date,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:  "report",
		Usage: "Generate the daily report of a day",
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

			day, err := a.journal.ParseDay(date)
			if err != nil {
				return err
			}

			report, err := a.journal.DailyReport(ctx, day)
			if err != nil {
				return err
			}

			w := c.Root().Writer
			fmt.Fprintf(w, "%s\t%s\tmood %d\n", report.ID, report.Title, report.Mood(50))
			fmt.Fprintf(w, "  %s\n", report.Summary)
			return nil
		},
	}
}

func profileCommand() *cli.Command {
	var (
		cfg  config
		mode string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "mode",
			Usage:       "Tone of the profile (witty, formal)",
			Value:       string(model.ProfileModeWitty),
			Destination: &mode,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:  "profile",
		Usage: "Analyze the journal into a personality profile",
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

			profile, err := a.journal.Profile(ctx, model.ProfileMode(mode))
			if err != nil {
				return err
			}
			return printJSON(c.Root().Writer, profile)
		},
	}
}

func coachCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "coach",
		Usage: "Ask the coach for advice on active goals",
		Flags: allFlags(&cfg),
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

			advice, err := a.journal.Coach(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.Root().Writer, strings.TrimSpace(advice))
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	var cfg config

	var flags []cli.Flag
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, loggingFlags(&cfg)...)

	return &cli.Command{
		Name:  "stats",
		Usage: "Show journal statistics as JSON",
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

			stats, err := a.journal.Stats(ctx)
			if err != nil {
				return err
			}
			return printJSON(c.Root().Writer, stats)
		},
	}
}
