package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/lifesync/pkg/usecase/regenerate"
	"github.com/urfave/cli/v3"
)

func regenerateCommand() *cli.Command {
	var (
		cfg   config
		days  int64
		style string
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "days",
			Usage:       "Look-back window in days",
			Value:       regenerate.DefaultDays,
			Destination: &days,
		},
		&cli.StringFlag{
			Name:        "style",
			Aliases:     []string{"s"},
			Usage:       "Art style applied to every regenerated image",
			Destination: &style,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:  "regenerate",
		Usage: "Replace placeholder card images of recent entries with generated ones",
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

			w := c.Root().Writer
			spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
			spin.Suffix = " scanning entries"
			spin.Start()

			report, err := a.regenerate.Run(ctx, regenerate.Input{
				Days:        int(days),
				TargetStyle: style,
				OnProgress: func(current, total int, label string) {
					spin.Lock()
					spin.Suffix = fmt.Sprintf(" [%d/%d] %s", current, total, label)
					spin.Unlock()
				},
			})
			spin.Stop()

			if errors.Is(err, regenerate.ErrNoCandidates) {
				fmt.Fprintln(w, "No placeholder images to regenerate")
				return nil
			}
			if report != nil {
				fmt.Fprintf(w, "Regenerated %d of %d images (%d fell back to a placeholder)\n",
					report.Regenerated, report.Total, report.Degraded)
			}
			return err
		},
	}
}
