package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/model"
	"github.com/m-mizutani/lifesync/pkg/usecase/journal"
	"github.com/urfave/cli/v3"
)

func captureCommand() *cli.Command {
	var (
		cfg       config
		text      string
		mood      int64
		style     string
		imagePath string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "text",
			Aliases:     []string{"t"},
			Usage:       "Note text. Without it an interactive prompt captures one entry per line",
			Destination: &text,
		},
		&cli.IntFlag{
			Name:        "mood",
			Aliases:     []string{"m"},
			Usage:       "Mood from 0 to 100",
			Value:       50,
			Destination: &mood,
		},
		&cli.StringFlag{
			Name:        "style",
			Aliases:     []string{"s"},
			Usage:       "Art style of the card image",
			Sources:     cli.EnvVars("LIFESYNC_STYLE"),
			Destination: &style,
		},
		&cli.StringFlag{
			Name:        "image",
			Aliases:     []string{"i"},
			Usage:       "Path to a photo attached to the note",
			Destination: &imagePath,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:  "capture",
		Usage: "Capture a note as a journal entry",
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

			input := journal.CaptureInput{
				Mood:  model.IntPtr(int(mood)),
				Style: style,
			}
			if imagePath != "" {
				data, err := os.ReadFile(imagePath)
				if err != nil {
					return goerr.Wrap(err, "failed to read image file", goerr.V("path", imagePath))
				}
				input.Image = data
				input.ImageMIME = http.DetectContentType(data)
			}

			w := c.Root().Writer
			if text != "" {
				input.Text = text
				return captureOne(ctx, w, a.journal, input)
			}

			return captureInteractive(ctx, w, a.journal, input)
		},
	}
}

func captureOne(ctx context.Context, w io.Writer, uc *journal.UseCase, input journal.CaptureInput) error {
	entry, err := uc.Capture(ctx, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s\t%s\t%s\n", entry.ID, entry.Title, strings.Join(entry.Tags, ","))
	fmt.Fprintf(w, "  %s\n", entry.Summary)
	return nil
}

func captureInteractive(ctx context.Context, w io.Writer, uc *journal.UseCase, input journal.CaptureInput) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "note> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          w,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to start interactive prompt")
	}
	defer rl.Close()

	fmt.Fprintf(w, "One note per line. Type 'exit' or press Ctrl-D to quit.\n")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return goerr.Wrap(err, "failed to read note")
		}

		line = strings.TrimSpace(line)
		if line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}

		input.Text = line
		if err := captureOne(ctx, w, uc, input); err != nil {
			return err
		}
		// the photo belongs to the first note only
		input.Image, input.ImageMIME = nil, ""
	}
}

func listCommand() *cli.Command {
	var (
		cfg   config
		limit int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of entries to list. 0 lists all",
			Value:       20,
			Sources:     cli.EnvVars("LIFESYNC_LIST_LIMIT"),
			Destination: &limit,
		},
	}
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, loggingFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List entries and daily reports, newest first",
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

			entries, err := a.journal.Timeline(ctx, int(limit))
			if err != nil {
				return goerr.Wrap(err, "failed to list entries")
			}

			for _, e := range entries {
				kind := "entry"
				if e.Type == model.EntryTypeDailyReport {
					kind = "report"
				}
				fmt.Fprintf(c.Root().Writer, "%s\t%s\t%s\t%d\t%s\n",
					e.ID,
					e.CreatedAt().Format("2006-01-02 15:04"),
					kind,
					e.Mood(50),
					e.Title,
				)
			}
			return nil
		},
	}
}

func showCommand() *cli.Command {
	var (
		cfg     config
		entryID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Entry ID to show",
			Destination: &entryID,
			Required:    true,
		},
	}
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, loggingFlags(&cfg)...)

	return &cli.Command{
		Name:  "show",
		Usage: "Show an entry as JSON",
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

			entry, err := a.journal.GetEntry(ctx, model.EntryID(entryID))
			if err != nil {
				return err
			}
			return printJSON(c.Root().Writer, entry)
		},
	}
}

func deleteCommand() *cli.Command {
	var (
		cfg     config
		entryID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Entry ID to delete",
			Destination: &entryID,
			Required:    true,
		},
	}
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, loggingFlags(&cfg)...)

	return &cli.Command{
		Name:  "delete",
		Usage: "Delete an entry or daily report",
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

			if err := a.journal.DeleteEntry(ctx, model.EntryID(entryID)); err != nil {
				return err
			}
			fmt.Fprintf(c.Root().Writer, "Entry deleted: %s\n", entryID)
			return nil
		},
	}
}
