package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/lifesync/pkg/model"
	"github.com/urfave/cli/v3"
)

func goalCommand() *cli.Command {
	return &cli.Command{
		Name:  "goal",
		Usage: "Manage goals",
		Commands: []*cli.Command{
			goalAddCommand(),
			goalListCommand(),
			goalStatusCommand(),
			goalDeleteCommand(),
		},
	}
}

func goalFlags(cfg *config, flags ...cli.Flag) []cli.Flag {
	flags = append(flags, storeFlags(cfg)...)
	flags = append(flags, loggingFlags(cfg)...)
	return flags
}

func goalAddCommand() *cli.Command {
	var (
		cfg      config
		text     string
		deadline string
	)

	return &cli.Command{
		Name:  "add",
		Usage: "Add an active goal",
		Flags: goalFlags(&cfg,
			&cli.StringFlag{
				Name:        "text",
				Aliases:     []string{"t"},
				Usage:       "What the goal is about",
				Destination: &text,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "deadline",
				Usage:       "Deadline in YYYY-MM-DD format",
				Destination: &deadline,
				Required:    true,
			},
		),
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

			goal, err := a.journal.AddGoal(ctx, text, deadline)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.Root().Writer, "Goal added: %s\n", goal.ID)
			return nil
		},
	}
}

func goalListCommand() *cli.Command {
	var (
		cfg    config
		status string
	)

	return &cli.Command{
		Name:  "list",
		Usage: "List goals ordered by deadline",
		Flags: goalFlags(&cfg,
			&cli.StringFlag{
				Name:        "status",
				Usage:       "Only list goals with this status (active, completed, dropped)",
				Destination: &status,
			},
		),
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

			goals, err := a.journal.ListGoals(ctx, model.GoalStatus(status))
			if err != nil {
				return err
			}
			for _, g := range goals {
				fmt.Fprintf(c.Root().Writer, "%s\t%s\t%s\t%s\n", g.ID, g.Deadline, g.Status, g.Text)
			}
			return nil
		},
	}
}

func goalStatusCommand() *cli.Command {
	var (
		cfg    config
		goalID string
		status string
	)

	return &cli.Command{
		Name:  "status",
		Usage: "Change the status of a goal",
		Flags: goalFlags(&cfg,
			&cli.StringFlag{
				Name:        "id",
				Usage:       "Goal ID",
				Destination: &goalID,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "status",
				Usage:       "New status (active, completed, dropped)",
				Destination: &status,
				Required:    true,
			},
		),
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

			goal, err := a.journal.SetGoalStatus(ctx, model.GoalID(goalID), model.GoalStatus(status))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.Root().Writer, "Goal %s is %s\n", goal.ID, goal.Status)
			return nil
		},
	}
}

func goalDeleteCommand() *cli.Command {
	var (
		cfg    config
		goalID string
	)

	return &cli.Command{
		Name:  "delete",
		Usage: "Delete a goal",
		Flags: goalFlags(&cfg,
			&cli.StringFlag{
				Name:        "id",
				Usage:       "Goal ID",
				Destination: &goalID,
				Required:    true,
			},
		),
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

			if err := a.journal.DeleteGoal(ctx, model.GoalID(goalID)); err != nil {
				return err
			}
			fmt.Fprintf(c.Root().Writer, "Goal deleted: %s\n", goalID)
			return nil
		},
	}
}
