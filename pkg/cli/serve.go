package cli

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/server"
	"github.com/m-mizutani/lifesync/pkg/service/mcp"
	"github.com/m-mizutani/lifesync/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg  config
		addr string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address of the HTTP API",
			Value:       ":8080",
			Sources:     cli.EnvVars("LIFESYNC_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the journal over an HTTP JSON API",
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

			srv := server.New(a.journal, a.regenerate, server.WithBaseContext(ctx))
			// runs before a.Close so the job never writes to a closed store
			defer srv.Shutdown()

			logging.From(ctx).Info("starting server", "addr", addr, "online", a.journal.Online())
			return server.Serve(ctx, addr, srv.Handler())
		},
	}
}

func mcpCommand() *cli.Command {
	var (
		cfg       config
		transport string
		addr      string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "transport",
			Usage:       "MCP transport (stdio, http)",
			Value:       mcp.TransportStdio,
			Sources:     cli.EnvVars("LIFESYNC_MCP_TRANSPORT"),
			Destination: &transport,
		},
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address for the http transport",
			Value:       ":8081",
			Sources:     cli.EnvVars("LIFESYNC_MCP_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, loggingFlags(&cfg)...)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Expose the journal as MCP tools",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := validation.Validate(transport, validation.In(mcp.TransportStdio, mcp.TransportHTTP)); err != nil {
				return goerr.Wrap(err, "invalid transport", goerr.V("transport", transport))
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

			return mcp.Serve(ctx, mcp.NewServer(a.journal), transport, addr)
		},
	}
}
