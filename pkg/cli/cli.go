package cli

import (
	"context"
	"encoding/json"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "lifesync",
		Usage: "AI assisted journal with generated card images",
		Commands: []*cli.Command{
			captureCommand(),
			listCommand(),
			showCommand(),
			deleteCommand(),
			reportCommand(),
			profileCommand(),
			coachCommand(),
			statsCommand(),
			goalCommand(),
			seedCommand(),
			clearCommand(),
			regenerateCommand(),
			backupCommand(),
			restoreCommand(),
			exportCommand(),
			serveCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		logging.Default().Error("command failed", "error", err)
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal output")
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
