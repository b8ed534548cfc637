package main

import (
	"context"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/m-mizutani/lifesync/pkg/cli"
)

func main() {
	ctx := context.Background()
	if err := cli.Run(ctx, os.Args); err != nil {
		os.Exit(err.Code)
	}
}
