package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/Danielfrancoi/matrices/internal/spawn"
)

func main() {
	// Worker processes re-execute this binary; they run their task and exit
	// here without touching the CLI.
	spawn.MaybeRun()

	app := &cli.Command{
		Name:   "matrices",
		Usage:  "Parallel square matrix multiplication",
		Flags:  loggingFlags(),
		Before: setup,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			multiplyCmd(),
			benchCmd(),
			serveCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
