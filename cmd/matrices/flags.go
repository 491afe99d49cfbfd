package main

import (
	"github.com/urfave/cli/v3"

	"github.com/Danielfrancoi/matrices/internal/distrib"
	"github.com/Danielfrancoi/matrices/internal/shm"
)

var (
	size          int
	workers       int
	strategyName  string
	dtypeName     string
	seed          int64
	printMatrices bool
	verify        bool
	shmDir        string
	shmName       string
	launcher      string
	hubAddr       string
	maxThreads    int64
	chunk         int
	logLevel      string
	logFormat     string
	debug         bool
)

func problemFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "size",
			Aliases:     []string{"n"},
			Usage:       "dimension of the square matrices",
			Value:       4,
			Destination: &size,
		},
		&cli.IntFlag{
			Name:        "workers",
			Aliases:     []string{"w", "threads", "t"},
			Usage:       "number of workers (clamped to the size)",
			Value:       2,
			Destination: &workers,
		},
		&cli.StringFlag{
			Name:        "dtype",
			Usage:       "element type (i32, i64, f32, f64)",
			Value:       "i64",
			Destination: &dtypeName,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "seed for the random operands",
			Value:       1,
			Destination: &seed,
		},
	}
}

func strategyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "strategy",
			Aliases:     []string{"s"},
			Usage:       "execution strategy (sequential, threads, loop, processes, distributed)",
			Value:       "threads",
			Destination: &strategyName,
		},
		&cli.Int64Flag{
			Name:        "max-threads",
			Usage:       "thread budget for the threads strategy (0 = default)",
			Destination: &maxThreads,
		},
		&cli.IntFlag{
			Name:        "chunk",
			Usage:       "rows per claim for the loop strategy (0 = static schedule)",
			Destination: &chunk,
		},
		&cli.StringFlag{
			Name:        "shm-dir",
			Usage:       "directory for shared-memory segments",
			Value:       shm.DefaultDir(),
			Destination: &shmDir,
		},
		&cli.StringFlag{
			Name:        "shm-name",
			Usage:       "segment name (default: a fresh name per run)",
			Destination: &shmName,
		},
		&cli.StringFlag{
			Name:        "launcher",
			Usage:       "distributed launcher (local, process)",
			Value:       distrib.LauncherLocal,
			Destination: &launcher,
		},
		&cli.StringFlag{
			Name:        "hub-addr",
			Usage:       "listen address of the collective hub for the process launcher",
			Value:       distrib.DefaultAddr,
			Destination: &hubAddr,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
