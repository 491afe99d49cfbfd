package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/Danielfrancoi/matrices/internal/api"
	"github.com/Danielfrancoi/matrices/internal/logger"
	"github.com/Danielfrancoi/matrices/internal/matmul"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		maxSize     int
	)

	flags := append(problemFlags(), strategyFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "listen address",
			Value:       "127.0.0.1:8080",
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "read-timeout",
			Usage:       "read timeout",
			Value:       30 * time.Second,
			Destination: &readTimeout,
		},
		&cli.IntFlag{
			Name:        "max-size",
			Usage:       "largest matrix dimension a request may ask for",
			Value:       api.DefaultMaxSize,
			Destination: &maxSize,
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the REST API",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyServeConfig(cmd, fileConfig, &addr)
			log := logger.FromContext(ctx)

			if _, err := matmul.Normalize(strategyName); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			opts, err := strategyOptions()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			server := api.NewServer(api.NewResultStore(), api.Config{
				Strategy: strategyName,
				DType:    dtypeName,
				Workers:  workers,
				MaxSize:  maxSize,
				Options:  opts,
			})
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "strategies", matmul.Available())
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
