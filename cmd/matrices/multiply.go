package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Danielfrancoi/matrices/internal/kernel"
	"github.com/Danielfrancoi/matrices/internal/logger"
	"github.com/Danielfrancoi/matrices/internal/matmul"
	"github.com/Danielfrancoi/matrices/internal/matrix"
	"github.com/Danielfrancoi/matrices/internal/partition"
)

// floatTolerance bounds the difference to the sequential reference when
// verifying float results.
const floatTolerance = 1e-6

type multiplyJob struct {
	n        int
	workers  int
	strategy string
	seed     int64
	print    bool
	verify   bool
	opts     matmul.Options
}

func multiplyCmd() *cli.Command {
	flags := append(problemFlags(), strategyFlags()...)
	flags = append(flags,
		&cli.BoolFlag{
			Name:        "print",
			Aliases:     []string{"p"},
			Usage:       "print A, B and C",
			Destination: &printMatrices,
		},
		&cli.BoolFlag{
			Name:        "verify",
			Usage:       "check the result against the sequential reference",
			Destination: &verify,
		},
	)

	return &cli.Command{
		Name:  "multiply",
		Usage: "Multiply two random square matrices",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyProblemConfig(cmd, fileConfig)
			applyStrategyConfig(cmd, fileConfig)

			if size < 1 {
				return cli.Exit("error: the matrix size must be positive", 1)
			}
			if workers < 1 {
				return cli.Exit("error: the number of workers must be positive", 1)
			}
			dtype, err := matrix.ParseDType(dtypeName)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			opts, err := strategyOptions()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			job := multiplyJob{
				n:        size,
				workers:  workers,
				strategy: strategyName,
				seed:     seed,
				print:    printMatrices,
				verify:   verify,
				opts:     opts,
			}

			switch dtype {
			case matrix.DTypeI32:
				err = runMultiply[int32](ctx, os.Stdout, job)
			case matrix.DTypeI64:
				err = runMultiply[int64](ctx, os.Stdout, job)
			case matrix.DTypeF32:
				err = runMultiply[float32](ctx, os.Stdout, job)
			default:
				err = runMultiply[float64](ctx, os.Stdout, job)
			}
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			return nil
		},
	}
}

func runMultiply[T matrix.Element](ctx context.Context, w io.Writer, job multiplyJob) error {
	log := logger.FromContext(ctx)

	name, err := matmul.Normalize(job.strategy)
	if err != nil {
		return err
	}
	if clamped := partition.Clamp(job.workers, job.n); clamped != job.workers {
		log.Warn("reducing workers to the matrix size", "requested", job.workers, "workers", clamped)
		job.workers = clamped
	}
	s, err := matmul.New[T](name, job.opts)
	if err != nil {
		return err
	}

	a, err := matrix.New[T](job.n)
	if err != nil {
		return err
	}
	b, err := matrix.New[T](job.n)
	if err != nil {
		return err
	}
	matrix.FillRandom(a, job.seed)
	matrix.FillRandom(b, job.seed+1)

	log.Info("multiplying", "strategy", name, "n", job.n, "workers", job.workers, "dtype", matrix.DTypeOf[T]())
	start := time.Now()
	c, err := matmul.Multiply(ctx, a, b, s, job.workers)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	elapsed := time.Since(start)

	if job.print {
		for _, m := range []struct {
			title string
			m     *matrix.Matrix[T]
		}{{"Matrix A", a}, {"Matrix B", b}, {"Result (C = A x B)", c}} {
			if _, err := fmt.Fprintf(w, "\n%s:\n", m.title); err != nil {
				return err
			}
			if err := matrix.Format(w, m.m); err != nil {
				return err
			}
		}
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(w, "\nStatistics:\n")
	p.Fprintf(w, "- Matrix size: %d x %d\n", job.n, job.n)
	p.Fprintf(w, "- Element type: %s\n", matrix.DTypeOf[T]())
	p.Fprintf(w, "- Strategy: %s\n", name)
	p.Fprintf(w, "- Workers: %d\n", job.workers)
	p.Fprintf(w, "- Elapsed: %.6f seconds\n", elapsed.Seconds())

	if job.verify {
		want, err := kernel.Sequential(a, b)
		if err != nil {
			return err
		}
		if diff := want.MaxAbsDiff(c); diff > floatTolerance || (!matrix.DTypeOf[T]().Float() && !want.Equal(c)) {
			return fmt.Errorf("%s result differs from the sequential reference (max abs diff %g)", name, diff)
		}
		p.Fprintf(w, "- Verified: matches sequential\n")
	}
	return nil
}
