package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
	"golang.org/x/sys/cpu"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Danielfrancoi/matrices/internal/logger"
	"github.com/Danielfrancoi/matrices/internal/matmul"
	"github.com/Danielfrancoi/matrices/internal/matrix"
)

type benchPlan struct {
	sizes      []int
	workers    []int
	strategies []string
	runs       int
	seed       int64
	opts       matmul.Options
}

type benchRow struct {
	strategy string
	n        int
	workers  int
	best     time.Duration
	mean     time.Duration
}

func benchCmd() *cli.Command {
	var (
		sizes      []int64
		workerList []int64
		strategies []string
		runs       int
	)

	flags := append([]cli.Flag{}, strategyFlags()...)
	flags = append(flags,
		&cli.Int64SliceFlag{
			Name:        "sizes",
			Usage:       "matrix sizes to benchmark",
			Value:       []int64{64, 128, 256},
			Destination: &sizes,
		},
		&cli.Int64SliceFlag{
			Name:        "workers",
			Aliases:     []string{"w"},
			Usage:       "worker counts to benchmark",
			Value:       []int64{1, 2, 4},
			Destination: &workerList,
		},
		&cli.StringSliceFlag{
			Name:        "strategies",
			Usage:       "strategies to benchmark (default: every available one)",
			Destination: &strategies,
		},
		&cli.IntFlag{
			Name:        "runs",
			Usage:       "timed runs per configuration",
			Value:       3,
			Destination: &runs,
		},
		&cli.StringFlag{
			Name:        "dtype",
			Usage:       "element type (i32, i64, f32, f64)",
			Value:       "f64",
			Destination: &dtypeName,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "seed for the random operands",
			Value:       1,
			Destination: &seed,
		},
	)

	return &cli.Command{
		Name:  "bench",
		Usage: "Benchmark every strategy over a grid of sizes and worker counts",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyStrategyConfig(cmd, fileConfig)
			if fileConfig.DType != "" && !cmd.IsSet("dtype") {
				dtypeName = fileConfig.DType
			}
			dtype, err := matrix.ParseDType(dtypeName)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if runs < 1 {
				return cli.Exit("error: --runs must be positive", 1)
			}
			opts, err := strategyOptions()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			names := strategies
			if len(names) == 0 {
				names = lo.Filter(matmul.Names(), func(n string, _ int) bool { return matmul.Has(n) })
			}
			for i, n := range names {
				if names[i], err = matmul.Normalize(n); err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
			}
			plan := benchPlan{
				sizes:      positive(sizes),
				workers:    positive(workerList),
				strategies: lo.Uniq(names),
				runs:       runs,
				seed:       seed,
				opts:       opts,
			}
			if len(plan.sizes) == 0 || len(plan.workers) == 0 {
				return cli.Exit("error: --sizes and --workers need at least one positive value", 1)
			}

			printHost(os.Stdout, dtype, plan)
			switch dtype {
			case matrix.DTypeI32:
				err = runBench[int32](ctx, os.Stdout, plan)
			case matrix.DTypeI64:
				err = runBench[int64](ctx, os.Stdout, plan)
			case matrix.DTypeF32:
				err = runBench[float32](ctx, os.Stdout, plan)
			default:
				err = runBench[float64](ctx, os.Stdout, plan)
			}
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			return nil
		},
	}
}

func positive(xs []int64) []int {
	out := lo.FilterMap(xs, func(x int64, _ int) (int, bool) { return int(x), x > 0 })
	out = lo.Uniq(out)
	slices.Sort(out)
	return out
}

func printHost(w io.Writer, dtype matrix.DType, plan benchPlan) {
	fmt.Fprintln(w, "=== Matrices Benchmark ===")
	fmt.Fprintf(w, "CPUs:       %d\n", runtime.NumCPU())
	fmt.Fprintf(w, "GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))
	fmt.Fprintf(w, "Arch:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if feats := hostFeatures(); len(feats) > 0 {
		fmt.Fprintf(w, "Features:   %s\n", strings.Join(feats, " "))
	}
	fmt.Fprintf(w, "DType:      %s\n", dtype)
	fmt.Fprintf(w, "Runs:       %d\n", plan.runs)
	fmt.Fprintln(w)
}

// hostFeatures lists the SIMD extensions the kernel could benefit from.
func hostFeatures() []string {
	var feats []string
	switch runtime.GOARCH {
	case "amd64", "386":
		for name, ok := range map[string]bool{
			"sse4.1":   cpu.X86.HasSSE41,
			"avx":      cpu.X86.HasAVX,
			"avx2":     cpu.X86.HasAVX2,
			"fma":      cpu.X86.HasFMA,
			"avx512f":  cpu.X86.HasAVX512F,
			"avx512bw": cpu.X86.HasAVX512BW,
		} {
			if ok {
				feats = append(feats, name)
			}
		}
	case "arm64":
		for name, ok := range map[string]bool{
			"asimd": cpu.ARM64.HasASIMD,
			"fphp":  cpu.ARM64.HasFPHP,
			"sve":   cpu.ARM64.HasSVE,
			"sve2":  cpu.ARM64.HasSVE2,
		} {
			if ok {
				feats = append(feats, name)
			}
		}
	}
	slices.Sort(feats)
	return feats
}

func runBench[T matrix.Element](ctx context.Context, w io.Writer, plan benchPlan) error {
	log := logger.FromContext(ctx)
	var rows []benchRow
	for _, name := range plan.strategies {
		s, err := matmul.New[T](name, plan.opts)
		if err != nil {
			return err
		}
		for _, n := range plan.sizes {
			a, err := matrix.New[T](n)
			if err != nil {
				return err
			}
			b, err := matrix.New[T](n)
			if err != nil {
				return err
			}
			matrix.FillRandom(a, plan.seed)
			matrix.FillRandom(b, plan.seed+1)

			counts := lo.Filter(plan.workers, func(wk int, _ int) bool { return wk <= n })
			if name == matmul.NameSequential {
				counts = []int{1}
			}
			for _, wk := range counts {
				log.Info("benchmark", "strategy", name, "n", n, "workers", wk)
				row := benchRow{strategy: name, n: n, workers: wk}
				var total time.Duration
				for i := range plan.runs {
					start := time.Now()
					if _, err := matmul.Multiply(ctx, a, b, s, wk); err != nil {
						return fmt.Errorf("%s n=%d workers=%d: %w", name, n, wk, err)
					}
					d := time.Since(start)
					total += d
					if i == 0 || d < row.best {
						row.best = d
					}
				}
				row.mean = total / time.Duration(plan.runs)
				rows = append(rows, row)
			}
		}
	}
	printBench(w, rows)
	return nil
}

func printBench(w io.Writer, rows []benchRow) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "%-12s %8s %8s %12s %12s %10s\n", "Strategy", "Size", "Workers", "Best", "Mean", "MFLOP/s")
	for _, r := range rows {
		flops := 2 * float64(r.n) * float64(r.n) * float64(r.n)
		var mflops float64
		if r.best > 0 {
			mflops = flops / r.best.Seconds() / 1e6
		}
		p.Fprintf(w, "%-12s %8d %8d %12s %12s %10.1f\n",
			r.strategy, r.n, r.workers, r.best.Round(time.Microsecond), r.mean.Round(time.Microsecond), mflops)
	}
}
