// Package distrib multiplies with a group of ranks that share nothing and
// move every byte through collectives: rank 0 broadcasts n and B, scatters
// the rows of A, every rank computes its rows, and rank 0 gathers C.
//
// The ranks run either as goroutines around an in-process hub (the local
// launcher) or as child processes talking to a hub served over HTTP by the
// orchestrator (the process launcher). Rank 0 always runs in the caller.
package distrib

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"golang.org/x/sync/errgroup"

	"github.com/Danielfrancoi/matrices/internal/collective"
	"github.com/Danielfrancoi/matrices/internal/failure"
	"github.com/Danielfrancoi/matrices/internal/logger"
	"github.com/Danielfrancoi/matrices/internal/matrix"
	"github.com/Danielfrancoi/matrices/internal/partition"
	"github.com/Danielfrancoi/matrices/internal/spawn"
)

const (
	Name = "distributed"
	Role = "distrib.rank"

	LauncherLocal   = "local"
	LauncherProcess = "process"

	DefaultAddr = "127.0.0.1:0"
)

// ParseLauncher normalises a launcher name. The empty string selects the
// local launcher.
func ParseLauncher(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", LauncherLocal, "goroutines":
		return LauncherLocal, nil
	case LauncherProcess, "processes":
		return LauncherProcess, nil
	default:
		return "", failure.InvalidArgument("unknown launcher %q (want %s or %s)", s, LauncherLocal, LauncherProcess)
	}
}

type Options struct {
	Launcher string
	// Addr is where the process launcher serves the hub.
	Addr    string
	Spawner spawn.Spawner
}

type Strategy[T matrix.Element] struct {
	launcher string
	opts     Options
}

func New[T matrix.Element](opts Options) (*Strategy[T], error) {
	l, err := ParseLauncher(opts.Launcher)
	if err != nil {
		return nil, err
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	return &Strategy[T]{launcher: l, opts: opts}, nil
}

func (s *Strategy[T]) Name() string { return Name }

func (s *Strategy[T]) Multiply(ctx context.Context, a, b *matrix.Matrix[T], workers int) (*matrix.Matrix[T], error) {
	if _, _, err := partition.Layout(a.Dim(), workers); err != nil {
		return nil, err
	}
	hub, err := collective.NewHub(workers)
	if err != nil {
		return nil, err
	}
	job := uuid.NewString()
	log := logger.FromContext(ctx).With("strategy", Name, "launcher", s.launcher, "job", job)
	ctx = logger.WithContext(ctx, log)

	if s.launcher == LauncherProcess {
		return s.runProcesses(ctx, hub, job, a, b)
	}
	return runLocal(ctx, hub, a, b)
}

func runLocal[T matrix.Element](ctx context.Context, hub *collective.Hub, a, b *matrix.Matrix[T]) (*matrix.Matrix[T], error) {
	var (
		g errgroup.Group
		c *matrix.Matrix[T]
	)
	for r := 0; r < hub.Size(); r++ {
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = failure.WorkerFailed(fmt.Errorf("panic: %v", p), "rank %d", r)
				}
				if err != nil {
					hub.Abort(err)
				}
			}()
			if r == 0 {
				c, err = Rank(ctx, hub.Local(r), a, b)
				return err
			}
			_, err = Rank[T](ctx, hub.Local(r), nil, nil)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Strategy[T]) spawner() (spawn.Spawner, error) {
	if s.opts.Spawner != nil {
		return s.opts.Spawner, nil
	}
	sp, err := spawn.NewExecSpawner()
	if err != nil {
		return nil, failure.ResourceExhausted(err, "rank executable")
	}
	return sp, nil
}

func (s *Strategy[T]) runProcesses(ctx context.Context, hub *collective.Hub, job string, a, b *matrix.Matrix[T]) (*matrix.Matrix[T], error) {
	log := logger.FromContext(ctx)
	sp, err := s.spawner()
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return nil, failure.ResourceExhausted(err, "listen on %s", s.opts.Addr)
	}
	e := echo.New()
	collective.NewServer(hub).Register(e)
	srv := &http.Server{Handler: e}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			hub.Abort(fmt.Errorf("hub server: %w", err))
		}
	}()
	defer srv.Close()
	url := "http://" + ln.Addr().String()
	log.Debug("serving hub", "url", url)

	size := hub.Size()
	var (
		wg       sync.WaitGroup
		spawnErr error
	)
	childErrs := make([]error, size)
	for r := 1; r < size; r++ {
		task, terr := spawn.NewTask(Role, job, RankTask{Hub: url, Rank: r, Size: size, DType: matrix.DTypeOf[T]()})
		if terr != nil {
			spawnErr = failure.ResourceExhausted(terr, "rank %d descriptor", r)
			break
		}
		proc, serr := sp.Start(ctx, task)
		if serr != nil {
			spawnErr = failure.ResourceExhausted(serr, "spawn rank %d of %d", r, size)
			break
		}
		log.Debug("spawned", "rank", r, "pid", proc.Pid())
		wg.Add(1)
		go func() {
			defer wg.Done()
			if werr := proc.Wait(); werr != nil {
				childErrs[r] = failure.WorkerFailed(werr, "rank %d (pid %d)", r, proc.Pid())
				hub.Abort(childErrs[r])
			}
		}()
	}

	if spawnErr != nil {
		hub.Abort(spawnErr)
		wg.Wait()
		log.Error("aborting multiplication", "err", spawnErr)
		return nil, spawnErr
	}

	c, err := Rank(ctx, hub.Local(0), a, b)
	if err != nil {
		hub.Abort(err)
	}
	wg.Wait()
	if err != nil {
		return nil, err
	}
	if err := errors.Join(childErrs...); err != nil {
		return nil, err
	}
	return c, nil
}
