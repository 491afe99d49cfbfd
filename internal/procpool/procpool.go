// Package procpool runs the kernel in child processes that share A, B and C
// through one named shared-memory segment.
//
// The orchestrator creates the segment and fills A and B before any child
// exists. Each child receives only a descriptor (segment path, its index and
// the worker count), maps the segment, recomputes its own row range and
// writes those rows of C in place. The orchestrator waits for every child to
// exit, copies C out, then unmaps and unlinks the segment exactly once.
package procpool

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Danielfrancoi/matrices/internal/failure"
	"github.com/Danielfrancoi/matrices/internal/logger"
	"github.com/Danielfrancoi/matrices/internal/matrix"
	"github.com/Danielfrancoi/matrices/internal/partition"
	"github.com/Danielfrancoi/matrices/internal/shm"
	"github.com/Danielfrancoi/matrices/internal/spawn"
)

const (
	Name = "processes"
	Role = "procpool.worker"

	// Matrix slots inside the segment.
	slotA = 0
	slotB = 1
	slotC = 2
)

// Task is the descriptor a child process receives.
type Task struct {
	Segment string `json:"segment"`
	Worker  int    `json:"worker"`
	Workers int    `json:"workers"`
}

// Options configures the strategy. Zero values pick defaults: shm.DefaultDir,
// a fresh "matrices-<uuid>" name per call, and an ExecSpawner.
type Options struct {
	Dir     string
	Name    string
	Spawner spawn.Spawner
}

type Strategy[T matrix.Element] struct {
	opts Options
}

func New[T matrix.Element](opts Options) *Strategy[T] {
	return &Strategy[T]{opts: opts}
}

func (s *Strategy[T]) Name() string { return Name }

func (s *Strategy[T]) segmentName() string {
	if s.opts.Name != "" {
		return s.opts.Name
	}
	return "matrices-" + uuid.NewString()
}

func (s *Strategy[T]) spawner() (spawn.Spawner, error) {
	if s.opts.Spawner != nil {
		return s.opts.Spawner, nil
	}
	sp, err := spawn.NewExecSpawner()
	if err != nil {
		return nil, failure.ResourceExhausted(err, "worker executable")
	}
	return sp, nil
}

func (s *Strategy[T]) Multiply(ctx context.Context, a, b *matrix.Matrix[T], workers int) (_ *matrix.Matrix[T], err error) {
	n := a.Dim()
	parts, err := partition.All(n, workers)
	if err != nil {
		return nil, err
	}
	sp, err := s.spawner()
	if err != nil {
		return nil, err
	}

	dir := s.opts.Dir
	if dir == "" {
		dir = shm.DefaultDir()
	}
	h, err := shm.NewHeader(matrix.DTypeOf[T](), n, 3)
	if err != nil {
		return nil, failure.InvalidArgument("segment layout for n=%d: %v", n, err)
	}
	seg, err := shm.Create(dir, s.segmentName(), h)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx).With("strategy", Name, "segment", seg.Path())
	// Children have all exited by the time this runs: every return below
	// follows WaitAll.
	defer func() {
		if relErr := seg.Release(); relErr != nil {
			log.Warn("release segment", "err", relErr)
			if err == nil {
				err = fmt.Errorf("release segment: %w", relErr)
			}
		}
	}()

	sa, err := shm.Matrix[T](seg, slotA)
	if err != nil {
		return nil, err
	}
	sb, err := shm.Matrix[T](seg, slotB)
	if err != nil {
		return nil, err
	}
	copy(sa.Data(), a.Data())
	copy(sb.Data(), b.Data())

	procs := make([]spawn.Process, 0, workers)
	var spawnErr error
	for _, p := range parts {
		task, terr := spawn.NewTask(Role, seg.Path(), Task{Segment: seg.Path(), Worker: p.Worker, Workers: workers})
		if terr != nil {
			spawnErr = failure.ResourceExhausted(terr, "worker %d descriptor", p.Worker)
			break
		}
		proc, serr := sp.Start(ctx, task)
		if serr != nil {
			spawnErr = failure.ResourceExhausted(serr, "spawn worker %d of %d", p.Worker, workers)
			break
		}
		log.Debug("spawned", "worker", p.Worker, "pid", proc.Pid(), "start", p.Start, "end", p.End)
		procs = append(procs, proc)
	}

	waitErrs := spawn.WaitAll(procs)
	if spawnErr != nil {
		log.Error("aborting multiplication", "started", len(procs), "requested", workers, "err", spawnErr)
		return nil, spawnErr
	}
	var failed []error
	for i, werr := range waitErrs {
		if werr != nil {
			failed = append(failed, failure.WorkerFailed(werr, "worker %d (pid %d)", i, procs[i].Pid()))
		}
	}
	if len(failed) > 0 {
		return nil, errors.Join(failed...)
	}

	sc, err := shm.Matrix[T](seg, slotC)
	if err != nil {
		return nil, err
	}
	return sc.Clone(), nil
}
