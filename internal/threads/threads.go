// Package threads runs the row-block kernel on W OS threads sharing the
// caller's address space. A, B and C are read and written in place; each
// thread writes only its own rows of C.
package threads

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Danielfrancoi/matrices/internal/failure"
	"github.com/Danielfrancoi/matrices/internal/kernel"
	"github.com/Danielfrancoi/matrices/internal/logger"
	"github.com/Danielfrancoi/matrices/internal/matrix"
	"github.com/Danielfrancoi/matrices/internal/partition"
)

const Name = "threads"

// DefaultMaxThreads bounds how many worker threads may be alive at once
// across all concurrent calls sharing a budget.
func DefaultMaxThreads() int64 {
	return int64(64 * runtime.GOMAXPROCS(0))
}

// Budget is a process-wide allowance of worker threads. Acquiring past it is
// the thread-creation failure of this backend.
type Budget struct {
	size int64
	sem  *semaphore.Weighted
}

// NewBudget returns a budget of size threads. size <= 0 selects
// DefaultMaxThreads.
func NewBudget(size int64) *Budget {
	if size <= 0 {
		size = DefaultMaxThreads()
	}
	return &Budget{size: size, sem: semaphore.NewWeighted(size)}
}

// Size returns the budget capacity.
func (b *Budget) Size() int64 { return b.size }

var (
	defaultBudgetOnce sync.Once
	defaultBudget     *Budget
)

func sharedBudget() *Budget {
	defaultBudgetOnce.Do(func() { defaultBudget = NewBudget(0) })
	return defaultBudget
}

// Strategy is the thread-pool execution strategy.
type Strategy[T matrix.Element] struct {
	budget *Budget
}

// New returns a Strategy drawing threads from budget, or from a shared
// default budget when budget is nil.
func New[T matrix.Element](budget *Budget) *Strategy[T] {
	if budget == nil {
		budget = sharedBudget()
	}
	return &Strategy[T]{budget: budget}
}

func (s *Strategy[T]) Name() string { return Name }

// Multiply spawns exactly workers threads and joins them all before
// returning. If the budget cannot supply every thread, the threads already
// started are joined and the call fails; it never proceeds with fewer.
func (s *Strategy[T]) Multiply(ctx context.Context, a, b *matrix.Matrix[T], workers int) (*matrix.Matrix[T], error) {
	n := a.Dim()
	parts, err := partition.All(n, workers)
	if err != nil {
		return nil, err
	}
	c, err := matrix.New[T](n)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx).With("strategy", Name)

	var g errgroup.Group
	started := 0
	var spawnErr error
	for _, p := range parts {
		if !s.budget.sem.TryAcquire(1) {
			spawnErr = failure.ResourceExhausted(nil,
				"thread %d of %d: budget of %d threads in use", p.Worker, workers, s.budget.size)
			break
		}
		started++
		g.Go(func() (err error) {
			defer s.budget.sem.Release(1)
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			defer func() {
				if rec := recover(); rec != nil {
					err = failure.WorkerFailed(fmt.Errorf("%v", rec), "thread %d", p.Worker)
				}
			}()
			kernel.Range(c, a, b, p.Start, p.End)
			log.Debug("rows done", "worker", p.Worker, "start", p.Start, "end", p.End)
			return nil
		})
	}

	// Join every started thread on both paths.
	joinErr := g.Wait()
	if spawnErr != nil {
		log.Error("aborting multiplication", "started", started, "requested", workers, "err", spawnErr)
		return nil, spawnErr
	}
	if joinErr != nil {
		return nil, joinErr
	}
	return c, nil
}
