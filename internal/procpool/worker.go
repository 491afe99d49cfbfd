package procpool

import (
	"context"
	"errors"
	"fmt"

	"github.com/Danielfrancoi/matrices/internal/kernel"
	"github.com/Danielfrancoi/matrices/internal/logger"
	"github.com/Danielfrancoi/matrices/internal/matrix"
	"github.com/Danielfrancoi/matrices/internal/partition"
	"github.com/Danielfrancoi/matrices/internal/shm"
	"github.com/Danielfrancoi/matrices/internal/spawn"
)

func init() {
	spawn.Register(Role, func(ctx context.Context, t spawn.Task) error {
		var task Task
		if err := t.Decode(&task); err != nil {
			return err
		}
		return RunTask(ctx, task)
	})
}

// RunTask is the body of a child process: map the segment, multiply the
// rows this worker owns, unmap.
func RunTask(ctx context.Context, task Task) (err error) {
	seg, err := shm.Open(task.Segment)
	if err != nil {
		return fmt.Errorf("open segment: %w", err)
	}
	defer func() { err = errors.Join(err, seg.Close()) }()

	h := seg.Header()
	switch matrix.DType(h.DType) {
	case matrix.DTypeI32:
		return runRows[int32](ctx, seg, task)
	case matrix.DTypeI64:
		return runRows[int64](ctx, seg, task)
	case matrix.DTypeF32:
		return runRows[float32](ctx, seg, task)
	case matrix.DTypeF64:
		return runRows[float64](ctx, seg, task)
	default:
		return fmt.Errorf("segment dtype %d", h.DType)
	}
}

func runRows[T matrix.Element](ctx context.Context, seg *shm.Segment, task Task) error {
	n := int(seg.Header().Dim)
	p, err := partition.For(n, task.Workers, task.Worker)
	if err != nil {
		return err
	}
	a, err := shm.Matrix[T](seg, slotA)
	if err != nil {
		return err
	}
	b, err := shm.Matrix[T](seg, slotB)
	if err != nil {
		return err
	}
	c, err := shm.Matrix[T](seg, slotC)
	if err != nil {
		return err
	}
	kernel.Range(c, a, b, p.Start, p.End)
	logger.FromContext(ctx).Debug("rows done", "worker", p.Worker, "start", p.Start, "end", p.End)
	return nil
}
