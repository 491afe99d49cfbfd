package distrib

import (
	"context"
	"fmt"
	"time"

	"github.com/Danielfrancoi/matrices/internal/collective"
	"github.com/Danielfrancoi/matrices/internal/failure"
	"github.com/Danielfrancoi/matrices/internal/kernel"
	"github.com/Danielfrancoi/matrices/internal/logger"
	"github.com/Danielfrancoi/matrices/internal/matrix"
	"github.com/Danielfrancoi/matrices/internal/partition"
	"github.com/Danielfrancoi/matrices/internal/spawn"
)

const root = 0

// RankTask is the descriptor a child rank receives.
type RankTask struct {
	Hub   string       `json:"hub"`
	Rank  int          `json:"rank"`
	Size  int          `json:"size"`
	DType matrix.DType `json:"dtype"`
}

func init() {
	spawn.Register(Role, func(ctx context.Context, t spawn.Task) error {
		var task RankTask
		if err := t.Decode(&task); err != nil {
			return err
		}
		return RunRankTask(ctx, task)
	})
}

// RunRankTask is the body of a child rank: join the group and run the rank
// program for the task's element type.
func RunRankTask(ctx context.Context, task RankTask) error {
	comm, err := collective.Dial(ctx, task.Hub, task.Rank, task.Size)
	if err != nil {
		return err
	}
	switch task.DType {
	case matrix.DTypeI32:
		_, err = Rank[int32](ctx, comm, nil, nil)
	case matrix.DTypeI64:
		_, err = Rank[int64](ctx, comm, nil, nil)
	case matrix.DTypeF32:
		_, err = Rank[float32](ctx, comm, nil, nil)
	case matrix.DTypeF64:
		_, err = Rank[float64](ctx, comm, nil, nil)
	default:
		err = fmt.Errorf("rank task dtype %d", task.DType)
	}
	return err
}

// Rank runs one rank of the group. The root passes A and B and receives C;
// every other rank passes nil and receives nil.
func Rank[T matrix.Element](ctx context.Context, comm collective.Comm, a, b *matrix.Matrix[T]) (*matrix.Matrix[T], error) {
	isRoot := comm.Rank() == root
	var (
		dim          []int64
		aData, bData []T
	)
	if isRoot {
		dim = []int64{int64(a.Dim())}
		aData, bData = a.Data(), b.Data()
	}

	dim, err := collective.Bcast(ctx, comm, root, dim)
	if err != nil {
		return nil, err
	}
	if len(dim) != 1 || dim[0] < 1 {
		return nil, failure.CollectiveFailure(nil, "rank %d received dimension %v", comm.Rank(), dim)
	}
	n := int(dim[0])
	counts, displs, err := partition.Layout(n, comm.Size())
	if err != nil {
		return nil, err
	}

	bAll, err := collective.Bcast(ctx, comm, root, bData)
	if err != nil {
		return nil, err
	}
	if len(bAll) != n*n {
		return nil, failure.CollectiveFailure(nil, "rank %d received %d elements of B, want %d", comm.Rank(), len(bAll), n*n)
	}
	mine, err := collective.Scatterv(ctx, comm, root, aData, counts, displs)
	if err != nil {
		return nil, err
	}
	if len(mine) != counts[comm.Rank()] {
		return nil, failure.CollectiveFailure(nil, "rank %d received %d elements of A, want %d", comm.Rank(), len(mine), counts[comm.Rank()])
	}

	if err := collective.Barrier(ctx, comm); err != nil {
		return nil, err
	}
	start := time.Now()
	out := make([]T, len(mine))
	kernel.Rows(out, mine, bAll, n)
	elapsed := time.Since(start)
	if err := collective.Barrier(ctx, comm); err != nil {
		return nil, err
	}

	slowest, err := collective.ReduceMax(ctx, comm, root, elapsed.Seconds())
	if err != nil {
		return nil, err
	}
	c, err := collective.Gatherv(ctx, comm, root, out, counts, displs)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Debug("rows done", "rank", comm.Rank(), "rows", len(mine)/n, "elapsed", elapsed)
	if !isRoot {
		return nil, nil
	}
	log.Debug("group done", "ranks", comm.Size(), "slowest_seconds", slowest)
	return matrix.Wrap(n, c)
}
