package collective

import (
	"context"
	"math"
	"unsafe"

	"github.com/Danielfrancoi/matrices/internal/failure"
	"github.com/Danielfrancoi/matrices/internal/matrix"
)

func asBytes[T matrix.Element](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*int(unsafe.Sizeof(s[0])))
}

func fromBytes[T matrix.Element](b []byte) ([]T, error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if len(b)%size != 0 {
		return nil, failure.CollectiveFailure(nil, "payload of %d bytes is not a whole number of %d-byte elements", len(b), size)
	}
	out := make([]T, len(b)/size)
	copy(asBytes(out), b)
	return out, nil
}

func scale[T matrix.Element](xs []int) []int {
	if xs == nil {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	out := make([]int, len(xs))
	for i, x := range xs {
		out[i] = x * size
	}
	return out
}

// Bcast sends root's data to every rank. Non-root ranks may pass nil.
func Bcast[T matrix.Element](ctx context.Context, c Comm, root int, data []T) ([]T, error) {
	con := Contribution{Op: OpBcast, Root: root}
	if c.Rank() == root {
		con.Payload = asBytes(data)
	}
	raw, err := c.Exchange(ctx, con)
	if err != nil {
		return nil, err
	}
	return fromBytes[T](raw)
}

// Scatterv sends send[displs[i]:displs[i]+counts[i]] from root to rank i.
// Counts and displs are in elements and only read on the root.
func Scatterv[T matrix.Element](ctx context.Context, c Comm, root int, send []T, counts, displs []int) ([]T, error) {
	con := Contribution{Op: OpScatterv, Root: root}
	if c.Rank() == root {
		con.Payload = asBytes(send)
		con.Counts = scale[T](counts)
		con.Displs = scale[T](displs)
	}
	raw, err := c.Exchange(ctx, con)
	if err != nil {
		return nil, err
	}
	return fromBytes[T](raw)
}

// Gatherv is the inverse of Scatterv. Root receives the assembled buffer;
// every other rank receives nil.
func Gatherv[T matrix.Element](ctx context.Context, c Comm, root int, send []T, counts, displs []int) ([]T, error) {
	con := Contribution{Op: OpGatherv, Root: root, Payload: asBytes(send)}
	if c.Rank() == root {
		con.Counts = scale[T](counts)
		con.Displs = scale[T](displs)
	}
	raw, err := c.Exchange(ctx, con)
	if err != nil {
		return nil, err
	}
	if c.Rank() != root {
		return nil, nil
	}
	return fromBytes[T](raw)
}

// Barrier returns once every rank has entered it.
func Barrier(ctx context.Context, c Comm) error {
	_, err := c.Exchange(ctx, Contribution{Op: OpBarrier})
	return err
}

// ReduceMax returns the maximum of v over all ranks on root, and v itself
// elsewhere.
func ReduceMax(ctx context.Context, c Comm, root int, v float64) (float64, error) {
	var counts, displs []int
	if c.Rank() == root {
		counts = make([]int, c.Size())
		displs = make([]int, c.Size())
		for i := range counts {
			counts[i] = 1
			displs[i] = i
		}
	}
	all, err := Gatherv(ctx, c, root, []float64{v}, counts, displs)
	if err != nil {
		return 0, err
	}
	if c.Rank() != root {
		return v, nil
	}
	best := math.Inf(-1)
	for _, x := range all {
		best = max(best, x)
	}
	return best, nil
}
