// Package partition splits the rows of an n×n matrix among W workers.
//
// Every worker receives n/W rows; the first n%W workers receive one more.
// Ranges are laid out in worker order, are pairwise disjoint and cover [0, n)
// exactly. That disjointness is what lets workers write their rows of the
// result without any locking.
package partition

import "github.com/Danielfrancoi/matrices/internal/failure"

// Partition is the half-open row range [Start, End) owned by one worker.
type Partition struct {
	Worker int
	Start  int
	End    int
}

// Len returns the number of rows in the partition.
func (p Partition) Len() int { return p.End - p.Start }

func validate(n, workers int) error {
	if n < 1 {
		return failure.InvalidArgument("row count must be positive, got %d", n)
	}
	if workers < 1 {
		return failure.InvalidArgument("worker count must be positive, got %d", workers)
	}
	if workers > n {
		return failure.InvalidArgument("worker count %d exceeds row count %d", workers, n)
	}
	return nil
}

// For returns the partition of worker i out of workers.
func For(n, workers, i int) (Partition, error) {
	if err := validate(n, workers); err != nil {
		return Partition{}, err
	}
	if i < 0 || i >= workers {
		return Partition{}, failure.InvalidArgument("worker index %d outside [0,%d)", i, workers)
	}
	base := n / workers
	rem := n % workers
	start := i*base + min(i, rem)
	size := base
	if i < rem {
		size++
	}
	return Partition{Worker: i, Start: start, End: start + size}, nil
}

// All returns the partitions of every worker in index order.
func All(n, workers int) ([]Partition, error) {
	if err := validate(n, workers); err != nil {
		return nil, err
	}
	parts := make([]Partition, workers)
	base := n / workers
	rem := n % workers
	row := 0
	for i := range parts {
		size := base
		if i < rem {
			size++
		}
		parts[i] = Partition{Worker: i, Start: row, End: row + size}
		row += size
	}
	return parts, nil
}

// Layout returns per-worker element counts and displacements for a
// scatter/gather of an n×n row-major matrix: counts[i] = rows_i*n and
// displs[i] is the sum of the preceding counts.
func Layout(n, workers int) (counts, displs []int, err error) {
	parts, err := All(n, workers)
	if err != nil {
		return nil, nil, err
	}
	counts = make([]int, workers)
	displs = make([]int, workers)
	off := 0
	for i, p := range parts {
		counts[i] = p.Len() * n
		displs[i] = off
		off += counts[i]
	}
	return counts, displs, nil
}

// Clamp reduces workers to n when it is larger. Front ends that accept any
// worker count clamp before partitioning.
func Clamp(workers, n int) int {
	if workers > n {
		return n
	}
	return workers
}
