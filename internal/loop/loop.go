// Package loop runs the kernel as a work-sharing parallel-for over rows on a
// persistent goroutine pool, the shape of an OpenMP "parallel for".
//
// With a zero chunk the schedule is static: W contiguous row blocks laid out
// by the partitioner. A positive chunk switches to a dynamic schedule where
// W loop bodies claim chunk rows at a time from a shared counter.
package loop

import (
	"context"
	"sync/atomic"

	"github.com/Danielfrancoi/matrices/internal/kernel"
	"github.com/Danielfrancoi/matrices/internal/logger"
	"github.com/Danielfrancoi/matrices/internal/matrix"
	"github.com/Danielfrancoi/matrices/internal/partition"
)

const Name = "loop"

type Strategy[T matrix.Element] struct {
	pool  *Pool
	chunk int
}

// New returns a loop strategy on pool (Shared when nil).
func New[T matrix.Element](pool *Pool, chunk int) *Strategy[T] {
	if pool == nil {
		pool = Shared()
	}
	if chunk < 0 {
		chunk = 0
	}
	return &Strategy[T]{pool: pool, chunk: chunk}
}

func (s *Strategy[T]) Name() string { return Name }

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

	bodies := make([]func(), workers)
	if s.chunk == 0 {
		for i, p := range parts {
			bodies[i] = func() { kernel.Range(c, a, b, p.Start, p.End) }
		}
	} else {
		var next atomic.Int64
		chunk := s.chunk
		for i := range bodies {
			bodies[i] = func() {
				for {
					start := int(next.Add(int64(chunk))) - chunk
					if start >= n {
						return
					}
					kernel.Range(c, a, b, start, min(start+chunk, n))
				}
			}
		}
	}
	s.pool.Run(bodies)

	logger.FromContext(ctx).Debug("parallel for done",
		"strategy", Name, "workers", workers, "pool", s.pool.Size(), "chunk", s.chunk)
	return c, nil
}
