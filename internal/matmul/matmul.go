// Package matmul is the entry point for square matrix multiplication: it
// validates the operands once and hands them to an execution strategy.
package matmul

import (
	"context"
	"time"

	"github.com/Danielfrancoi/matrices/internal/failure"
	"github.com/Danielfrancoi/matrices/internal/kernel"
	"github.com/Danielfrancoi/matrices/internal/logger"
	"github.com/Danielfrancoi/matrices/internal/matrix"
)

// Strategy computes C = A×B with a fixed number of workers. Implementations
// may assume the operands are validated: non-nil, same dimension, and
// 1 <= workers <= n.
type Strategy[T matrix.Element] interface {
	Name() string
	Multiply(ctx context.Context, a, b *matrix.Matrix[T], workers int) (*matrix.Matrix[T], error)
}

// Multiply validates the operands and runs s. On failure no partial result
// is returned.
func Multiply[T matrix.Element](ctx context.Context, a, b *matrix.Matrix[T], s Strategy[T], workers int) (*matrix.Matrix[T], error) {
	if a == nil || b == nil {
		return nil, failure.InvalidArgument("nil operand")
	}
	if s == nil {
		return nil, failure.InvalidArgument("nil strategy")
	}
	n := a.Dim()
	if b.Dim() != n {
		return nil, failure.InvalidArgument("dimension mismatch: %dx%d times %dx%d", n, n, b.Dim(), b.Dim())
	}
	if workers <= 0 {
		return nil, failure.InvalidArgument("workers must be positive, got %d", workers)
	}
	if workers > n {
		return nil, failure.InvalidArgument("%d workers for %d rows", workers, n)
	}

	log := logger.FromContext(ctx)
	start := time.Now()
	c, err := s.Multiply(ctx, a, b, workers)
	if err != nil {
		return nil, err
	}
	log.Debug("multiplied", "strategy", s.Name(), "n", n, "workers", workers, "dtype", matrix.DTypeOf[T](), "elapsed", time.Since(start))
	return c, nil
}

type sequential[T matrix.Element] struct{}

// Sequential is the single-threaded reference. It ignores the worker count.
func Sequential[T matrix.Element]() Strategy[T] { return sequential[T]{} }

func (sequential[T]) Name() string { return NameSequential }

func (sequential[T]) Multiply(_ context.Context, a, b *matrix.Matrix[T], _ int) (*matrix.Matrix[T], error) {
	return kernel.Sequential(a, b)
}
