// Package matrix provides the dense square matrix shared by every execution
// strategy.
package matrix

import (
	"math"
	"math/rand"
)

// Matrix is a dense row-major n×n matrix backed by one contiguous slice.
// Cell (i, j) lives at offset i*n+j.
//
// A Matrix may alias memory it does not own (see Wrap); the shared-memory
// strategy uses that to view matrices that live inside a mapped segment.
type Matrix[T Element] struct {
	n    int
	data []T
}

// New allocates a zeroed n×n matrix.
func New[T Element](n int) (*Matrix[T], error) {
	if n < 1 {
		return nil, errBadDim(n)
	}
	return &Matrix[T]{n: n, data: make([]T, n*n)}, nil
}

// Wrap views data as an n×n matrix without copying. len(data) must be n*n.
func Wrap[T Element](n int, data []T) (*Matrix[T], error) {
	if n < 1 {
		return nil, errBadDim(n)
	}
	if len(data) != n*n {
		return nil, errDataLen(n, len(data))
	}
	return &Matrix[T]{n: n, data: data}, nil
}

// FromRows copies a nested row slice into a new matrix. Every row must have
// len(rows) cells.
func FromRows[T Element](rows [][]T) (*Matrix[T], error) {
	n := len(rows)
	m, err := New[T](n)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != n {
			return nil, errRowLen(i, len(row), n)
		}
		copy(m.data[i*n:(i+1)*n], row)
	}
	return m, nil
}

// Dim returns n.
func (m *Matrix[T]) Dim() int { return m.n }

// Data returns the backing slice. Writes through it update the matrix.
func (m *Matrix[T]) Data() []T { return m.data }

// At returns cell (i, j).
func (m *Matrix[T]) At(i, j int) (T, error) {
	if i < 0 || j < 0 || i >= m.n || j >= m.n {
		var zero T
		return zero, errOutOfRange(i, j, m.n)
	}
	return m.data[i*m.n+j], nil
}

// Set writes cell (i, j).
func (m *Matrix[T]) Set(i, j int, v T) error {
	if i < 0 || j < 0 || i >= m.n || j >= m.n {
		return errOutOfRange(i, j, m.n)
	}
	m.data[i*m.n+j] = v
	return nil
}

// Row returns a view of row i. Out-of-range rows panic like a slice index.
func (m *Matrix[T]) Row(i int) []T {
	return m.data[i*m.n : (i+1)*m.n]
}

// Rows returns a view of rows [start, end).
func (m *Matrix[T]) Rows(start, end int) []T {
	return m.data[start*m.n : end*m.n]
}

// Clone returns an owned deep copy.
func (m *Matrix[T]) Clone() *Matrix[T] {
	data := make([]T, len(m.data))
	copy(data, m.data)
	return &Matrix[T]{n: m.n, data: data}
}

// Equal reports whether both matrices have the same dimension and cells.
func (m *Matrix[T]) Equal(o *Matrix[T]) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.n != o.n {
		return false
	}
	for i := range m.data {
		if m.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

// MaxAbsDiff returns the largest absolute cell difference, or +Inf when the
// dimensions differ.
func (m *Matrix[T]) MaxAbsDiff(o *Matrix[T]) float64 {
	if m.n != o.n {
		return math.Inf(1)
	}
	var maxAbs float64
	for i := range m.data {
		d := math.Abs(float64(m.data[i]) - float64(o.data[i]))
		if d > maxAbs {
			maxAbs = d
		}
	}
	return maxAbs
}

// FillRandom fills m with reproducible values in [0, 9]. The same seed always
// yields the same matrix.
func FillRandom[T Element](m *Matrix[T], seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for i := range m.data {
		m.data[i] = T(rng.Intn(10))
	}
}
