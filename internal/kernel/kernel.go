// Package kernel holds the row-block multiply run by every worker.
package kernel

import "github.com/Danielfrancoi/matrices/internal/matrix"

// Rows computes c = a·b for a block of rows. b is n×n; a and c hold the
// same number of rows (len(a)/n) of width n. Each cell is accumulated in
// ascending k from zero, so floating-point results do not depend on how rows
// were split among workers. Only c is written.
func Rows[T matrix.Element](c, a, b []T, n int) {
	if n == 0 {
		return
	}
	rows := len(a) / n
	if len(c) < rows*n || len(b) < n*n {
		panic("kernel: buffer too small")
	}
	for i := 0; i < rows; i++ {
		aRow := a[i*n : (i+1)*n]
		cRow := c[i*n : (i+1)*n]
		for j := 0; j < n; j++ {
			var sum T
			for k, av := range aRow {
				sum += av * b[k*n+j]
			}
			cRow[j] = sum
		}
	}
}

// Range runs Rows over rows [start, end) of the full matrices a and c.
func Range[T matrix.Element](c, a, b *matrix.Matrix[T], start, end int) {
	Rows(c.Rows(start, end), a.Rows(start, end), b.Data(), a.Dim())
}

// Sequential is the single-threaded reference product.
func Sequential[T matrix.Element](a, b *matrix.Matrix[T]) (*matrix.Matrix[T], error) {
	c, err := matrix.New[T](a.Dim())
	if err != nil {
		return nil, err
	}
	Range(c, a, b, 0, a.Dim())
	return c, nil
}
