package matrix

import "github.com/Danielfrancoi/matrices/internal/failure"

func errBadDim(n int) error {
	return failure.InvalidArgument("matrix dimension must be positive, got %d", n)
}

func errDataLen(n, got int) error {
	return failure.InvalidArgument("matrix of dimension %d needs %d cells, got %d", n, n*n, got)
}

func errOutOfRange(i, j, n int) error {
	return failure.InvalidArgument("cell (%d,%d) outside %dx%d matrix", i, j, n, n)
}

func errRowLen(i, got, n int) error {
	return failure.InvalidArgument("row %d has %d cells, want %d", i, got, n)
}
