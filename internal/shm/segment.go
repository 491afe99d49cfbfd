package shm

import (
	"fmt"
	"unsafe"

	"github.com/Danielfrancoi/matrices/internal/matrix"
)

// Matrix returns a view of matrix idx inside seg. The view aliases the
// mapping and is invalid after seg is closed.
func Matrix[T matrix.Element](seg *Segment, idx int) (*matrix.Matrix[T], error) {
	h := seg.header
	if want := matrix.DTypeOf[T](); matrix.DType(h.DType) != want {
		return nil, fmt.Errorf("shm: segment holds %s, requested %s", matrix.DType(h.DType), want)
	}
	if idx < 0 || idx >= int(h.Count) {
		return nil, fmt.Errorf("shm: matrix %d outside segment of %d", idx, h.Count)
	}
	off := h.DataOffset + uint64(idx)*h.Stride
	cells := int(h.Dim * h.Dim)
	base := unsafe.Pointer(&seg.data[off])
	return matrix.Wrap(int(h.Dim), unsafe.Slice((*T)(base), cells))
}
