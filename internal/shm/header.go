// Package shm manages named shared-memory segments holding matrices.
//
// A segment is a file under a tmpfs directory (normally /dev/shm) mapped
// MAP_SHARED by every process that opens it, so a write by any process lands
// in the same physical pages the others read. Layout:
//
//	[0, 64)                 Header
//	[DataOffset, ...)       Count matrices of Dim×Dim cells, each starting
//	                        on a 64-byte boundary, Stride bytes apart
package shm

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/Danielfrancoi/matrices/internal/matrix"
)

const (
	Magic = "MTXS"

	CurrentMajor uint16 = 1
	CurrentMinor uint16 = 0

	headerSize = 64
	alignment  = 64
)

var (
	ErrInvalidMagic     = errors.New("shm: invalid segment magic")
	ErrUnsupportedMajor = errors.New("shm: unsupported segment major version")
	ErrCorruptSegment   = errors.New("shm: corrupt segment")
)

// Header is the fixed prologue of a segment.
type Header struct {
	Magic       [4]byte
	Major       uint16
	Minor       uint16
	HeaderSize  uint32
	DType       uint32
	Dim         uint64
	Count       uint32
	_           uint32
	DataOffset  uint64
	Stride      uint64
	SegmentSize uint64
	_           [8]byte
}

// NewHeader computes the layout for count dim×dim matrices of dtype.
func NewHeader(dtype matrix.DType, dim, count int) (Header, error) {
	elem := dtype.Size()
	if elem == 0 || dim < 1 || count < 1 {
		return Header{}, ErrCorruptSegment
	}
	cells := uint64(dim) * uint64(dim)
	if cells/uint64(dim) != uint64(dim) {
		return Header{}, ErrCorruptSegment
	}
	stride := alignUp(cells * uint64(elem))
	h := Header{
		Major:       CurrentMajor,
		Minor:       CurrentMinor,
		HeaderSize:  headerSize,
		DType:       uint32(dtype),
		Dim:         uint64(dim),
		Count:       uint32(count),
		DataOffset:  alignUp(headerSize),
		Stride:      stride,
		SegmentSize: alignUp(headerSize) + stride*uint64(count),
	}
	copy(h.Magic[:], Magic)
	return h, nil
}

func alignUp(v uint64) uint64 {
	return (v + alignment - 1) &^ (alignment - 1)
}

// Validate checks magic, version and that the layout fits in size bytes.
func (h *Header) Validate(size int) error {
	if string(h.Magic[:]) != Magic {
		return ErrInvalidMagic
	}
	if h.Major != CurrentMajor {
		return ErrUnsupportedMajor
	}
	if h.HeaderSize != headerSize || h.DataOffset < headerSize {
		return ErrCorruptSegment
	}
	elem := matrix.DType(h.DType).Size()
	if elem == 0 || h.Dim == 0 || h.Count == 0 {
		return ErrCorruptSegment
	}
	if h.Stride < h.Dim*h.Dim*uint64(elem) {
		return ErrCorruptSegment
	}
	if h.SegmentSize > uint64(size) || h.DataOffset+h.Stride*uint64(h.Count) > h.SegmentSize {
		return ErrCorruptSegment
	}
	return nil
}

func (h *Header) encode(dst []byte) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return err
	}
	if buf.Len() != headerSize || len(dst) < headerSize {
		return ErrCorruptSegment
	}
	copy(dst, buf.Bytes())
	return nil
}

func decodeHeader(src []byte) (Header, error) {
	var h Header
	if len(src) < headerSize {
		return h, ErrCorruptSegment
	}
	if err := binary.Read(bytes.NewReader(src[:headerSize]), binary.LittleEndian, &h); err != nil {
		return h, err
	}
	return h, nil
}
