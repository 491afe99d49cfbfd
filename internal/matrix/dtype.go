package matrix

import (
	"fmt"
	"strings"
	"unsafe"
)

// Element is the set of cell types a Matrix can hold. All of them have a
// fixed size so a backing array can live in a shared segment or travel as
// raw bytes.
type Element interface {
	~int32 | ~int64 | ~float32 | ~float64
}

// DType tags an element type on the wire and in shared segments.
type DType uint32

const (
	DTypeInvalid DType = iota
	DTypeI32
	DTypeI64
	DTypeF32
	DTypeF64
)

func (d DType) String() string {
	switch d {
	case DTypeI32:
		return "i32"
	case DTypeI64:
		return "i64"
	case DTypeF32:
		return "f32"
	case DTypeF64:
		return "f64"
	default:
		return "invalid"
	}
}

// Size returns the element width in bytes, or 0 for an invalid dtype.
func (d DType) Size() int {
	switch d {
	case DTypeI32, DTypeF32:
		return 4
	case DTypeI64, DTypeF64:
		return 8
	default:
		return 0
	}
}

// Float reports whether the dtype is a floating-point type.
func (d DType) Float() bool {
	return d == DTypeF32 || d == DTypeF64
}

// ParseDType accepts the short names plus the Go type names.
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "i32", "int32":
		return DTypeI32, nil
	case "i64", "int64", "int", "":
		return DTypeI64, nil
	case "f32", "float32":
		return DTypeF32, nil
	case "f64", "float64", "double":
		return DTypeF64, nil
	default:
		return DTypeInvalid, fmt.Errorf("unknown dtype %q (expected i32, i64, f32, or f64)", s)
	}
}

// DTypeOf returns the dtype tag for T.
func DTypeOf[T Element]() DType {
	var zero T
	switch any(zero).(type) {
	case int32:
		return DTypeI32
	case int64:
		return DTypeI64
	case float32:
		return DTypeF32
	case float64:
		return DTypeF64
	}
	// Named types fall back on width and a float probe.
	size := unsafe.Sizeof(zero)
	isFloat := T(1)/T(2) != 0
	switch {
	case size == 4 && isFloat:
		return DTypeF32
	case size == 4:
		return DTypeI32
	case isFloat:
		return DTypeF64
	default:
		return DTypeI64
	}
}
