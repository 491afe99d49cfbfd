package matrix

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Danielfrancoi/matrices/internal/failure"
)

func TestNewRejectsNonPositiveDim(t *testing.T) {
	t.Parallel()
	for _, n := range []int{0, -3} {
		_, err := New[int64](n)
		require.ErrorIs(t, err, failure.ErrInvalidArgument)
	}
}

func TestWrapChecksLength(t *testing.T) {
	t.Parallel()
	_, err := Wrap(2, []int32{1, 2, 3})
	require.ErrorIs(t, err, failure.ErrInvalidArgument)

	data := []int32{1, 2, 3, 4}
	m, err := Wrap(2, data)
	require.NoError(t, err)
	require.NoError(t, m.Set(1, 0, 9))
	require.Equal(t, int32(9), data[2], "Wrap must alias the backing slice")
}

func TestAtSetRowMajor(t *testing.T) {
	t.Parallel()
	m, err := New[float64](3)
	require.NoError(t, err)
	require.NoError(t, m.Set(1, 2, 7.5))
	require.Equal(t, 7.5, m.Data()[1*3+2])

	v, err := m.At(1, 2)
	require.NoError(t, err)
	require.Equal(t, 7.5, v)

	_, err = m.At(3, 0)
	require.True(t, errors.Is(err, failure.ErrInvalidArgument))
	require.ErrorIs(t, m.Set(0, -1, 1), failure.ErrInvalidArgument)
}

func TestFromRows(t *testing.T) {
	t.Parallel()
	m, err := FromRows([][]int64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3, 4}, m.Data())
	require.Equal(t, []int64{3, 4}, m.Row(1))

	_, err = FromRows([][]int64{{1, 2}, {3}})
	require.ErrorIs(t, err, failure.ErrInvalidArgument)
}

func TestFillRandomIsReproducible(t *testing.T) {
	t.Parallel()
	a, _ := New[int64](8)
	b, _ := New[int64](8)
	FillRandom(a, 42)
	FillRandom(b, 42)
	require.True(t, a.Equal(b))
	for _, v := range a.Data() {
		require.GreaterOrEqual(t, v, int64(0))
		require.LessOrEqual(t, v, int64(9))
	}

	FillRandom(b, 43)
	require.False(t, a.Equal(b))
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()
	a, _ := FromRows([][]float32{{1, 2}, {3, 4}})
	c := a.Clone()
	require.NoError(t, c.Set(0, 0, 10))
	require.False(t, a.Equal(c))
	require.InDelta(t, 9.0, a.MaxAbsDiff(c), 1e-9)
}

func TestDTypeOf(t *testing.T) {
	t.Parallel()
	require.Equal(t, DTypeI32, DTypeOf[int32]())
	require.Equal(t, DTypeI64, DTypeOf[int64]())
	require.Equal(t, DTypeF32, DTypeOf[float32]())
	require.Equal(t, DTypeF64, DTypeOf[float64]())

	type cell float64
	require.Equal(t, DTypeF64, DTypeOf[cell]())

	d, err := ParseDType("float32")
	require.NoError(t, err)
	require.Equal(t, DTypeF32, d)
	require.Equal(t, 4, d.Size())
	_, err = ParseDType("complex128")
	require.Error(t, err)
}

func TestFormat(t *testing.T) {
	t.Parallel()
	ints, _ := FromRows([][]int64{{19, 22}, {43, 50}})
	var buf bytes.Buffer
	require.NoError(t, Format(&buf, ints))
	require.Equal(t, "19 22\n43 50\n", buf.String())

	floats, _ := FromRows([][]float64{{1.5}})
	buf.Reset()
	require.NoError(t, Format(&buf, floats))
	require.Equal(t, "  1.50\n", buf.String())
}
