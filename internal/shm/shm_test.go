//go:build unix

package shm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Danielfrancoi/matrices/internal/failure"
	"github.com/Danielfrancoi/matrices/internal/matrix"
)

func TestHeaderLayout(t *testing.T) {
	t.Parallel()
	h, err := NewHeader(matrix.DTypeI32, 3, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(64), h.DataOffset)
	require.Equal(t, uint64(64), h.Stride, "9 int32 cells round up to one 64-byte line")
	require.Equal(t, uint64(64+3*64), h.SegmentSize)
	require.NoError(t, h.Validate(int(h.SegmentSize)))
	require.ErrorIs(t, h.Validate(int(h.SegmentSize)-1), ErrCorruptSegment)

	_, err = NewHeader(matrix.DTypeInvalid, 3, 1)
	require.ErrorIs(t, err, ErrCorruptSegment)
}

func TestHeaderEncodeRejectsBadMagic(t *testing.T) {
	t.Parallel()
	h, _ := NewHeader(matrix.DTypeF64, 2, 1)
	buf := make([]byte, headerSize)
	require.NoError(t, h.encode(buf))
	buf[0] = 'X'
	got, err := decodeHeader(buf)
	require.NoError(t, err)
	require.ErrorIs(t, got.Validate(int(h.SegmentSize)), ErrInvalidMagic)
}

func TestCreateOpenShareWrites(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	h, _ := NewHeader(matrix.DTypeI64, 4, 3)
	owner, err := Create(dir, "seg-"+uuid.NewString(), h)
	require.NoError(t, err)
	defer func() { require.NoError(t, owner.Release()) }()

	a, err := Matrix[int64](owner, 0)
	require.NoError(t, err)
	require.NoError(t, a.Set(2, 3, 42))

	peer, err := Open(owner.Path())
	require.NoError(t, err)
	pa, err := Matrix[int64](peer, 0)
	require.NoError(t, err)
	v, _ := pa.At(2, 3)
	require.Equal(t, int64(42), v)

	pc, err := Matrix[int64](peer, 2)
	require.NoError(t, err)
	require.NoError(t, pc.Set(0, 0, 7))
	require.NoError(t, peer.Close())

	c, _ := Matrix[int64](owner, 2)
	v, _ = c.At(0, 0)
	require.Equal(t, int64(7), v, "write through the second mapping must be visible")
}

func TestMatrixChecksTypeAndIndex(t *testing.T) {
	t.Parallel()
	h, _ := NewHeader(matrix.DTypeF32, 2, 1)
	seg, err := Create(t.TempDir(), "typed", h)
	require.NoError(t, err)
	defer seg.Release()

	_, err = Matrix[float64](seg, 0)
	require.Error(t, err)
	_, err = Matrix[float32](seg, 1)
	require.Error(t, err)
}

func TestReleaseUnlinksOnce(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	h, _ := NewHeader(matrix.DTypeF64, 2, 1)
	seg, err := Create(dir, "once", h)
	require.NoError(t, err)

	require.NoError(t, seg.Release())
	require.NoError(t, seg.Release())
	_, err = os.Stat(filepath.Join(dir, "once"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCreateRefusesExistingName(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "taken"), nil, 0o600))
	h, _ := NewHeader(matrix.DTypeI32, 2, 1)
	_, err := Create(dir, "taken", h)
	require.ErrorIs(t, err, failure.ErrResourceExhausted)

	_, err = Create(dir, "../escape", h)
	require.ErrorIs(t, err, failure.ErrInvalidArgument)
}

func TestOpenRejectsGarbage(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "garbage")
	require.NoError(t, os.WriteFile(path, make([]byte, 128), 0o600))
	_, err := Open(path)
	require.ErrorIs(t, err, ErrInvalidMagic)
}
