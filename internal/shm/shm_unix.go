//go:build unix

package shm

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/Danielfrancoi/matrices/internal/failure"
)

// Segment is one mapping of a named segment. The creator owns the name and
// must call Release; openers call Close.
type Segment struct {
	path   string
	data   []byte
	header Header

	closeOnce  sync.Once
	closeErr   error
	unlinkOnce sync.Once
	unlinkErr  error
}

// DefaultDir returns /dev/shm when present, the temp dir otherwise.
func DefaultDir() string {
	if st, err := os.Stat("/dev/shm"); err == nil && st.IsDir() {
		return "/dev/shm"
	}
	return os.TempDir()
}

// Create makes a new segment at dir/name sized for h, maps it and writes the
// header. The name must not exist yet.
func Create(dir, name string, h Header) (*Segment, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, failure.InvalidArgument("segment name %q must be a single path element", name)
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, failure.ResourceExhausted(err, "create segment %s", path)
	}
	defer func() { _ = f.Close() }()

	fail := func(err error) (*Segment, error) {
		_ = os.Remove(path)
		return nil, failure.ResourceExhausted(err, "size segment %s", path)
	}
	if err := f.Truncate(int64(h.SegmentSize)); err != nil {
		return fail(err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(h.SegmentSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fail(err)
	}
	if err := h.encode(data); err != nil {
		_ = unix.Munmap(data)
		return fail(err)
	}
	return &Segment{path: path, data: data, header: h}, nil
}

// Open maps an existing segment read-write and validates its header.
func Open(path string) (*Segment, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := st.Size()
	if size < headerSize || size > int64(int(^uint(0)>>1)) {
		return nil, ErrCorruptSegment
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	h, err := decodeHeader(data)
	if err == nil {
		err = h.Validate(len(data))
	}
	if err != nil {
		_ = unix.Munmap(data)
		return nil, err
	}
	return &Segment{path: path, data: data, header: h}, nil
}

// Path returns the segment's file path, the handle passed to workers.
func (s *Segment) Path() string { return s.path }

// Header returns the decoded header.
func (s *Segment) Header() Header { return s.header }

// Close unmaps the segment. Views obtained from it must not be used after.
func (s *Segment) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = unix.Munmap(s.data)
		s.data = nil
	})
	return s.closeErr
}

// Unlink removes the segment name. Existing mappings stay valid.
func (s *Segment) Unlink() error {
	s.unlinkOnce.Do(func() {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.unlinkErr = err
		}
	})
	return s.unlinkErr
}

// Release unmaps and unlinks. Safe to call more than once.
func (s *Segment) Release() error {
	return errors.Join(s.Close(), s.Unlink())
}
