// Package failure defines the error taxonomy shared by every execution
// strategy. Each kind is a sentinel; constructors return errors that unwrap
// to it so callers match with errors.Is.
package failure

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports bad dimensions or worker counts.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrResourceExhausted reports that a thread, process or shared segment
	// could not be acquired.
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrCollectiveFailure reports a broadcast, scatter, gather or barrier
	// that did not complete for every participant.
	ErrCollectiveFailure = errors.New("collective failure")
	// ErrWorkerFailed reports a worker that panicked or exited non-zero.
	ErrWorkerFailed = errors.New("worker failed")
	// ErrUnsupported reports a strategy unavailable on this platform.
	ErrUnsupported = errors.New("unsupported")
)

type kindError struct {
	kind error
	msg  string
	err  error
}

func (e *kindError) Error() string {
	if e.err != nil {
		return e.kind.Error() + ": " + e.msg + ": " + e.err.Error()
	}
	return e.kind.Error() + ": " + e.msg
}

func (e *kindError) Unwrap() []error {
	if e.err != nil {
		return []error{e.kind, e.err}
	}
	return []error{e.kind}
}

func newf(kind error, cause error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...), err: cause}
}

func InvalidArgument(format string, args ...any) error {
	return newf(ErrInvalidArgument, nil, format, args...)
}

func ResourceExhausted(cause error, format string, args ...any) error {
	return newf(ErrResourceExhausted, cause, format, args...)
}

func CollectiveFailure(cause error, format string, args ...any) error {
	return newf(ErrCollectiveFailure, cause, format, args...)
}

func WorkerFailed(cause error, format string, args ...any) error {
	return newf(ErrWorkerFailed, cause, format, args...)
}

func Unsupported(format string, args ...any) error {
	return newf(ErrUnsupported, nil, format, args...)
}
