package engine

import "errors"

var (
	// ErrUnavailable means no worker can take the request: the client was
	// never started, already closed, or its worker died. Retryable once a
	// fresh client exists.
	ErrUnavailable = errors.New("engine: compute worker unavailable")

	// ErrTerminated rejects requests still in flight when the client is
	// closed. Expected during shutdown; not a user-visible failure.
	ErrTerminated = errors.New("engine: client terminated")

	// ErrWorkerFault rejects every in-flight request when the worker dies
	// from an uncaught failure. The worker is not restarted.
	ErrWorkerFault = errors.New("engine: worker failed")

	// errQueueFull means the submission queue is saturated. Retryable.
	errQueueFull = errors.New("engine: request queue full")
)

// ComputeError is an explicit failure the worker reported for a single
// request, e.g. unparseable diff text. It carries the worker's message
// verbatim and is not retried automatically.
type ComputeError struct {
	Message string
}

func (e *ComputeError) Error() string {
	return e.Message
}
