package engine

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/reviewdeck/pkg/models"
)

// ComputeFunc is the computation the worker runs for each request.
type ComputeFunc func(diffText string, comments []models.Comment) (*models.DerivedData, error)

const requestQueueSize = 128

// worker owns the single background goroutine where all CPU-heavy diff
// parsing happens. Requests and responses cross its boundary as encoded
// frames; the worker never touches the cache or the pending map.
type worker struct {
	compute   ComputeFunc
	requests  chan []byte
	responses chan []byte
	// faulted closes when the loop dies from an uncaught panic. The worker
	// is unusable from then on; there is no in-place restart.
	faulted chan struct{}
	log     zerolog.Logger

	mu     sync.Mutex
	closed bool
}

func newWorker(compute ComputeFunc, log zerolog.Logger) *worker {
	w := &worker{
		compute:   compute,
		requests:  make(chan []byte, requestQueueSize),
		responses: make(chan []byte, requestQueueSize),
		faulted:   make(chan struct{}),
		log:       log,
	}
	go w.loop()
	return w
}

// submit queues an encoded request frame. It fails when the worker has been
// terminated or the queue is saturated; it never blocks.
func (w *worker) submit(frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrUnavailable
	}
	select {
	case w.requests <- frame:
		return nil
	default:
		return errQueueFull
	}
}

// terminate stops accepting requests and lets the loop drain and exit.
// Idempotent.
func (w *worker) terminate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.requests)
}

func (w *worker) loop() {
	defer close(w.responses)
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Interface("panic", r).Msg("Compute worker crashed")
			w.markClosed()
			close(w.faulted)
		}
	}()

	for frame := range w.requests {
		resp := w.handle(frame)
		if resp != nil {
			w.responses <- resp
		}
	}
}

// handle decodes one request, runs the computation, and encodes the outcome.
// Compute errors become explicit error responses; a panic escapes and kills
// the loop, which is the worker-fault path.
func (w *worker) handle(frame []byte) []byte {
	req, err := decodeRequest(frame)
	if err != nil {
		w.log.Warn().Err(err).Msg("Dropping undecodable request frame")
		return nil
	}
	if req.Type != msgTypeCompute {
		w.log.Warn().Str("type", req.Type).Msg("Dropping request with unknown type")
		return nil
	}

	var resp responseMessage
	result, err := w.compute(req.DiffText, req.Comments)
	if err != nil {
		resp = errorResponse(req.RequestID, err)
	} else {
		resp = successResponse(req.RequestID, result)
	}

	out, err := encodeResponse(resp)
	if err != nil {
		w.log.Error().Err(err).Uint64("request_id", req.RequestID).Msg("Failed to encode response")
		out, _ = encodeResponse(errorResponse(req.RequestID, err))
	}
	return out
}

func (w *worker) markClosed() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}
