// Package engine runs the review derived-data computation on a dedicated
// background worker, correlating asynchronous responses back to callers and
// caching results so unchanged inputs never recompute.
//
// One Client owns one worker, one pending-request table, and one LRU cache;
// closing the Client tears all three down together. A Client is not revived
// after close or after a worker fault: the owner is expected to construct a
// fresh one, which also starts from an empty cache.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/reviewdeck/internal/cache"
	"github.com/reviewdeck/internal/derive"
	"github.com/reviewdeck/internal/fingerprint"
	"github.com/reviewdeck/pkg/models"
)

// Request carries one computation's inputs. CacheKey may be left empty, in
// which case the client derives one from the diff text and comment set.
type Request struct {
	CacheKey string
	DiffText string
	Comments []models.Comment
}

type outcome struct {
	result *models.DerivedData
	err    error
}

// pendingRequest tracks one dispatched request until its response arrives or
// the client is torn down.
type pendingRequest struct {
	cacheKey string
	done     chan outcome // buffered; delivery never blocks the dispatcher
}

// Options configures a Client.
type Options struct {
	// CacheCapacity bounds the result cache; <= 0 uses cache.DefaultCapacity.
	CacheCapacity int
	// Compute overrides the worker computation. Defaults to derive.Compute;
	// tests inject failing or panicking variants.
	Compute ComputeFunc
	Logger  zerolog.Logger
}

// Client is the facade the rest of the application calls. Safe for
// concurrent use.
type Client struct {
	log    zerolog.Logger
	cache  *cache.ResultCache
	worker *worker

	mu      sync.Mutex
	pending map[uint64]*pendingRequest
	nextID  uint64
	closed  bool

	dispatchDone chan struct{}
}

// NewClient constructs a client and starts its worker.
func NewClient(opts Options) (*Client, error) {
	resultCache, err := cache.New(opts.CacheCapacity)
	if err != nil {
		return nil, err
	}

	computeFn := opts.Compute
	if computeFn == nil {
		computeFn = derive.Compute
	}

	c := &Client{
		log:          opts.Logger,
		cache:        resultCache,
		worker:       newWorker(computeFn, opts.Logger),
		pending:      make(map[uint64]*pendingRequest),
		dispatchDone: make(chan struct{}),
	}
	go c.dispatchLoop()

	return c, nil
}

// Compute returns the derived data for req, from cache when possible and via
// a worker round-trip otherwise. A successful round-trip populates the cache
// under the request's key; a cache hit does not touch the worker at all.
func (c *Client) Compute(ctx context.Context, req Request) (*models.DerivedData, error) {
	key := req.CacheKey
	if key == "" {
		key = fingerprint.Key(req.DiffText, req.Comments)
	}

	if cached, ok := c.cache.Get(key); ok {
		c.log.Debug().Str("cache_key", key).Msg("Derived data served from cache")
		return cached, nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrUnavailable
	}
	c.nextID++
	id := c.nextID
	p := &pendingRequest{cacheKey: key, done: make(chan outcome, 1)}
	c.pending[id] = p
	c.mu.Unlock()

	frame, err := encodeRequest(requestMessage{
		Type:      msgTypeCompute,
		RequestID: id,
		DiffText:  req.DiffText,
		Comments:  req.Comments,
	})
	if err != nil {
		c.forget(id)
		return nil, err
	}

	if err := c.worker.submit(frame); err != nil {
		c.forget(id)
		return nil, err
	}
	c.log.Debug().Uint64("request_id", id).Str("cache_key", key).Msg("Compute request dispatched")

	select {
	case out := <-p.done:
		return out.result, out.err
	case <-ctx.Done():
		c.forget(id)
		return nil, fmt.Errorf("engine: request %d: %w", id, ctx.Err())
	}
}

// Close rejects every in-flight request with ErrTerminated, terminates the
// worker, and drops the cache. Requests arriving afterwards fail with
// ErrUnavailable. Idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	stranded := c.pending
	c.pending = make(map[uint64]*pendingRequest)
	c.mu.Unlock()

	for id, p := range stranded {
		c.log.Debug().Uint64("request_id", id).Msg("Rejecting in-flight request on teardown")
		p.done <- outcome{err: ErrTerminated}
	}

	c.worker.terminate()
	<-c.dispatchDone
	c.cache.Purge()
	c.log.Debug().Msg("Compute client closed")
}

// dispatchLoop matches worker responses to pending requests. It exits only
// when the worker's response channel closes, so late frames after a teardown
// are still consumed (and dropped as unmatched) instead of leaking.
func (c *Client) dispatchLoop() {
	defer close(c.dispatchDone)

	faulted := c.worker.faulted
	for {
		select {
		case frame, ok := <-c.worker.responses:
			if !ok {
				// Drained. The worker closes its fault channel before its
				// response channel, so check whether it died rather than
				// being terminated and fail the stragglers if so.
				select {
				case <-c.worker.faulted:
					c.failAll(ErrWorkerFault)
				default:
				}
				return
			}
			c.deliver(frame)
		case <-faulted:
			faulted = nil
			c.failAll(ErrWorkerFault)
		}
	}
}

func (c *Client) deliver(frame []byte) {
	resp, err := decodeResponse(frame)
	if err != nil {
		c.log.Warn().Err(err).Msg("Dropping undecodable response frame")
		return
	}

	c.mu.Lock()
	p, ok := c.pending[resp.RequestID]
	delete(c.pending, resp.RequestID)
	c.mu.Unlock()
	if !ok {
		// Stale response, e.g. the caller gave up or teardown raced it.
		c.log.Debug().Uint64("request_id", resp.RequestID).Msg("Dropping unmatched response")
		return
	}

	switch resp.Type {
	case msgTypeSuccess:
		result := &models.DerivedData{
			FileDiffs:    resp.FileDiffs,
			Fingerprints: make(map[string]string, len(resp.Fingerprints)),
			Threads:      resp.Threads,
		}
		for _, pair := range resp.Fingerprints {
			result.Fingerprints[pair.Path] = pair.Fingerprint
		}
		c.cache.Set(p.cacheKey, result)
		p.done <- outcome{result: result}
	case msgTypeError:
		p.done <- outcome{err: &ComputeError{Message: resp.Error}}
	default:
		c.log.Warn().Str("type", resp.Type).Uint64("request_id", resp.RequestID).Msg("Dropping response with unknown type")
		p.done <- outcome{err: fmt.Errorf("engine: unknown response type %q", resp.Type)}
	}
}

// failAll rejects every pending request with err and marks the client
// unusable. Used on worker fault.
func (c *Client) failAll(err error) {
	c.mu.Lock()
	stranded := c.pending
	c.pending = make(map[uint64]*pendingRequest)
	c.closed = true
	c.mu.Unlock()

	c.log.Error().Err(err).Int("in_flight", len(stranded)).Msg("Failing all in-flight requests")
	for _, p := range stranded {
		p.done <- outcome{err: err}
	}
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}
