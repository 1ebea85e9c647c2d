// Package dispatch multiplexes concurrent recognition requests onto a
// fixed-capacity pool of reusable OCR backend handles. Every submission gets
// a unique increasing id and exactly one response; a slow request never
// blocks an unrelated one.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"runtime"
	"sync"

	"snowbreak-gacha-export/ocr"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("dispatch engine closed")

type request struct {
	id  uint64
	img image.Image
}

type outcome struct {
	tokens []ocr.Token
	err    error
}

// Engine accepts recognition requests from any number of goroutines. The only
// shared critical sections are the pending-response table and the pool
// bookkeeping, both held just long enough for the mutation itself.
type Engine struct {
	factory  ocr.Factory
	capacity int

	queue chan request
	idle  chan ocr.Handle
	freed chan struct{}

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan outcome
	created int
	closed  bool

	// submitters counts Submit calls between their closed-check and their
	// queue send. Close waits for it before closing the queue, so a send can
	// never hit a closed channel.
	submitters sync.WaitGroup

	wg sync.WaitGroup
}

// New creates an engine backed by factory. Capacity caps how many live
// backend handles can exist at once; capacity <= 0 defaults to NumCPU.
func New(factory ocr.Factory, capacity int) *Engine {
	if capacity <= 0 {
		capacity = runtime.NumCPU()
	}
	e := &Engine{
		factory:  factory,
		capacity: capacity,
		queue:    make(chan request, capacity),
		idle:     make(chan ocr.Handle, capacity),
		freed:    make(chan struct{}, capacity),
		pending:  make(map[uint64]chan outcome),
	}
	e.wg.Add(1)
	go e.dispatch()
	return e
}

// Submit sends one image for recognition and blocks until its result arrives
// or ctx is done. Safe for concurrent use; each call receives exactly the
// response produced for its own submission.
func (e *Engine) Submit(ctx context.Context, img image.Image) ([]ocr.Token, error) {
	ch := make(chan outcome, 1)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	e.nextID++
	id := e.nextID
	e.pending[id] = ch
	e.submitters.Add(1)
	e.mu.Unlock()

	select {
	case e.queue <- request{id: id, img: img}:
		e.submitters.Done()
	case <-ctx.Done():
		e.submitters.Done()
		e.forget(id)
		return nil, ctx.Err()
	}

	select {
	case out := <-ch:
		return out.tokens, out.err
	case <-ctx.Done():
		// Drop the pending slot so a late result cannot be delivered to a
		// request that already gave up.
		e.forget(id)
		return nil, ctx.Err()
	}
}

// dispatch pulls queued requests and processes each independently.
func (e *Engine) dispatch() {
	defer e.wg.Done()
	for req := range e.queue {
		e.wg.Add(1)
		go e.process(req)
	}
}

func (e *Engine) process(req request) {
	defer e.wg.Done()

	h, err := e.checkout()
	if err != nil {
		e.deliver(req.id, outcome{err: err})
		return
	}

	tokens, err := h.Recognize(req.img)
	if errors.Is(err, ocr.ErrBackendUnavailable) {
		// The handle's process is gone; drop it and free its pool slot.
		log.Printf("Dispatch: worker died on request %d: %v", req.id, err)
		_ = h.Close()
		e.mu.Lock()
		e.created--
		e.mu.Unlock()
		// Wake a checkout that was waiting for capacity.
		select {
		case e.freed <- struct{}{}:
		default:
		}
	} else {
		e.checkin(h)
	}

	e.deliver(req.id, outcome{tokens: tokens, err: err})
}

// checkout reuses an idle handle, starts a new one while capacity remains,
// or waits for the next check-in.
func (e *Engine) checkout() (ocr.Handle, error) {
	for {
		select {
		case h := <-e.idle:
			return h, nil
		default:
		}

		e.mu.Lock()
		if e.created < e.capacity {
			e.created++
			e.mu.Unlock()
			h, err := e.factory()
			if err != nil {
				e.mu.Lock()
				e.created--
				e.mu.Unlock()
				return nil, fmt.Errorf("start ocr worker: %w", err)
			}
			return h, nil
		}
		e.mu.Unlock()

		// At capacity: wait for a check-in, or retry after a dead worker
		// frees a slot.
		select {
		case h := <-e.idle:
			return h, nil
		case <-e.freed:
		}
	}
}

func (e *Engine) checkin(h ocr.Handle) {
	e.idle <- h
}

// deliver hands the outcome to the pending slot for id, if the submitter is
// still waiting. The slot is removed first so no id is answered twice.
func (e *Engine) deliver(id uint64, out outcome) {
	e.mu.Lock()
	ch, ok := e.pending[id]
	if ok {
		delete(e.pending, id)
	}
	e.mu.Unlock()
	if ok {
		ch <- out
	}
}

func (e *Engine) forget(id uint64) {
	e.mu.Lock()
	delete(e.pending, id)
	e.mu.Unlock()
}

// Close stops accepting submissions, waits for in-flight work, and shuts down
// the pooled handles.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	// No new submitter can register once closed is set; wait out the ones
	// already past the check before the queue goes away.
	e.submitters.Wait()
	close(e.queue)
	e.wg.Wait()

	for {
		select {
		case h := <-e.idle:
			_ = h.Close()
		default:
			return
		}
	}
}
