// Package worker runs work items on one dedicated goroutine.
//
// A Worker owns a workqueue.Queue and a single consumer goroutine. Producers
// call Add from any goroutine; the worker pops items in FIFO order and invokes
// each item's callback with the item's payload. Close seals the queue and
// waits until every item added before it has run.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/gesturelink/internal/domain"
	"github.com/bft-labs/gesturelink/pkg/list"
	"github.com/bft-labs/gesturelink/pkg/log"
	"github.com/bft-labs/gesturelink/pkg/workqueue"
)

var (
	// ErrClosed is returned by Add once Close has been called.
	ErrClosed = fmt.Errorf("worker: closed: %w", domain.ErrQueueSealed)

	// ErrNilWork is returned by Add for a nil work item.
	ErrNilWork = fmt.Errorf("worker: nil work: %w", domain.ErrInvalidArgument)

	// ErrNilCallback is returned when a work item is built without a callback.
	ErrNilCallback = fmt.Errorf("worker: nil callback: %w", domain.ErrInvalidArgument)

	// ErrDestroyed is returned by Add for a work item that was destroyed.
	ErrDestroyed = fmt.Errorf("worker: work destroyed: %w", domain.ErrInvalidArgument)

	// ErrQueued is returned by Destroy for a work item still waiting to run.
	ErrQueued = fmt.Errorf("worker: work still queued: %w", domain.ErrInvalidState)
)

// Callback is invoked on the worker goroutine with the work item's payload.
type Callback func(payload []byte)

// Work pairs a payload with the callback that consumes it.
type Work struct {
	payload   []byte
	callback  Callback
	link      list.Link[Work]
	queue     atomic.Pointer[workqueue.Queue[Work]]
	destroyed atomic.Bool
}

// NewWork allocates a work item with a zeroed payload of size bytes. The
// caller fills Payload before adding the item to a worker.
func NewWork(size int, cb Callback) (*Work, error) {
	if size < 0 {
		return nil, fmt.Errorf("worker: negative payload size %d: %w", size, domain.ErrInvalidArgument)
	}
	return WrapWork(make([]byte, size), cb)
}

// WrapWork builds a work item around a caller-owned payload.
func WrapWork(payload []byte, cb Callback) (*Work, error) {
	if cb == nil {
		return nil, ErrNilCallback
	}
	return &Work{payload: payload, callback: cb}, nil
}

// Payload returns the item's payload region.
func (w *Work) Payload() []byte { return w.payload }

// Destroy releases the item. An item that is still queued cannot be
// destroyed; an item that already ran, or was never added, can. Destroying
// twice is a no-op.
func (w *Work) Destroy() error {
	if w == nil {
		return ErrNilWork
	}
	if q := w.queue.Load(); q != nil && q.Contains(w) {
		return ErrQueued
	}
	if w.destroyed.Swap(true) {
		return nil
	}
	w.payload = nil
	w.callback = nil
	return nil
}

// State is a worker lifecycle state.
type State int32

const (
	// StateRunning accepts and processes work.
	StateRunning State = iota
	// StateDraining rejects new work and runs what is left.
	StateDraining
	// StateTerminated means the goroutine has exited.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the logger for panics and lifecycle messages.
func WithLogger(logger log.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

// WithName labels log entries from this worker.
func WithName(name string) Option {
	return func(w *Worker) { w.name = name }
}

// Worker is one goroutine draining one queue of work items.
type Worker struct {
	name   string
	logger log.Logger
	queue  *workqueue.Queue[Work]
	done   chan struct{}

	state     atomic.Int32
	processed atomic.Uint64
	panics    atomic.Uint64
	closeOnce sync.Once
}

// New creates a running worker and starts its goroutine.
func New(opts ...Option) *Worker {
	w := &Worker{
		name:  "worker",
		queue: workqueue.New(func(item *Work) *list.Link[Work] { return &item.link }),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = log.With(log.OrNoop(w.logger), log.String("worker", w.name))
	w.state.Store(int32(StateRunning))

	go w.run()
	return w
}

func (w *Worker) run() {
	defer close(w.done)
	defer w.state.Store(int32(StateTerminated))

	w.logger.Debug("worker started")
	for {
		item, ok := w.queue.Get()
		if !ok {
			w.logger.Debug("worker drained", log.Uint64("processed", w.processed.Load()))
			return
		}
		w.execute(item)
	}
}

func (w *Worker) execute(item *Work) {
	defer w.processed.Add(1)
	defer func() {
		if r := recover(); r != nil {
			w.panics.Add(1)
			w.logger.Error("work callback panicked", log.Any("panic", r))
		}
	}()
	item.callback(item.payload)
}

// Add enqueues item for execution. It is safe to call from any goroutine.
func (w *Worker) Add(item *Work) error {
	if item == nil {
		return ErrNilWork
	}
	if item.destroyed.Load() {
		return ErrDestroyed
	}
	for {
		prev := item.queue.Load()
		if prev != nil && prev != w.queue && prev.Contains(item) {
			return fmt.Errorf("worker: add: %w", ErrQueued)
		}
		if item.queue.CompareAndSwap(prev, w.queue) {
			break
		}
	}
	if err := w.queue.Add(item); err != nil {
		if errors.Is(err, workqueue.ErrSealed) {
			return ErrClosed
		}
		return fmt.Errorf("worker: add: %w", err)
	}
	return nil
}

// Go enqueues fn as a work item with no payload.
func (w *Worker) Go(fn func()) error {
	if fn == nil {
		return ErrNilCallback
	}
	item, err := WrapWork(nil, func([]byte) { fn() })
	if err != nil {
		return err
	}
	return w.Add(item)
}

func (w *Worker) seal() {
	w.closeOnce.Do(func() {
		w.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
		w.queue.Seal()
		w.logger.Debug("worker draining", log.Int("pending", w.queue.Len()))
	})
}

// Close seals the queue and blocks until every pending item has run and the
// goroutine has exited. Calling Close again returns immediately once the
// worker has terminated.
func (w *Worker) Close() error {
	w.seal()
	<-w.done
	return nil
}

// CloseContext is Close with a bound on the wait. When ctx ends first the
// worker keeps draining in the background and ctx.Err() is returned.
func (w *Worker) CloseContext(ctx context.Context) error {
	w.seal()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the worker goroutine exits.
func (w *Worker) Done() <-chan struct{} { return w.done }

// State returns the current lifecycle state.
func (w *Worker) State() State { return State(w.state.Load()) }

// Pending returns the number of queued items not yet started.
func (w *Worker) Pending() int { return w.queue.Len() }

// Processed returns the number of items whose callback has returned or
// panicked.
func (w *Worker) Processed() uint64 { return w.processed.Load() }

// Panics returns the number of recovered callback panics.
func (w *Worker) Panics() uint64 { return w.panics.Load() }
