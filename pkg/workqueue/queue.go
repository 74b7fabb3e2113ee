// Package workqueue provides a closable, blocking FIFO queue of intrusive items.
//
// Queue is the single monitor (mutex + condition variable) used across
// gesturelink: the worker dispatches work items through it, the slab keeps
// its free blocks on it, and the message receiver hands decoded records to
// consumers with it.
//
// A queue has three core operations:
//
//   - Add appends an item and never blocks; it fails once the queue is sealed.
//   - Get blocks until an item is available, or returns drained once the
//     queue is sealed and empty.
//   - Seal is idempotent and wakes every blocked consumer.
//
// Sealing never discards items: everything added before Seal is still
// returned by Get, in order.
package workqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bft-labs/gesturelink/internal/domain"
	"github.com/bft-labs/gesturelink/pkg/list"
)

var (
	// ErrSealed is returned by Add after Seal.
	ErrSealed = fmt.Errorf("workqueue: sealed: %w", domain.ErrQueueSealed)

	// ErrDrained is returned by GetContext once the queue is sealed and empty.
	ErrDrained = errors.New("workqueue: drained")

	// ErrNilItem is returned by Add for a nil item.
	ErrNilItem = fmt.Errorf("workqueue: nil item: %w", domain.ErrInvalidArgument)

	// ErrItemLinked is returned by Add for an item that is already queued.
	ErrItemLinked = fmt.Errorf("workqueue: item already queued: %w", domain.ErrInvalidArgument)
)

// Queue is a FIFO of *T guarded by a monitor. The zero value is not usable;
// construct queues with New.
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	pending  *list.List[T]
	sealed   bool
}

// New returns an empty, unsealed queue. link returns the list link embedded in
// an item; it stands in for the byte offset of the link inside the item type,
// letting one queue implementation carry any item type. New panics if link is
// nil.
func New[T any](link func(*T) *list.Link[T]) *Queue[T] {
	if link == nil {
		panic("workqueue: nil link accessor")
	}
	q := &Queue[T]{pending: list.New(link)}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Add appends item to the tail and wakes one waiting consumer.
func (q *Queue[T]) Add(item *T) error {
	if item == nil {
		return ErrNilItem
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.sealed {
		return ErrSealed
	}
	if err := q.pending.PushBack(item); err != nil {
		return ErrItemLinked
	}
	q.notEmpty.Signal()
	return nil
}

// Get removes and returns the head item, blocking while the queue is empty and
// not sealed. The second result is false when the queue is drained (sealed and
// empty); Get never blocks in that state.
func (q *Queue[T]) Get() (*T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.pending.Empty() && !q.sealed {
		q.notEmpty.Wait()
	}
	if q.pending.Empty() {
		return nil, false
	}
	return q.pending.PopFront(), true
}

// GetContext is Get with cancellation. It returns ErrDrained once the queue is
// sealed and empty, or ctx.Err() if ctx ends first. An item already available
// is returned even if ctx is done.
func (q *Queue[T]) GetContext(ctx context.Context) (*T, error) {
	// Broadcast under the lock so a waiter cannot miss the wakeup between
	// its ctx check and Wait.
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.notEmpty.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.pending.Empty() && !q.sealed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q.notEmpty.Wait()
	}
	if q.pending.Empty() {
		return nil, ErrDrained
	}
	return q.pending.PopFront(), nil
}

// TryGet removes and returns the head item without blocking. The second result
// is false if the queue is empty.
func (q *Queue[T]) TryGet() (*T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pending.Empty() {
		return nil, false
	}
	return q.pending.PopFront(), true
}

// Remove unlinks a specific queued item. It reports whether item was queued.
func (q *Queue[T]) Remove(item *T) bool {
	if item == nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Remove(item) == nil
}

// Contains reports whether item is currently queued on q.
func (q *Queue[T]) Contains(item *T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Contains(item)
}

// Seal stops the queue from accepting items and wakes every blocked consumer.
// Calling Seal more than once has no further effect.
func (q *Queue[T]) Seal() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.sealed {
		return
	}
	q.sealed = true
	q.notEmpty.Broadcast()
}

// Sealed reports whether Seal has been called.
func (q *Queue[T]) Sealed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sealed
}

// Drained reports whether the queue is sealed and empty.
func (q *Queue[T]) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sealed && q.pending.Empty()
}

// IsEmpty reports whether no items are queued.
func (q *Queue[T]) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Empty()
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}
