// Package slab provides a fixed-size block pool carved from one contiguous
// buffer.
//
// The pool never grows. Alloc blocks while every block is checked out and
// wakes as soon as another goroutine releases one. Blocks are handed out as
// *Block handles; releasing a handle twice, or releasing it to a different
// slab, is reported as an error instead of corrupting the free list.
//
//	s, err := slab.New(132, 64)
//	if err != nil { ... }
//	b, err := s.Alloc()
//	if err != nil { ... }
//	defer b.Release()
//	copy(b.Bytes(), record)
package slab

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/bft-labs/gesturelink/internal/domain"
	"github.com/bft-labs/gesturelink/pkg/list"
	"github.com/bft-labs/gesturelink/pkg/log"
	"github.com/bft-labs/gesturelink/pkg/workqueue"
)

var (
	// ErrInvalidSize is returned by New for a non-positive block size or count.
	ErrInvalidSize = fmt.Errorf("slab: block size and count must be positive: %w", domain.ErrInitialization)

	// ErrExhausted is returned by TryAlloc when no block is free.
	ErrExhausted = fmt.Errorf("slab: no free blocks: %w", domain.ErrAllocation)

	// ErrClosed is returned by allocation calls after Close.
	ErrClosed = fmt.Errorf("slab: closed: %w", domain.ErrInvalidState)

	// ErrForeignBlock is returned when a block is freed to a slab that did not
	// allocate it.
	ErrForeignBlock = fmt.Errorf("slab: block belongs to another slab: %w", domain.ErrInvalidArgument)

	// ErrDoubleFree is returned when a block that is not checked out is freed.
	ErrDoubleFree = fmt.Errorf("slab: block already free: %w", domain.ErrInvalidState)

	// ErrBlocksOutstanding is returned by Close when blocks are still checked
	// out. The slab is closed regardless.
	ErrBlocksOutstanding = errors.New("slab: closed with blocks outstanding")
)

// Block is a handle to one fixed-size block of a Slab.
type Block struct {
	slab  *Slab
	index int
	data  []byte
	link  list.Link[Block]
	inUse bool // guarded by slab.mu
}

// Bytes returns the block's memory. Its length is the slab's block size. The
// slice must not be used after Release.
func (b *Block) Bytes() []byte { return b.data }

// Index returns the block's position inside the slab buffer.
func (b *Block) Index() int { return b.index }

// Release returns the block to its slab.
func (b *Block) Release() error {
	if b == nil || b.slab == nil {
		return fmt.Errorf("slab: release of nil block: %w", domain.ErrInvalidArgument)
	}
	return b.slab.Free(b)
}

// Option configures a Slab.
type Option func(*options)

type options struct {
	logger log.Logger
	zero   bool
}

// WithLogger sets the logger used for exhaustion and lifecycle messages.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithZeroOnFree clears each block's bytes when it is freed.
func WithZeroOnFree() Option {
	return func(o *options) { o.zero = true }
}

// Slab is a pool of count blocks of blockSize bytes.
type Slab struct {
	blockSize int
	capacity  int
	free      *workqueue.Queue[Block]
	logger    log.Logger
	zero      bool

	mu     sync.Mutex
	buf    []byte
	blocks []Block
	inUse  int
	closed bool
}

// New allocates one buffer of count*blockSize bytes and partitions it into
// count free blocks.
func New(blockSize, count int, opts ...Option) (*Slab, error) {
	if blockSize <= 0 || count <= 0 {
		return nil, ErrInvalidSize
	}
	if blockSize > math.MaxInt/count {
		return nil, fmt.Errorf("slab: %d blocks of %d bytes overflows: %w", count, blockSize, domain.ErrInitialization)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Slab{
		blockSize: blockSize,
		capacity:  count,
		free:      workqueue.New(func(b *Block) *list.Link[Block] { return &b.link }),
		logger:    log.OrNoop(o.logger),
		zero:      o.zero,
		buf:       make([]byte, blockSize*count),
		blocks:    make([]Block, count),
	}
	for i := range s.blocks {
		b := &s.blocks[i]
		b.slab = s
		b.index = i
		start := i * blockSize
		b.data = s.buf[start : start+blockSize : start+blockSize]
		_ = s.free.Add(b)
	}
	return s, nil
}

// BlockSize returns the size of every block in bytes.
func (s *Slab) BlockSize() int { return s.blockSize }

// Capacity returns the number of blocks in the slab.
func (s *Slab) Capacity() int { return s.capacity }

// Available returns the number of free blocks.
func (s *Slab) Available() int { return s.free.Len() }

// InUse returns the number of checked-out blocks.
func (s *Slab) InUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inUse
}

// Alloc returns a free block, blocking while the slab is exhausted. There is
// no timeout: some other goroutine must eventually free a block or Close the
// slab. Use AllocContext to bound the wait.
func (s *Slab) Alloc() (*Block, error) {
	if s.free.IsEmpty() {
		s.logger.Debug("slab exhausted, waiting for a free block", log.Int("capacity", s.capacity))
	}
	b, ok := s.free.Get()
	if !ok {
		return nil, ErrClosed
	}
	return s.checkout(b)
}

// AllocContext is Alloc bounded by ctx.
func (s *Slab) AllocContext(ctx context.Context) (*Block, error) {
	b, err := s.free.GetContext(ctx)
	if err != nil {
		if errors.Is(err, workqueue.ErrDrained) {
			return nil, ErrClosed
		}
		return nil, err
	}
	return s.checkout(b)
}

// TryAlloc returns a free block without waiting, or ErrExhausted.
func (s *Slab) TryAlloc() (*Block, error) {
	b, ok := s.free.TryGet()
	if !ok {
		if s.free.Sealed() {
			return nil, ErrClosed
		}
		return nil, ErrExhausted
	}
	return s.checkout(b)
}

func (s *Slab) checkout(b *Block) (*Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	b.inUse = true
	s.inUse++
	return b, nil
}

// Free returns b to the slab and wakes one goroutine blocked in Alloc.
// Blocks freed after Close are retired rather than reused.
func (s *Slab) Free(b *Block) error {
	if b == nil {
		return fmt.Errorf("slab: free of nil block: %w", domain.ErrInvalidArgument)
	}
	if b.slab != s {
		return ErrForeignBlock
	}

	s.mu.Lock()
	if !b.inUse {
		s.mu.Unlock()
		return ErrDoubleFree
	}
	b.inUse = false
	s.inUse--
	closed := s.closed
	s.mu.Unlock()

	if s.zero {
		clear(b.data)
	}
	if closed {
		return nil
	}
	if err := s.free.Add(b); err != nil && !errors.Is(err, workqueue.ErrSealed) {
		return err
	}
	return nil
}

// Close seals the slab: goroutines blocked in Alloc return ErrClosed and the
// buffer is released once outstanding blocks are freed. Close returns
// ErrBlocksOutstanding (wrapped with the count) if any block is still checked
// out; those blocks remain valid and may still be released. Calling Close
// again returns nil.
func (s *Slab) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	outstanding := s.inUse
	s.buf = nil
	s.blocks = nil
	s.mu.Unlock()

	s.free.Seal()
	for {
		if _, ok := s.free.TryGet(); !ok {
			break
		}
	}

	if outstanding > 0 {
		s.logger.Warn("slab closed with blocks outstanding", log.Int("outstanding", outstanding))
		return fmt.Errorf("%w: %d of %d", ErrBlocksOutstanding, outstanding, s.capacity)
	}
	s.logger.Debug("slab closed", log.Int("capacity", s.capacity))
	return nil
}
