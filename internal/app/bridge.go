package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/gesturelink/internal/domain"
	"github.com/bft-labs/gesturelink/internal/ports"
	"github.com/bft-labs/gesturelink/pkg/message"
	"github.com/bft-labs/gesturelink/pkg/slab"
	"github.com/bft-labs/gesturelink/pkg/worker"
)

// DefaultPoolBlocks is the number of records that may be in flight at once.
const DefaultPoolBlocks = 64

// ErrBridgeClosed is returned by producer calls after Close.
var ErrBridgeClosed = fmt.Errorf("bridge closed: %w", domain.ErrQueueSealed)

// BridgeConfig configures a Bridge.
type BridgeConfig struct {
	// PoolBlocks bounds the records queued or being sent. Producers block
	// while all of them are in use.
	PoolBlocks int
}

// SendEventEmitter is notified after every delivery attempt, on the worker
// goroutine.
type SendEventEmitter interface {
	OnSendSuccess(kind message.Kind, duration time.Duration)
	OnSendError(kind message.Kind, err error)
}

// Bridge turns detector events into wire records and delivers them from a
// dedicated worker goroutine. Each record lives in a slab block from the
// moment it is encoded until the worker has sent it, so at most PoolBlocks
// records are outstanding and a producer blocks when the consumer falls
// behind. Hits, signals and text share one queue and reach the wire in the
// order they were produced.
type Bridge struct {
	sender  ports.RecordSender
	logger  ports.Logger
	emitter SendEventEmitter
	pool    *slab.Slab
	worker  *worker.Worker

	closed    atomic.Bool
	closeOnce sync.Once
	torndown  chan struct{}
	closeErr  error

	sent   atomic.Uint64
	failed atomic.Uint64
}

var _ ports.EventSink = (*Bridge)(nil)

// NewBridge builds the record pool and starts the delivery worker. emitter
// may be nil.
func NewBridge(cfg BridgeConfig, sender ports.RecordSender, logger ports.Logger, emitter SendEventEmitter) (*Bridge, error) {
	if sender == nil {
		return nil, fmt.Errorf("bridge: nil sender: %w", domain.ErrInvalidArgument)
	}
	if cfg.PoolBlocks == 0 {
		cfg.PoolBlocks = DefaultPoolBlocks
	}
	logger = ports.OrNoop(logger)

	pool, err := slab.New(message.RecordSize, cfg.PoolBlocks, slab.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("bridge: record pool: %w", err)
	}

	return &Bridge{
		sender:   sender,
		logger:   logger,
		emitter:  emitter,
		pool:     pool,
		worker:   worker.New(worker.WithLogger(logger), worker.WithName("delivery")),
		torndown: make(chan struct{}),
	}, nil
}

// Hit queues a coordinate hit.
func (b *Bridge) Hit(x, y float64) error {
	return b.Send(context.Background(), message.NewCoordinate(x, y))
}

// Signal queues a lifecycle signal.
func (b *Bridge) Signal(s domain.Signal) error {
	m, err := message.NewSignal(s)
	if err != nil {
		return err
	}
	return b.Send(context.Background(), m)
}

// Text queues a text message.
func (b *Bridge) Text(s string) error {
	m, err := message.NewText(s)
	if err != nil {
		return err
	}
	return b.Send(context.Background(), m)
}

// Send encodes m into a pool block and queues it for delivery. It blocks
// while the pool is exhausted, until a block frees up or ctx ends.
func (b *Bridge) Send(ctx context.Context, m *message.Message) error {
	if b.closed.Load() {
		return ErrBridgeClosed
	}

	blk, err := b.pool.AllocContext(ctx)
	if err != nil {
		if errors.Is(err, slab.ErrClosed) {
			return ErrBridgeClosed
		}
		return fmt.Errorf("bridge: waiting for a record block: %w", err)
	}

	if err := m.MarshalTo(blk.Bytes()); err != nil {
		_ = blk.Release()
		return err
	}

	kind := m.Kind
	item, err := worker.WrapWork(blk.Bytes(), func(record []byte) {
		defer b.release(blk)
		b.deliver(kind, record)
	})
	if err != nil {
		_ = blk.Release()
		return err
	}
	if err := b.worker.Add(item); err != nil {
		_ = blk.Release()
		if errors.Is(err, worker.ErrClosed) {
			return ErrBridgeClosed
		}
		return err
	}
	return nil
}

func (b *Bridge) release(blk *slab.Block) {
	if err := blk.Release(); err != nil {
		b.logger.Error("record block release failed", ports.Err(err))
	}
}

// deliver runs on the worker goroutine. Failures are reported, not retried.
func (b *Bridge) deliver(kind message.Kind, record []byte) {
	start := time.Now()
	err := b.sender.SendRecord(record)
	elapsed := time.Since(start)

	if err != nil {
		b.failed.Add(1)
		b.logger.Error("send failed",
			ports.String("kind", kind.String()),
			ports.Err(err),
		)
		if b.emitter != nil {
			b.emitter.OnSendError(kind, err)
		}
		return
	}

	b.sent.Add(1)
	b.logger.Debug("record sent",
		ports.String("kind", kind.String()),
		ports.Duration("duration", elapsed),
	)
	if b.emitter != nil {
		b.emitter.OnSendSuccess(kind, elapsed)
	}
}

// Sent returns the number of records delivered.
func (b *Bridge) Sent() uint64 { return b.sent.Load() }

// Failed returns the number of records whose send failed.
func (b *Bridge) Failed() uint64 { return b.failed.Load() }

// InFlight returns the number of records queued or being sent.
func (b *Bridge) InFlight() int { return b.pool.InUse() }

// Close stops accepting events, waits for the worker to deliver everything
// already queued, then closes the sender and the pool. If ctx ends before the
// queue drains, Close returns ctx's error wrapped in ErrShutdownTimeout and the
// teardown completes in the background once the worker exits. Later calls
// wait for that same teardown and return its result.
func (b *Bridge) Close(ctx context.Context) error {
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		go func() {
			defer close(b.torndown)
			_ = b.worker.Close()
			b.closeErr = b.teardown()
		}()
	})

	select {
	case <-b.torndown:
		return b.closeErr
	default:
	}
	select {
	case <-b.torndown:
		return b.closeErr
	case <-ctx.Done():
		return fmt.Errorf("%w: draining: %w", domain.ErrShutdownTimeout, ctx.Err())
	}
}

func (b *Bridge) teardown() error {
	var errs []error
	if err := b.sender.Close(); err != nil {
		errs = append(errs, fmt.Errorf("bridge: closing sender: %w", err))
	}
	if err := b.pool.Close(); err != nil {
		errs = append(errs, fmt.Errorf("bridge: closing pool: %w", err))
	}

	b.logger.Info("bridge closed",
		ports.Uint64("sent", b.sent.Load()),
		ports.Uint64("failed", b.failed.Load()),
	)
	return errors.Join(errs...)
}
