package msgtransport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/gesturelink/internal/domain"
	"github.com/bft-labs/gesturelink/pkg/log"
	"github.com/bft-labs/gesturelink/pkg/message"
	"github.com/bft-labs/gesturelink/pkg/workqueue"
)

// ErrReceiverClosed is returned by Serve after Close.
var ErrReceiverClosed = fmt.Errorf("msgtransport: receiver closed: %w", domain.ErrInvalidState)

// Receiver is the consumer end of the channel. It listens on a socket path,
// decodes one message per record from every connection and queues the
// messages for Next.
type Receiver struct {
	path   string
	logger log.Logger
	ln     net.Listener
	queue  *workqueue.Queue[message.Message]

	active   sync.WaitGroup
	received atomic.Uint64
	rejected atomic.Uint64

	mu        sync.Mutex
	conns     map[net.Conn]struct{}
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// Listen binds a Unix socket at path, removing a stale socket file first.
// Call Serve to start accepting.
func Listen(path string, opts ...Option) (*Receiver, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if path == "" {
		return nil, fmt.Errorf("msgtransport: empty socket path: %w", domain.ErrInvalidArgument)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("msgtransport: removing stale socket %s: %w: %w", path, domain.ErrInitialization, err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("msgtransport: listening on %s: %w: %w", path, domain.ErrConnection, err)
	}

	return &Receiver{
		path:   path,
		logger: log.With(log.OrNoop(o.logger), log.String("socket", path)),
		ln:     ln,
		queue:  workqueue.New(message.QueueLink),
		conns:  make(map[net.Conn]struct{}),
	}, nil
}

// Path returns the socket path.
func (r *Receiver) Path() string { return r.path }

// Serve accepts connections until ctx is cancelled or Close is called, then
// waits for every connection handler to finish and seals the message queue.
// Messages queued before that remain available through Next.
func (r *Receiver) Serve(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrReceiverClosed
	}
	r.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = r.Close() })
	defer stop()

	r.logger.Info("receiver listening")
	for {
		conn, err := r.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			r.logger.Error("accept failed", log.Err(err))
			continue
		}
		if !r.track(conn) {
			conn.Close()
			break
		}

		go func() {
			defer r.active.Done()
			defer r.untrack(conn)
			r.handle(conn)
		}()
	}

	_ = r.Close()
	r.logger.Info("receiver stopped",
		log.Uint64("received", r.received.Load()),
		log.Uint64("rejected", r.rejected.Load()))
	return nil
}

func (r *Receiver) track(conn net.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.conns[conn] = struct{}{}
	r.active.Add(1)
	return true
}

func (r *Receiver) untrack(conn net.Conn) {
	r.mu.Lock()
	delete(r.conns, conn)
	r.mu.Unlock()
	conn.Close()
}

// handle reads records until the peer disconnects. A record that fails to
// decode is dropped; fixed framing keeps the following records aligned.
func (r *Receiver) handle(conn net.Conn) {
	r.logger.Debug("producer connected")
	buf := make([]byte, message.RecordSize)
	for {
		if _, err := io.ReadFull(conn, buf); err != nil {
			switch {
			case errors.Is(err, io.EOF):
				r.logger.Debug("producer disconnected")
			case errors.Is(err, io.ErrUnexpectedEOF):
				r.logger.Warn("producer disconnected mid-record")
			case errors.Is(err, net.ErrClosed):
			default:
				r.logger.Warn("read failed", log.Err(err))
			}
			return
		}

		m, err := message.Decode(buf)
		if err != nil {
			r.rejected.Add(1)
			r.logger.Warn("dropping undecodable record", log.Err(err))
			continue
		}
		if err := r.queue.Add(m); err != nil {
			return
		}
		r.received.Add(1)
	}
}

// Next blocks until a message is available. It returns false once the
// receiver is closed and every queued message has been consumed.
func (r *Receiver) Next() (*message.Message, bool) {
	return r.queue.Get()
}

// NextContext is Next bounded by ctx. It returns workqueue.ErrDrained once
// the receiver is closed and drained.
func (r *Receiver) NextContext(ctx context.Context) (*message.Message, error) {
	return r.queue.GetContext(ctx)
}

// Pending returns the number of decoded messages not yet consumed.
func (r *Receiver) Pending() int { return r.queue.Len() }

// Received returns the number of messages decoded so far.
func (r *Receiver) Received() uint64 { return r.received.Load() }

// Rejected returns the number of records dropped as undecodable.
func (r *Receiver) Rejected() uint64 { return r.rejected.Load() }

// Close stops accepting, disconnects every producer, waits for their
// handlers and seals the queue. The socket file is removed. Close is
// idempotent.
func (r *Receiver) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		for conn := range r.conns {
			conn.Close()
		}
		r.mu.Unlock()

		err := r.ln.Close()
		r.active.Wait()
		r.queue.Seal()
		if rmErr := os.Remove(r.path); rmErr != nil && !os.IsNotExist(rmErr) {
			r.logger.Warn("removing socket file failed", log.Err(rmErr))
		}
		if err != nil && !errors.Is(err, net.ErrClosed) {
			r.closeErr = fmt.Errorf("msgtransport: close listener: %w: %w", domain.ErrIO, err)
		}
	})
	return r.closeErr
}
