// Package msgtransport sends and receives gameplay messages over a Unix
// socket as fixed-size records.
//
// Transport is the producer side: it wraps a transport.Transport, encodes
// each message into one message.RecordSize record and writes it. Receiver is
// the consumer side: it accepts connections, decodes records and hands the
// messages out in arrival order.
package msgtransport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/gesturelink/internal/domain"
	"github.com/bft-labs/gesturelink/pkg/log"
	"github.com/bft-labs/gesturelink/pkg/message"
	"github.com/bft-labs/gesturelink/pkg/transport"
)

// ErrRecordSize is returned by SendRecord for a buffer that is not exactly
// one record long.
var ErrRecordSize = fmt.Errorf("msgtransport: record must be %d bytes: %w", message.RecordSize, domain.ErrInvalidArgument)

// Option configures a Transport.
type Option func(*options)

type options struct {
	logger       log.Logger
	writeTimeout time.Duration
}

// WithLogger sets the logger for the transport and its socket.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithWriteTimeout bounds each record write.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.writeTimeout = d }
}

// Transport writes messages to one socket. Sends are serialized internally,
// so a Transport may be shared between goroutines.
type Transport struct {
	conn   *transport.Transport
	logger log.Logger

	mu  sync.Mutex
	buf [message.RecordSize]byte
}

// Open constructs the underlying socket transport for address and connects
// it before returning.
func Open(ctx context.Context, address string, opts ...Option) (*Transport, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.OrNoop(o.logger)

	conn, err := transport.New(address,
		transport.WithLogger(logger),
		transport.WithWriteTimeout(o.writeTimeout),
	)
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Info("message transport connected", log.String("socket", address))
	return &Transport{conn: conn, logger: logger}, nil
}

// Address returns the socket path.
func (t *Transport) Address() string { return t.conn.Address() }

// State returns the state of the underlying socket transport.
func (t *Transport) State() transport.State { return t.conn.State() }

// Send encodes m and writes its record.
func (t *Transport) Send(m *message.Message) error {
	if m == nil {
		return fmt.Errorf("msgtransport: nil message: %w", domain.ErrInvalidArgument)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := m.MarshalTo(t.buf[:]); err != nil {
		return err
	}
	if err := t.conn.Send(t.buf[:]); err != nil {
		return fmt.Errorf("msgtransport: send %s: %w", m.Kind, err)
	}
	return nil
}

// SendRecord writes an already-encoded record.
func (t *Transport) SendRecord(record []byte) error {
	if len(record) != message.RecordSize {
		return fmt.Errorf("%w: got %d", ErrRecordSize, len(record))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.conn.Send(record); err != nil {
		return fmt.Errorf("msgtransport: send record: %w", err)
	}
	return nil
}

// SendHit sends a coordinate hit.
func (t *Transport) SendHit(x, y float64) error {
	return t.Send(message.NewCoordinate(x, y))
}

// SendStart sends a start signal.
func (t *Transport) SendStart() error { return t.Send(message.NewStart()) }

// SendStop sends a stop signal.
func (t *Transport) SendStop() error { return t.Send(message.NewStop()) }

// SendPause sends a pause signal.
func (t *Transport) SendPause() error { return t.Send(message.NewPause()) }

// SendSignal sends the message for a lifecycle signal.
func (t *Transport) SendSignal(s domain.Signal) error {
	m, err := message.NewSignal(s)
	if err != nil {
		return err
	}
	return t.Send(m)
}

// SendText sends a text message.
func (t *Transport) SendText(s string) error {
	m, err := message.NewText(s)
	if err != nil {
		return err
	}
	return t.Send(m)
}

// Close disconnects and releases the socket.
func (t *Transport) Close() error {
	return t.conn.Close()
}
