// Package transport is the client endpoint of a local Unix-domain socket.
//
// A Transport moves through Unconnected, Connected and Closed. Send is only
// valid while Connected and writes exactly one buffer per call with no
// buffering, batching or retry. A Transport has a single-writer contract:
// callers that share one must serialize Send themselves. Close is safe to call
// from any goroutine.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/bft-labs/gesturelink/internal/domain"
	"github.com/bft-labs/gesturelink/pkg/log"
)

// MaxAddressLen is the longest socket path accepted (sun_path minus the
// terminator).
const MaxAddressLen = 107

var (
	// ErrNotConnected is returned by Send before Connect.
	ErrNotConnected = fmt.Errorf("transport: not connected: %w", domain.ErrInvalidState)

	// ErrClosed is returned by Send and Connect after Close.
	ErrClosed = fmt.Errorf("transport: closed: %w", domain.ErrInvalidState)

	// ErrAlreadyConnected is returned by a second Connect.
	ErrAlreadyConnected = fmt.Errorf("transport: already connected: %w", domain.ErrInvalidState)

	// ErrShortWrite is returned when the socket accepts fewer bytes than sent.
	ErrShortWrite = fmt.Errorf("transport: short write: %w", domain.ErrIO)
)

// State is the connection state of a Transport.
type State int

const (
	StateUnconnected State = iota
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the logger for connection events.
func WithLogger(logger log.Logger) Option {
	return func(t *Transport) { t.logger = logger }
}

// WithWriteTimeout bounds each Send. Zero disables the deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(t *Transport) { t.writeTimeout = d }
}

// Transport is an outbound connection to one socket path.
type Transport struct {
	address      string
	writeTimeout time.Duration
	logger       log.Logger

	mu    sync.Mutex
	conn  net.Conn
	state State
}

// New records the target address. No connection is made.
func New(address string, opts ...Option) (*Transport, error) {
	if address == "" {
		return nil, fmt.Errorf("transport: empty address: %w", domain.ErrInvalidArgument)
	}
	if len(address) > MaxAddressLen {
		return nil, fmt.Errorf("transport: address %q exceeds %d bytes: %w", address, MaxAddressLen, domain.ErrInvalidArgument)
	}

	t := &Transport{address: address, state: StateUnconnected}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = log.With(log.OrNoop(t.logger), log.String("socket", address))
	return t, nil
}

// Address returns the socket path.
func (t *Transport) Address() string { return t.address }

// State returns the current state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Connect dials the socket. It may only be called once, while Unconnected.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	switch t.state {
	case StateConnected:
		t.mu.Unlock()
		return ErrAlreadyConnected
	case StateClosed:
		t.mu.Unlock()
		return ErrClosed
	}
	t.mu.Unlock()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", t.address)
	if err != nil {
		return fmt.Errorf("transport: connect %s: %w: %w", t.address, domain.ErrConnection, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateUnconnected {
		// Closed (or connected by a racing caller) while dialing.
		conn.Close()
		if t.state == StateClosed {
			return ErrClosed
		}
		return ErrAlreadyConnected
	}
	t.conn = conn
	t.state = StateConnected
	t.logger.Debug("transport connected")
	return nil
}

// Send writes buf in one attempt. Nothing is written unless the transport is
// Connected.
func (t *Transport) Send(buf []byte) error {
	t.mu.Lock()
	state, conn := t.state, t.conn
	t.mu.Unlock()

	switch state {
	case StateUnconnected:
		return ErrNotConnected
	case StateClosed:
		return ErrClosed
	}

	if t.writeTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return fmt.Errorf("transport: set deadline: %w: %w", domain.ErrIO, err)
		}
	}

	n, err := conn.Write(buf)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("transport: write %d bytes: %w: %w", len(buf), domain.ErrIO, err)
	}
	if n != len(buf) {
		return fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(buf))
	}
	return nil
}

// Close releases the connection. Closing a closed transport is a no-op.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateClosed {
		return nil
	}
	t.state = StateClosed
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	t.logger.Debug("transport closed")
	if err != nil {
		return fmt.Errorf("transport: close: %w: %w", domain.ErrIO, err)
	}
	return nil
}
