package gesturelink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/gesturelink/internal/app"
	"github.com/bft-labs/gesturelink/internal/domain"
	"github.com/bft-labs/gesturelink/internal/ports"
	"github.com/bft-labs/gesturelink/pkg/message"
	"github.com/bft-labs/gesturelink/pkg/msgtransport"
	"github.com/bft-labs/gesturelink/pkg/transport"
)

// Gesturelink delivers detector events to a gameplay process over a Unix
// socket. Use New to create an instance, then Start to connect.
type Gesturelink struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	emitter   *eventEmitterWrapper
	logger    ports.Logger
	plugins   []Plugin

	mu      sync.RWMutex
	bridge  *app.Bridge
	cancel  context.CancelFunc
	session string
	done    chan struct{}
}

var _ EventSink = (*Gesturelink)(nil)

// New creates an instance in StateStopped. Returns an error if cfg is
// invalid.
func New(cfg Config, opts ...Option) (*Gesturelink, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := ports.OrNoop(o.logger)
	emitter := &eventEmitterWrapper{handler: o.eventHandler}

	return &Gesturelink{
		config:    cfg,
		opts:      o,
		lifecycle: app.NewLifecycle(logger, emitter),
		emitter:   emitter,
		logger:    logger,
		plugins:   o.plugins,
		session:   uuid.NewString(),
	}, nil
}

// Start connects to the socket and starts the delivery pipeline. If a
// detector was configured it starts running in the background. Start returns
// once the pipeline accepts events; ctx bounds the run as a whole.
func (g *Gesturelink) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := g.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.lifecycle.SetCancel(cancel)
	g.session = uuid.NewString()
	logger := ports.With(g.logger, ports.String("session", g.session))

	initialized := 0
	fail := func(reason string, err error) error {
		cancel()
		g.shutdownPlugins(g.plugins[:initialized])
		_ = g.lifecycle.TransitionTo(app.StateCrashed, reason)
		return err
	}

	pluginCfg := PluginConfig{
		SocketPath: g.config.SocketPath,
		Session:    g.session,
		Logger:     logger,
	}
	for _, p := range g.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			return fail("plugin init failed: "+p.Name(), err)
		}
		initialized++
		logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	if g.config.WaitForSocket {
		logger.Info("waiting for socket", ports.String("socket", g.config.SocketPath))
		if err := withTimeout(runCtx, g.config.WaitTimeout, func(ctx context.Context) error {
			return transport.WaitForSocket(ctx, g.config.SocketPath)
		}); err != nil {
			return fail("socket never appeared", fmt.Errorf("waiting for %s: %w", g.config.SocketPath, err))
		}
	}

	var conn *msgtransport.Transport
	if err := withTimeout(runCtx, g.config.ConnectTimeout, func(ctx context.Context) error {
		var err error
		conn, err = msgtransport.Open(ctx, g.config.SocketPath,
			msgtransport.WithLogger(logger),
			msgtransport.WithWriteTimeout(g.config.WriteTimeout),
		)
		return err
	}); err != nil {
		return fail("connect failed", err)
	}

	bridge, err := app.NewBridge(app.BridgeConfig{PoolBlocks: g.config.PoolBlocks}, conn, logger, g.emitter)
	if err != nil {
		_ = conn.Close()
		return fail("bridge setup failed", err)
	}
	g.bridge = bridge

	if g.config.SendLifecycle {
		if err := bridge.Signal(domain.SignalStart); err != nil {
			_ = bridge.Close(context.Background())
			return fail("start signal failed", err)
		}
	}

	if err := g.lifecycle.TransitionTo(app.StateRunning, "connected"); err != nil {
		_ = bridge.Close(context.Background())
		return fail("transition failed", err)
	}

	done := make(chan struct{})
	g.done = done
	if d := g.opts.detector; d != nil {
		g.lifecycle.Go(func() {
			defer close(done)
			err := d.Run(runCtx, bridge)
			switch {
			case err == nil:
				logger.Info("detector finished")
			case errors.Is(err, context.Canceled), errors.Is(err, app.ErrBridgeClosed):
				logger.Debug("detector stopped", ports.Err(err))
			default:
				logger.Error("detector failed", ports.Err(err))
			}
		})
	}
	return nil
}

// Stop cancels the detector, sends the Stop record if configured, waits for
// every queued record to be written and disconnects. Waits up to
// app.ShutdownTimeout; returns ErrShutdownTimeout if the pipeline did not
// drain in time.
func (g *Gesturelink) Stop() error {
	g.mu.Lock()
	if !g.lifecycle.CanStop() {
		g.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := g.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		g.mu.Unlock()
		return err
	}
	if g.cancel != nil {
		g.cancel()
	}
	bridge := g.bridge
	g.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
	defer cancel()

	err := g.lifecycle.Wait(ctx)
	if err == nil && g.config.SendLifecycle {
		if sigErr := bridge.Signal(domain.SignalStop); sigErr != nil {
			g.logger.Warn("stop signal not sent", ports.Err(sigErr))
		}
	}
	if closeErr := bridge.Close(ctx); err == nil {
		err = closeErr
	}

	g.shutdownPlugins(g.plugins)

	if err != nil {
		_ = g.lifecycle.TransitionTo(app.StateCrashed, "shutdown failed")
	} else {
		_ = g.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// shutdownPlugins shuts plugins down in reverse order.
func (g *Gesturelink) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			g.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			g.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}

// Hit queues a coordinate hit. It blocks while the record pool is exhausted.
func (g *Gesturelink) Hit(x, y float64) error {
	b, err := g.running()
	if err != nil {
		return err
	}
	return b.Hit(x, y)
}

// Signal queues a lifecycle signal.
func (g *Gesturelink) Signal(s Signal) error {
	b, err := g.running()
	if err != nil {
		return err
	}
	return b.Signal(s)
}

// Text queues a text message of at most message.MaxTextLen bytes.
func (g *Gesturelink) Text(s string) error {
	b, err := g.running()
	if err != nil {
		return err
	}
	return b.Text(s)
}

func (g *Gesturelink) running() (*app.Bridge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.lifecycle.State() != app.StateRunning {
		return nil, domain.ErrNotRunning
	}
	return g.bridge, nil
}

// Done returns a channel closed when the configured detector returns. It is
// nil before the first Start and never closed when no detector is set.
func (g *Gesturelink) Done() <-chan struct{} {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.done
}

// Status returns the current lifecycle state.
func (g *Gesturelink) Status() State {
	return convertState(g.lifecycle.State())
}

// Session returns the id of the current or most recent run.
func (g *Gesturelink) Session() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.session
}

// Sent returns the number of records written during the current or most
// recent run.
func (g *Gesturelink) Sent() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.bridge == nil {
		return 0
	}
	return g.bridge.Sent()
}

// Failed returns the number of records that could not be written during the
// current or most recent run.
func (g *Gesturelink) Failed() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.bridge == nil {
		return 0
	}
	return g.bridge.Failed()
}

func withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnSendSuccess(kind message.Kind, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnSendSuccess(SendSuccessEvent{Kind: kind.String(), Duration: duration})
}

func (e *eventEmitterWrapper) OnSendError(kind message.Kind, err error) {
	if e.handler == nil {
		return
	}
	e.handler.OnSendError(SendErrorEvent{Kind: kind.String(), Error: err})
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
