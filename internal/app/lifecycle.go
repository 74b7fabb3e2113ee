package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/gesturelink/internal/domain"
	"github.com/bft-labs/gesturelink/internal/ports"
)

// ShutdownTimeout bounds how long Stop waits for the pipeline to drain.
const ShutdownTimeout = 30 * time.Second

// State is the lifecycle state of a running bridge.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// transitions lists the states reachable from each state.
var transitions = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping, StateCrashed},
	StateRunning:  {StateStopping, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// EventEmitter is notified after every state change.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle guards state transitions and tracks the goroutines started for
// one run.
type Lifecycle struct {
	mu      sync.RWMutex
	state   State
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  ports.Logger
	emitter EventEmitter
}

// NewLifecycle returns a lifecycle in StateStopped. emitter may be nil.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		state:   StateStopped,
		logger:  ports.OrNoop(logger),
		emitter: emitter,
	}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves to next if the transition table allows it. Leaving a
// stopped or crashed state illegally reports ErrNotRunning; any other
// illegal move reports ErrAlreadyRunning.
func (l *Lifecycle) TransitionTo(next State, reason string) error {
	l.mu.Lock()
	prev := l.state
	if !canTransition(prev, next) {
		l.mu.Unlock()
		sentinel := domain.ErrAlreadyRunning
		if prev == StateStopped || prev == StateCrashed {
			sentinel = domain.ErrNotRunning
		}
		return fmt.Errorf("%w: %s -> %s", sentinel, prev, next)
	}
	l.state = next
	l.mu.Unlock()

	if l.emitter != nil {
		l.emitter.OnStateChange(prev, next, reason)
	}
	l.logger.Info("state transition",
		ports.String("from", prev.String()),
		ports.String("to", next.String()),
		ports.String("reason", reason),
	)
	return nil
}

// CanStart reports whether a run may begin.
func (l *Lifecycle) CanStart() bool {
	return canTransition(l.State(), StateStarting)
}

// CanStop reports whether a run is in progress.
func (l *Lifecycle) CanStop() bool {
	return canTransition(l.State(), StateStopping)
}

// SetCancel stores the function that cancels the current run.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel cancels the current run, if any.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Go runs fn on a tracked goroutine; Wait and WaitWithTimeout wait for it.
func (l *Lifecycle) Go(fn func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn()
	}()
}

// Wait blocks until every goroutine started with Go has returned, or ctx
// ends. It returns ErrShutdownTimeout when ctx ends first.
func (l *Lifecycle) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		l.logger.Warn("shutdown timeout, abandoning running goroutines", ports.Err(ctx.Err()))
		return fmt.Errorf("%w: %w", domain.ErrShutdownTimeout, ctx.Err())
	}
}

// WaitWithTimeout is Wait bounded by timeout.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return l.Wait(ctx)
}
