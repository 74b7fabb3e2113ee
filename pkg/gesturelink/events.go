package gesturelink

import (
	"time"

	"github.com/bft-labs/gesturelink/internal/domain"
)

// Signal is a gameplay lifecycle signal.
type Signal = domain.Signal

const (
	SignalStart = domain.SignalStart
	SignalStop  = domain.SignalStop
	SignalPause = domain.SignalPause
)

// State is the lifecycle state of a Gesturelink instance.
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

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// SendSuccessEvent is emitted after a record reached the socket.
type SendSuccessEvent struct {
	// Kind is the message kind name, such as "coordinate" or "start".
	Kind     string
	Duration time.Duration
}

// SendErrorEvent is emitted when writing a record failed. Failed records are
// not retried.
type SendErrorEvent struct {
	Kind  string
	Error error
}

// EventHandler receives notifications from a Gesturelink instance. Send
// events are delivered on the delivery goroutine and state changes on the
// goroutine that caused them; implementations should return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnSendSuccess(event SendSuccessEvent)
	OnSendError(event SendErrorEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnSendSuccess(SendSuccessEvent) {}
func (BaseEventHandler) OnSendError(SendErrorEvent)     {}
