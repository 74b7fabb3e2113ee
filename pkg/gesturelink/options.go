package gesturelink

import (
	"github.com/bft-labs/gesturelink/internal/ports"
	"github.com/bft-labs/gesturelink/pkg/log"
)

// Logger is the structured logging interface, see pkg/log.
type Logger = log.Logger

// LogField is a structured log field.
type LogField = log.Field

// Detector produces events for an instance, see WithDetector.
type Detector = ports.Detector

// EventSink is what a Detector feeds. *Gesturelink satisfies it.
type EventSink = ports.EventSink

// Option configures optional behavior of Gesturelink.
type Option func(*options)

type options struct {
	logger       Logger
	eventHandler EventHandler
	detector     Detector
	plugins      []Plugin
}

// WithLogger sets the logger. If not provided, nothing is logged.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for state and send events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithDetector runs d on its own goroutine between Start and Stop, feeding
// its events into the pipeline. Done is closed when d returns.
func WithDetector(d Detector) Option {
	return func(o *options) {
		o.detector = d
	}
}

// WithPlugin registers a plugin to be initialized when Start is called.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
