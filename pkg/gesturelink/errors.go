package gesturelink

import (
	"github.com/bft-labs/gesturelink/internal/app"
	"github.com/bft-labs/gesturelink/internal/domain"
)

// Error categories. Every error returned by this module wraps one of them.
var (
	ErrInitialization  = domain.ErrInitialization
	ErrAllocation      = domain.ErrAllocation
	ErrQueueSealed     = domain.ErrQueueSealed
	ErrConnection      = domain.ErrConnection
	ErrIO              = domain.ErrIO
	ErrInvalidArgument = domain.ErrInvalidArgument
	ErrInvalidState    = domain.ErrInvalidState

	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig

	// ErrClosed is returned by Hit, Signal and Text once Stop has begun
	// draining the pipeline.
	ErrClosed = app.ErrBridgeClosed
)
