package domain

import "errors"

// Error categories shared by every gesturelink package. Package-level errors
// wrap one of these, so callers can test either the precise error or its
// category with errors.Is.
var (
	// ErrInitialization is returned for bad construction parameters, such as
	// a zero block size or capacity.
	ErrInitialization = errors.New("gesturelink: initialization error")

	// ErrAllocation is returned when a backing store is exhausted and the
	// caller asked not to wait.
	ErrAllocation = errors.New("gesturelink: allocation error")

	// ErrQueueSealed is returned when an item is added to a sealed queue.
	ErrQueueSealed = errors.New("gesturelink: queue sealed")

	// ErrConnection is returned when the socket cannot be opened or connected.
	ErrConnection = errors.New("gesturelink: connection error")

	// ErrIO is returned when a send fails or writes fewer bytes than asked.
	ErrIO = errors.New("gesturelink: i/o error")

	// ErrInvalidArgument is returned for nil or foreign handles and other
	// malformed arguments.
	ErrInvalidArgument = errors.New("gesturelink: invalid argument")

	// ErrInvalidState is returned when an operation is attempted in a state
	// that does not allow it.
	ErrInvalidState = errors.New("gesturelink: invalid state")
)

// Lifecycle errors returned by the embeddable bridge.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("gesturelink: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("gesturelink: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("gesturelink: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("gesturelink: invalid configuration")
)
