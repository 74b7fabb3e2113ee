// Package domain contains the core value types and error categories for
// gesturelink.
//
// This package is the innermost layer. It has no dependencies on sockets,
// logging or configuration.
//
// # Types
//
//   - [Point]: a classified detector coordinate
//   - [Signal]: a gameplay lifecycle signal (start, stop, pause)
//
// # Errors
//
// The error categories ([ErrInitialization], [ErrQueueSealed], [ErrIO], ...)
// are wrapped by the concrete errors of every other package.
package domain
