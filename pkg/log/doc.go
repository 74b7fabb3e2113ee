// Package log provides the logging abstraction used by gesturelink packages.
//
// Library packages (slab, worker, transport, msgtransport) accept a [Logger]
// through an option and default to [NoopLogger]. The command line tool wires
// in [ZerologAdapter].
//
// # Usage
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//	w := worker.New(worker.WithLogger(log.With(logger, log.String("component", "worker"))))
//
// # Custom Loggers
//
// Implement the Logger interface to integrate with your existing
// logging infrastructure:
//
//	type MyLogger struct { ... }
//
//	func (l *MyLogger) Debug(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Info(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Warn(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Error(msg string, fields ...log.Field) { ... }
package log
