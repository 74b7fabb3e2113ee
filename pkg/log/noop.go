package log

// discard is satisfied by loggers that drop everything, so With can skip
// wrapping them.
type discard interface{ discards() }

// NoopLogger drops every line. Components fall back to it when no logger is
// configured, so they never nil-check before logging.
type NoopLogger struct{}

func NewNoopLogger() *NoopLogger { return &NoopLogger{} }

func (NoopLogger) Debug(string, ...Field) {}
func (NoopLogger) Info(string, ...Field)  {}
func (NoopLogger) Warn(string, ...Field)  {}
func (NoopLogger) Error(string, ...Field) {}
func (NoopLogger) discards()              {}

// OrNoop returns logger, or a NoopLogger if it is nil.
func OrNoop(logger Logger) Logger {
	if logger == nil {
		return NoopLogger{}
	}
	return logger
}
