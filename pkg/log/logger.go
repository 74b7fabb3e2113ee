package log

import "time"

// Logger is the leveled, structured logger every gesturelink component
// writes through. The pipeline only ever logs at four levels; the level
// filter lives in the implementation.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key/value attached to a log line. Value is rendered by the
// backing logger, so it should be one of the types built by the helpers below.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field            { return Field{key, value} }
func Int(key string, value int) Field            { return Field{key, value} }
func Uint64(key string, value uint64) Field      { return Field{key, value} }
func Float64(key string, value float64) Field    { return Field{key, value} }
func Bool(key string, value bool) Field          { return Field{key, value} }
func Duration(key string, d time.Duration) Field { return Field{key, d} }
func Any(key string, value any) Field            { return Field{key, value} }

// Err is stored under "error" so send and socket failures line up in
// aggregated output.
func Err(err error) Field { return Field{"error", err} }

// With scopes logger to fields, e.g. a run's session id or a worker's name.
// Scoping twice accumulates. A nil logger discards.
func With(logger Logger, fields ...Field) Logger {
	switch l := OrNoop(logger).(type) {
	case *ZerologAdapter:
		if len(fields) == 0 {
			return l
		}
		return l.With(fields...)
	case *scoped:
		return &scoped{next: l.next, fields: concat(l.fields, fields)}
	case discard:
		return OrNoop(logger)
	default:
		if len(fields) == 0 {
			return l
		}
		return &scoped{next: l, fields: fields}
	}
}

type scoped struct {
	next   Logger
	fields []Field
}

func concat(a, b []Field) []Field {
	out := make([]Field, 0, len(a)+len(b))
	return append(append(out, a...), b...)
}

func (s *scoped) Debug(msg string, fields ...Field) { s.next.Debug(msg, concat(s.fields, fields)...) }
func (s *scoped) Info(msg string, fields ...Field)  { s.next.Info(msg, concat(s.fields, fields)...) }
func (s *scoped) Warn(msg string, fields ...Field)  { s.next.Warn(msg, concat(s.fields, fields)...) }
func (s *scoped) Error(msg string, fields ...Field) { s.next.Error(msg, concat(s.fields, fields)...) }
