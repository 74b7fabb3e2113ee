package ports

import "github.com/bft-labs/gesturelink/pkg/log"

// Logger is the structured logger used by the application layer.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors, re-exported so app code only imports ports.
var (
	String   = log.String
	Int      = log.Int
	Uint64   = log.Uint64
	Float64  = log.Float64
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Any      = log.Any

	// With returns a logger that adds fields to every entry.
	With = log.With

	// OrNoop substitutes a discarding logger for nil.
	OrNoop = log.OrNoop
)
