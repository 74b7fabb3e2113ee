package domain

import "fmt"

// Point is a coordinate classified by the detector, in the detector's own
// frame of reference.
type Point struct {
	X float64
	Y float64
}

// String returns the point as "(x, y)".
func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// Signal is a gameplay lifecycle signal emitted alongside coordinate hits.
type Signal int

const (
	SignalStart Signal = iota
	SignalStop
	SignalPause
)

// String returns a human-readable representation of the signal.
func (s Signal) String() string {
	switch s {
	case SignalStart:
		return "Start"
	case SignalStop:
		return "Stop"
	case SignalPause:
		return "Pause"
	default:
		return "Unknown"
	}
}
