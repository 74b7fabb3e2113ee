package ports

import (
	"context"

	"github.com/bft-labs/gesturelink/internal/domain"
)

// EventSink receives classified events. Calls may block while the delivery
// pipeline is saturated.
type EventSink interface {
	Hit(x, y float64) error
	Signal(s domain.Signal) error
	Text(s string) error
}

// Detector produces events until ctx is cancelled or its input ends.
// Run returns nil when the input is exhausted.
type Detector interface {
	Run(ctx context.Context, sink EventSink) error
}
