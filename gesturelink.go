// Package gesturelink delivers gesture detector events to a game over a
// local Unix socket.
//
// Example usage:
//
//	cfg := gesturelink.DefaultConfig()
//	cfg.SocketPath = "/tmp/game.sock"
//	cfg.SendLifecycle = true
//	if err := gesturelink.Run(ctx, cfg, myDetector); err != nil {
//	    log.Fatal(err)
//	}
//
// See pkg/gesturelink for the embeddable API with explicit Start and Stop.
package gesturelink

import (
	"context"
	"errors"
	"fmt"

	lib "github.com/bft-labs/gesturelink/pkg/gesturelink"
)

// Config holds the settings of a bridge.
type Config = lib.Config

// Option configures optional behavior, see pkg/gesturelink.
type Option = lib.Option

// Detector produces events until its input ends or ctx is cancelled.
type Detector = lib.Detector

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return lib.DefaultConfig()
}

// Run connects to cfg.SocketPath and feeds it from d. It blocks until d
// returns or ctx is cancelled, then drains every queued record and
// disconnects. A cancelled ctx is not an error.
func Run(ctx context.Context, cfg Config, d Detector, opts ...Option) error {
	if d == nil {
		return fmt.Errorf("gesturelink: nil detector: %w", lib.ErrInvalidArgument)
	}
	gl, err := lib.New(cfg, append(opts[:len(opts):len(opts)], lib.WithDetector(d))...)
	if err != nil {
		return err
	}
	if err := gl.Start(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	select {
	case <-ctx.Done():
	case <-gl.Done():
	}
	return gl.Stop()
}
