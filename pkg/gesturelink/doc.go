// Package gesturelink provides an embeddable bridge from a gesture detector
// to a gameplay process listening on a Unix domain socket.
//
// Events (coordinate hits, lifecycle signals and short text messages) are
// encoded into fixed 132-byte records, queued, and written to the socket by a
// dedicated delivery goroutine, in the order they were produced. The number
// of records in flight is bounded; producers block while the consumer falls
// behind.
//
// # Basic Usage
//
//	cfg := gesturelink.DefaultConfig()
//	cfg.SocketPath = "/run/game/input.sock"
//
//	gl, err := gesturelink.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := gl.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	_ = gl.Hit(120, 88)
//	_ = gl.Stop()
//
// # Detectors
//
// A [Detector] can be attached with [WithDetector]. It runs on its own
// goroutine between Start and Stop and feeds the instance through
// [EventSink]; [Gesturelink.Done] is closed when it returns.
//
// # Event Handling
//
// Implement [EventHandler], or embed [BaseEventHandler] and override a
// subset, and pass it with [WithEventHandler]. Send events are called on the
// delivery goroutine and should return quickly.
//
// # Lifecycle States
//
// An instance is in one of [StateStopped], [StateStarting], [StateRunning],
// [StateStopping] or [StateCrashed]. A crashed instance may be started again.
//
// # Plugins
//
// Plugins registered with [WithPlugin] are initialized by Start in
// registration order and shut down by Stop in reverse order:
//
//	import "github.com/bft-labs/gesturelink/plugins/configwatcher"
//
//	gl, err := gesturelink.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{Path: cfgPath}),
//	)
package gesturelink
