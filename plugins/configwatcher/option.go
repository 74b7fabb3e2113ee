package configwatcher

import "github.com/bft-labs/gesturelink/pkg/gesturelink"

// WithConfigWatcher returns a gesturelink Option that enables config file
// watching.
//
// Usage:
//
//	gl, err := gesturelink.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:          "/etc/gesturelink/config.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) gesturelink.Option {
	plugin := New(cfg)
	return gesturelink.WithPlugin(plugin)
}

// WithDefaultConfigWatcher returns a gesturelink Option that watches
// ~/.gesturelink/config.toml with a 100ms debounce.
//
// Usage:
//
//	gl, err := gesturelink.New(cfg, configwatcher.WithDefaultConfigWatcher())
func WithDefaultConfigWatcher() gesturelink.Option {
	return WithConfigWatcher(DefaultConfig())
}
