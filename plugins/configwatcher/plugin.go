// Package configwatcher provides config file monitoring for gesturelink.
// When enabled, it watches the gesturelink TOML config file and applies
// settings that can change while running. Currently that is the log level;
// other changes are reported through Config.OnReload.
package configwatcher

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/gesturelink/internal/cliconfig"
	"github.com/bft-labs/gesturelink/pkg/gesturelink"
	"github.com/bft-labs/gesturelink/pkg/log"
)

// Plugin implements config watching functionality.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	path          string
	debounceDelay time.Duration
	onReload      func(cliconfig.FileConfig)

	// Runtime state
	logger   gesturelink.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
	reloads  atomic.Uint64
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the config file to watch.
	// Default: ~/.gesturelink/config.toml
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// OnReload, if set, is called with every successfully parsed file after
	// the log level has been applied.
	OnReload func(cliconfig.FileConfig)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Path:          cliconfig.DefaultConfigPath(),
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		onReload:      cfg.OnReload,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching the config file. The watch is established
// before Initialize returns.
func (p *Plugin) Initialize(ctx context.Context, cfg gesturelink.PluginConfig) error {
	p.mu.Lock()
	p.logger = log.OrNoop(cfg.Logger)
	p.mu.Unlock()

	if p.path == "" {
		p.logger.Warn("config watcher disabled: no config file path")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Error("config watcher: failed to create watcher", log.Err(err))
		return nil
	}
	// Editors often replace the file instead of writing it, so watch the
	// directory.
	dir := filepath.Dir(p.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		p.logger.Error("config watcher: failed to watch directory",
			log.String("dir", dir),
			log.Err(err))
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher plugin initialized", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

// Reloads returns the number of times the config file was reloaded.
func (p *Plugin) Reloads() uint64 {
	return p.reloads.Load()
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	target := filepath.Clean(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher: watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

func (p *Plugin) reload() {
	fc, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		p.logger.Warn("config watcher: reload failed", log.Err(err))
		return
	}

	if fc.LogLevel != "" {
		if err := cliconfig.SetLogLevel(fc.LogLevel); err != nil {
			p.logger.Warn("config watcher: ignoring log level",
				log.String("log_level", fc.LogLevel),
				log.Err(err))
		}
	}

	p.reloads.Add(1)
	p.logger.Info("config reloaded",
		log.String("path", p.path),
		log.String("log_level", fc.LogLevel))

	if p.onReload != nil {
		p.onReload(fc)
	}
}

// Ensure Plugin implements gesturelink.Plugin.
var _ gesturelink.Plugin = (*Plugin)(nil)
