package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/gesturelink/internal/cliconfig"
	"github.com/bft-labs/gesturelink/internal/testutil"
	"github.com/bft-labs/gesturelink/pkg/gesturelink"
	"github.com/bft-labs/gesturelink/pkg/log"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func startPlugin(t *testing.T, cfg Config) *Plugin {
	t.Helper()
	plugin := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	if err := plugin.Initialize(ctx, gesturelink.PluginConfig{Logger: log.NewNoopLogger()}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		if err := plugin.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown failed: %v", err)
		}
	})
	return plugin
}

func TestPlugin_ReloadsLogLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, `log_level = "info"`)

	reloaded := make(chan cliconfig.FileConfig, 4)
	plugin := startPlugin(t, Config{
		Path:          path,
		DebounceDelay: 10 * time.Millisecond,
		OnReload:      func(fc cliconfig.FileConfig) { reloaded <- fc },
	})

	writeConfig(t, path, "log_level = \"debug\"\nsocket = \"/run/other.sock\"\n")

	fc := testutil.RequireReceive(t, reloaded, 2*time.Second, "config not reloaded")
	if fc.LogLevel != "debug" || fc.Socket != "/run/other.sock" {
		t.Errorf("reloaded config = %+v", fc)
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("GlobalLevel() = %v, want debug", zerolog.GlobalLevel())
	}
	if plugin.Reloads() == 0 {
		t.Error("Reloads() = 0 after a reload")
	}
}

func TestPlugin_DebouncesBurst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, `pool_blocks = 1`)

	reloaded := make(chan cliconfig.FileConfig, 16)
	startPlugin(t, Config{
		Path:          path,
		DebounceDelay: 100 * time.Millisecond,
		OnReload:      func(fc cliconfig.FileConfig) { reloaded <- fc },
	})

	for i := 2; i <= 5; i++ {
		writeConfig(t, path, "pool_blocks = "+string(rune('0'+i)))
	}

	fc := testutil.RequireReceive(t, reloaded, 2*time.Second, "config not reloaded")
	if fc.PoolBlocks != 5 {
		t.Errorf("PoolBlocks = %d, want the last written value 5", fc.PoolBlocks)
	}
	testutil.RequireBlocked(t, reloaded, 250*time.Millisecond, "burst caused more than one reload")
}

func TestPlugin_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, `log_level = "info"`)

	reloaded := make(chan cliconfig.FileConfig, 4)
	startPlugin(t, Config{
		Path:          path,
		DebounceDelay: 10 * time.Millisecond,
		OnReload:      func(fc cliconfig.FileConfig) { reloaded <- fc },
	})

	writeConfig(t, filepath.Join(dir, "other.toml"), `log_level = "debug"`)
	testutil.RequireBlocked(t, reloaded, 100*time.Millisecond, "reloaded on an unrelated file")
}

func TestPlugin_InvalidFileKeepsRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, `log_level = "info"`)

	reloaded := make(chan cliconfig.FileConfig, 4)
	plugin := startPlugin(t, Config{
		Path:          path,
		DebounceDelay: 10 * time.Millisecond,
		OnReload:      func(fc cliconfig.FileConfig) { reloaded <- fc },
	})

	writeConfig(t, path, "this is not toml")
	testutil.RequireBlocked(t, reloaded, 100*time.Millisecond, "reloaded an invalid file")
	if plugin.Reloads() != 0 {
		t.Errorf("Reloads() = %d, want 0", plugin.Reloads())
	}

	writeConfig(t, path, `input = "script.txt"`)
	fc := testutil.RequireReceive(t, reloaded, 2*time.Second, "valid file not reloaded")
	if fc.Input != "script.txt" {
		t.Errorf("Input = %q, want script.txt", fc.Input)
	}
}

func TestPlugin_DisabledWithoutPath(t *testing.T) {
	plugin := New(Config{})
	if err := plugin.Initialize(context.Background(), gesturelink.PluginConfig{}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := plugin.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestPlugin_MissingDirectory(t *testing.T) {
	plugin := New(Config{Path: filepath.Join(t.TempDir(), "missing", "config.toml")})
	if err := plugin.Initialize(context.Background(), gesturelink.PluginConfig{}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := plugin.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{})
	if p.debounceDelay != 100*time.Millisecond {
		t.Errorf("debounceDelay = %v, want 100ms", p.debounceDelay)
	}
	if p.Name() != "configwatcher" {
		t.Errorf("Name() = %q", p.Name())
	}
	if DefaultConfig().Path != cliconfig.DefaultConfigPath() {
		t.Errorf("DefaultConfig().Path = %q", DefaultConfig().Path)
	}
}
