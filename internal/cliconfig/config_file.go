package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Socket         string `toml:"socket"`
	PoolBlocks     int    `toml:"pool_blocks"`
	ConnectTimeout string `toml:"connect_timeout"`
	WriteTimeout   string `toml:"write_timeout"`
	Wait           *bool  `toml:"wait"`
	WaitTimeout    string `toml:"wait_timeout"`
	Lifecycle      *bool  `toml:"lifecycle"`
	Input          string `toml:"input"`
	Strict         *bool  `toml:"strict"`
	LogLevel       string `toml:"log_level"`
	WatchConfig    *bool  `toml:"watch_config"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.gesturelink/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".gesturelink", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("socket", fc.Socket, &cfg.SocketPath)
	s.setString("input", fc.Input, &cfg.Input)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setInt("pool-blocks", fc.PoolBlocks, &cfg.PoolBlocks)

	if err := s.setDuration("connect-timeout", fc.ConnectTimeout, &cfg.ConnectTimeout); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", fc.WriteTimeout, &cfg.WriteTimeout); err != nil {
		return err
	}
	if err := s.setDuration("wait-timeout", fc.WaitTimeout, &cfg.WaitTimeout); err != nil {
		return err
	}

	s.setBool("wait", fc.Wait, &cfg.Wait)
	s.setBool("lifecycle", fc.Lifecycle, &cfg.Lifecycle)
	s.setBool("strict", fc.Strict, &cfg.Strict)
	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
