package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "GESTURELINK_"

// ApplyEnvConfig applies configuration from environment variables (GESTURELINK_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("socket", os.Getenv(EnvPrefix+"SOCKET"), &cfg.SocketPath)
	s.setString("input", os.Getenv(EnvPrefix+"INPUT"), &cfg.Input)
	s.setString("log-level", os.Getenv(EnvPrefix+"LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntFromString("pool-blocks", os.Getenv(EnvPrefix+"POOL_BLOCKS"), &cfg.PoolBlocks); err != nil {
		return err
	}

	if err := s.setDuration("connect-timeout", os.Getenv(EnvPrefix+"CONNECT_TIMEOUT"), &cfg.ConnectTimeout); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", os.Getenv(EnvPrefix+"WRITE_TIMEOUT"), &cfg.WriteTimeout); err != nil {
		return err
	}
	if err := s.setDuration("wait-timeout", os.Getenv(EnvPrefix+"WAIT_TIMEOUT"), &cfg.WaitTimeout); err != nil {
		return err
	}

	s.setBoolFromString("wait", os.Getenv(EnvPrefix+"WAIT"), &cfg.Wait)
	s.setBoolFromString("lifecycle", os.Getenv(EnvPrefix+"LIFECYCLE"), &cfg.Lifecycle)
	s.setBoolFromString("strict", os.Getenv(EnvPrefix+"STRICT"), &cfg.Strict)
	s.setBoolFromString("watch-config", os.Getenv(EnvPrefix+"WATCH_CONFIG"), &cfg.WatchConfig)

	return nil
}
