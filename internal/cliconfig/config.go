package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bft-labs/gesturelink/internal/domain"
	"github.com/bft-labs/gesturelink/pkg/gesturelink"
	"github.com/bft-labs/gesturelink/pkg/log"
	"github.com/bft-labs/gesturelink/pkg/transport"
)

// Config holds CLI configuration for gesturelink.
type Config struct {
	SocketPath string

	PoolBlocks     int
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	Wait           bool
	WaitTimeout    time.Duration
	Lifecycle      bool

	Input       string
	Strict      bool
	LogLevel    string
	WatchConfig bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		SocketPath:     gesturelink.DefaultSocketPath,
		PoolBlocks:     gesturelink.DefaultPoolBlocks,
		ConnectTimeout: gesturelink.DefaultConnectTimeout,
		WaitTimeout:    gesturelink.DefaultWaitTimeout,
		Input:          "-", // stdin
		LogLevel:       "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("%w: socket is required", domain.ErrInvalidConfig)
	}
	if len(c.SocketPath) > transport.MaxAddressLen {
		return fmt.Errorf("%w: socket path longer than %d bytes", domain.ErrInvalidConfig, transport.MaxAddressLen)
	}
	if c.PoolBlocks <= 0 {
		return fmt.Errorf("%w: pool-blocks must be positive", domain.ErrInvalidConfig)
	}
	if c.ConnectTimeout < 0 || c.WriteTimeout < 0 || c.WaitTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", domain.ErrInvalidConfig)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log-level: %w", domain.ErrInvalidConfig, err)
	}
	if c.Input == "" {
		c.Input = "-"
	}
	return nil
}

// Library converts the CLI configuration to the embedding API's.
func (c Config) Library() gesturelink.Config {
	return gesturelink.Config{
		SocketPath:     c.SocketPath,
		PoolBlocks:     c.PoolBlocks,
		ConnectTimeout: c.ConnectTimeout,
		WriteTimeout:   c.WriteTimeout,
		WaitForSocket:  c.Wait,
		WaitTimeout:    c.WaitTimeout,
		SendLifecycle:  c.Lifecycle,
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
