package gesturelink

import (
	"fmt"
	"time"

	"github.com/bft-labs/gesturelink/internal/app"
	"github.com/bft-labs/gesturelink/internal/domain"
	"github.com/bft-labs/gesturelink/pkg/transport"
)

// Default configuration values.
const (
	DefaultSocketPath     = "/tmp/gesturelink.sock"
	DefaultPoolBlocks     = app.DefaultPoolBlocks
	DefaultConnectTimeout = 5 * time.Second
	DefaultWaitTimeout    = 30 * time.Second
)

// Config holds the settings of one Gesturelink instance.
type Config struct {
	// SocketPath is the Unix socket the consumer listens on.
	SocketPath string

	// PoolBlocks bounds the records queued or being sent. Producers block
	// while all of them are in use.
	PoolBlocks int

	// ConnectTimeout bounds the dial in Start. Zero means no limit.
	ConnectTimeout time.Duration

	// WriteTimeout bounds each record write. Zero means no limit.
	WriteTimeout time.Duration

	// WaitForSocket makes Start wait for the socket file to appear before
	// connecting, for at most WaitTimeout.
	WaitForSocket bool
	WaitTimeout   time.Duration

	// SendLifecycle sends a Start record after connecting and a Stop record
	// before disconnecting.
	SendLifecycle bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		SocketPath:     DefaultSocketPath,
		PoolBlocks:     DefaultPoolBlocks,
		ConnectTimeout: DefaultConnectTimeout,
		WaitTimeout:    DefaultWaitTimeout,
	}
}

// SetDefaults fills zero fields with defaults.
func (c *Config) SetDefaults() {
	if c.SocketPath == "" {
		c.SocketPath = DefaultSocketPath
	}
	if c.PoolBlocks == 0 {
		c.PoolBlocks = DefaultPoolBlocks
	}
	if c.WaitForSocket && c.WaitTimeout == 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
}

// Validate checks the configuration. Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("%w: socket path is required", domain.ErrInvalidConfig)
	}
	if len(c.SocketPath) > transport.MaxAddressLen {
		return fmt.Errorf("%w: socket path longer than %d bytes", domain.ErrInvalidConfig, transport.MaxAddressLen)
	}
	if c.PoolBlocks < 0 {
		return fmt.Errorf("%w: pool blocks must be positive, got %d", domain.ErrInvalidConfig, c.PoolBlocks)
	}
	if c.ConnectTimeout < 0 || c.WriteTimeout < 0 || c.WaitTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}
