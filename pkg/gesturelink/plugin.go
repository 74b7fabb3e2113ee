package gesturelink

import "context"

// Plugin extends a Gesturelink instance. Plugins are initialized in
// registration order when Start is called and shut down in reverse order by
// Stop.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// PluginConfig is what a plugin learns about the instance it is attached to.
type PluginConfig struct {
	SocketPath string
	Session    string
	Logger     Logger
}

// BasePlugin implements Plugin with no-ops. Embed it and override what you
// need.
type BasePlugin struct {
	PluginName string
}

func (p BasePlugin) Name() string { return p.PluginName }

func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }

func (BasePlugin) Shutdown(context.Context) error { return nil }
