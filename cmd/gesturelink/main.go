package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/gesturelink/internal/adapters/detector"
	"github.com/bft-labs/gesturelink/internal/cliconfig"
	"github.com/bft-labs/gesturelink/pkg/gesturelink"
	"github.com/bft-labs/gesturelink/pkg/log"
	"github.com/bft-labs/gesturelink/pkg/message"
	"github.com/bft-labs/gesturelink/pkg/msgtransport"
	"github.com/bft-labs/gesturelink/plugins/configwatcher"
)

const helpDescription = `
Bridge a gesture detector to a game over a local Unix socket.

Events are read one per line and delivered in order as fixed 132-byte
records:

  120.5 88      coordinate hit (space or comma separated)
  start         lifecycle signals
  stop
  pause
  text <msg>    short text message (at most 127 bytes)

Configure via file ($HOME/.gesturelink/config.toml), GESTURELINK_* env
variables, or flags; flags win over env, env wins over the file.
`

var exampleUsage = strings.TrimSpace(`
  gesturelink listen --socket /tmp/game.sock
  detector | gesturelink send --socket /tmp/game.sock --wait --lifecycle
  gesturelink send --input script.txt --config ./gesturelink.toml --watch-config
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	// Replaced once the configuration is loaded.
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	root := &cobra.Command{
		Use:           "gesturelink",
		Short:         "Bridge a gesture detector to a game over a local Unix socket",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.gesturelink/config.toml), then apply flag overrides
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}
			cfgPath = cfgFile

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Env overrides the file but not explicitly set flags.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			l, err := cliconfig.NewLogger(os.Stderr, cfg.LogLevel)
			if err != nil {
				return err
			}
			logger = l
			logger.Debug().Interface("config", cfg).Str("file", cfgFile).Msg("configuration")
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.gesturelink/config.toml)")
	root.PersistentFlags().StringVar(&cfg.SocketPath, "socket", cfg.SocketPath, "Unix socket the game listens on")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	send := &cobra.Command{
		Use:   "send",
		Short: "Read events and deliver them to the game",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd.Context(), cfg, cfgPath, logger)
		},
	}
	send.Flags().IntVar(&cfg.PoolBlocks, "pool-blocks", cfg.PoolBlocks, "records that may be in flight before producers block")
	send.Flags().DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "timeout for connecting to the socket (0 = none)")
	send.Flags().DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "timeout for each record write (0 = none)")
	send.Flags().BoolVar(&cfg.Wait, "wait", cfg.Wait, "wait for the socket to appear before connecting")
	send.Flags().DurationVar(&cfg.WaitTimeout, "wait-timeout", cfg.WaitTimeout, "how long --wait waits (0 = forever)")
	send.Flags().BoolVar(&cfg.Lifecycle, "lifecycle", cfg.Lifecycle, "send start on connect and stop on shutdown")
	send.Flags().StringVar(&cfg.Input, "input", cfg.Input, "event script to read, - for stdin")
	send.Flags().BoolVar(&cfg.Strict, "strict", cfg.Strict, "stop at the first malformed line instead of skipping it")
	send.Flags().BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "reload the log level when the config file changes")

	listen := &cobra.Command{
		Use:   "listen",
		Short: "Listen on the socket and log every received message",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListen(cmd.Context(), cfg.SocketPath, logger)
		},
	}

	root.AddCommand(send, listen)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("gesturelink")
		stop()
		os.Exit(1)
	}
}

func runSend(ctx context.Context, cfg cliconfig.Config, cfgPath string, zl zerolog.Logger) error {
	logger := log.NewZerologAdapterWithLogger(zl)

	in, closeIn, err := openInput(cfg.Input)
	if err != nil {
		return err
	}
	defer closeIn()

	detOpts := []detector.Option{detector.WithLogger(logger)}
	if cfg.Strict {
		detOpts = append(detOpts, detector.WithStrict())
	}

	opts := []gesturelink.Option{
		gesturelink.WithLogger(logger),
		gesturelink.WithDetector(detector.NewLineDetector(in, detOpts...)),
	}
	if cfg.WatchConfig {
		opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{Path: cfgPath}))
	}

	gl, err := gesturelink.New(cfg.Library(), opts...)
	if err != nil {
		return fmt.Errorf("create gesturelink: %w", err)
	}
	if err := gl.Start(ctx); err != nil {
		return fmt.Errorf("start gesturelink: %w", err)
	}

	select {
	case <-ctx.Done():
		zl.Info().Msg("received signal, stopping...")
	case <-gl.Done():
	}

	if err := gl.Stop(); err != nil {
		return fmt.Errorf("stop gesturelink: %w", err)
	}
	zl.Info().
		Str("session", gl.Session()).
		Uint64("sent", gl.Sent()).
		Uint64("failed", gl.Failed()).
		Msg("done")
	return nil
}

// openInput returns stdin for "-" and the named file otherwise.
func openInput(name string) (io.Reader, func(), error) {
	if name == "" || name == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func runListen(ctx context.Context, socket string, zl zerolog.Logger) error {
	recv, err := msgtransport.Listen(socket, msgtransport.WithLogger(log.NewZerologAdapterWithLogger(zl)))
	if err != nil {
		return err
	}

	served := make(chan error, 1)
	go func() { served <- recv.Serve(ctx) }()

	for {
		m, ok := recv.Next()
		if !ok {
			break
		}
		logMessage(zl, m)
	}
	return <-served
}

func logMessage(zl zerolog.Logger, m *message.Message) {
	ev := zl.Info().Str("kind", m.Kind.String())
	switch m.Kind {
	case message.KindCoordinate:
		ev = ev.Float64("x", m.X).Float64("y", m.Y)
	case message.KindText:
		ev = ev.Str("text", m.Text())
	}
	ev.Msg("message")
}
