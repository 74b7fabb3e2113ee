package gesturelink_test

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/gesturelink/internal/adapters/detector"
	"github.com/bft-labs/gesturelink/internal/testutil"
	"github.com/bft-labs/gesturelink/pkg/gesturelink"
	"github.com/bft-labs/gesturelink/pkg/message"
	"github.com/bft-labs/gesturelink/pkg/msgtransport"
)

// trackingPlugin records initialization and shutdown order.
type trackingPlugin struct {
	gesturelink.BasePlugin
	mu        *sync.Mutex
	calls     *[]string
	initError error
	cfg       gesturelink.PluginConfig
}

func (p *trackingPlugin) Initialize(_ context.Context, cfg gesturelink.PluginConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initError != nil {
		return p.initError
	}
	p.cfg = cfg
	*p.calls = append(*p.calls, "init:"+p.Name())
	return nil
}

func (p *trackingPlugin) Shutdown(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.calls = append(*p.calls, "shutdown:"+p.Name())
	return nil
}

// eventTracker records every event.
type eventTracker struct {
	mu     sync.Mutex
	states []gesturelink.State
	sent   []string
	failed []gesturelink.SendErrorEvent
}

func (e *eventTracker) OnStateChange(event gesturelink.StateChangeEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states = append(e.states, event.Current)
}

func (e *eventTracker) OnSendSuccess(event gesturelink.SendSuccessEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, event.Kind)
}

func (e *eventTracker) OnSendError(event gesturelink.SendErrorEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failed = append(e.failed, event)
}

func startReceiver(t *testing.T) *msgtransport.Receiver {
	t.Helper()
	r, err := msgtransport.Listen(filepath.Join(testutil.SocketDir(t), "game.sock"))
	if err != nil {
		t.Fatalf("Listen error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan struct{})
	go func() {
		defer close(served)
		_ = r.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		testutil.RequireClosed(t, served, 2*time.Second, "Serve did not return")
	})
	return r
}

// collect reads n messages from r.
func collect(t *testing.T, r *msgtransport.Receiver, n int) []string {
	t.Helper()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		m, err := r.NextContext(ctx)
		cancel()
		if err != nil {
			t.Fatalf("message %d: NextContext error = %v", i, err)
		}
		out = append(out, m.String())
	}
	return out
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*gesturelink.Config)
		wantErr bool
	}{
		{"defaults", func(*gesturelink.Config) {}, false},
		{"empty socket", func(c *gesturelink.Config) { c.SocketPath = "" }, true},
		{"long socket", func(c *gesturelink.Config) { c.SocketPath = "/" + strings.Repeat("s", 200) }, true},
		{"negative pool", func(c *gesturelink.Config) { c.PoolBlocks = -1 }, true},
		{"negative timeout", func(c *gesturelink.Config) { c.ConnectTimeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := gesturelink.DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, gesturelink.ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNew_SetsDefaults(t *testing.T) {
	gl, err := gesturelink.New(gesturelink.Config{})
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	if gl.Status() != gesturelink.StateStopped {
		t.Errorf("Status() = %v, want Stopped", gl.Status())
	}
	if gl.Session() == "" {
		t.Error("Session() is empty")
	}
	if err := gl.Hit(1, 2); !errors.Is(err, gesturelink.ErrNotRunning) {
		t.Errorf("Hit before Start error = %v, want ErrNotRunning", err)
	}
	if err := gl.Stop(); !errors.Is(err, gesturelink.ErrNotRunning) {
		t.Errorf("Stop before Start error = %v, want ErrNotRunning", err)
	}
}

func TestGesturelink_EndToEnd(t *testing.T) {
	r := startReceiver(t)
	events := &eventTracker{}

	cfg := gesturelink.DefaultConfig()
	cfg.SocketPath = r.Path()
	cfg.PoolBlocks = 2
	cfg.SendLifecycle = true
	gl, err := gesturelink.New(cfg, gesturelink.WithEventHandler(events))
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	if err := gl.Start(context.Background()); err != nil {
		t.Fatalf("Start error = %v", err)
	}
	if err := gl.Start(context.Background()); !errors.Is(err, gesturelink.ErrAlreadyRunning) {
		t.Errorf("second Start error = %v, want ErrAlreadyRunning", err)
	}

	for i := 0; i < 5; i++ {
		if err := gl.Hit(float64(i), 0.5); err != nil {
			t.Fatalf("Hit error = %v", err)
		}
	}
	if err := gl.Signal(gesturelink.SignalPause); err != nil {
		t.Fatalf("Signal error = %v", err)
	}
	if err := gl.Text("level 2"); err != nil {
		t.Fatalf("Text error = %v", err)
	}
	if err := gl.Text(strings.Repeat("x", message.MaxTextLen+1)); !errors.Is(err, gesturelink.ErrInvalidArgument) {
		t.Errorf("long Text error = %v, want ErrInvalidArgument", err)
	}

	if err := gl.Stop(); err != nil {
		t.Fatalf("Stop error = %v", err)
	}
	if gl.Status() != gesturelink.StateStopped {
		t.Errorf("Status() = %v after Stop, want Stopped", gl.Status())
	}
	if err := gl.Hit(9, 9); !errors.Is(err, gesturelink.ErrNotRunning) {
		t.Errorf("Hit after Stop error = %v, want ErrNotRunning", err)
	}

	got := collect(t, r, 9)
	want := []string{
		"start",
		"coordinate(0, 0.5)", "coordinate(1, 0.5)", "coordinate(2, 0.5)",
		"coordinate(3, 0.5)", "coordinate(4, 0.5)",
		"pause", `text("level 2")`, "stop",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("received %v, want %v", got, want)
	}
	if gl.Sent() != 9 || gl.Failed() != 0 {
		t.Errorf("Sent/Failed = %d/%d, want 9/0", gl.Sent(), gl.Failed())
	}

	events.mu.Lock()
	defer events.mu.Unlock()
	wantStates := []gesturelink.State{
		gesturelink.StateStarting, gesturelink.StateRunning,
		gesturelink.StateStopping, gesturelink.StateStopped,
	}
	if len(events.states) != len(wantStates) {
		t.Fatalf("states = %v, want %v", events.states, wantStates)
	}
	for i := range wantStates {
		if events.states[i] != wantStates[i] {
			t.Errorf("state %d = %v, want %v", i, events.states[i], wantStates[i])
		}
	}
	if len(events.sent) != 9 || events.sent[0] != "start" {
		t.Errorf("send events = %v, want 9 starting with start", events.sent)
	}
}

func TestGesturelink_Detector(t *testing.T) {
	r := startReceiver(t)

	cfg := gesturelink.DefaultConfig()
	cfg.SocketPath = r.Path()
	input := "start\n10 20\n# comment\n30,40\nstop\n"
	gl, err := gesturelink.New(cfg,
		gesturelink.WithDetector(detector.NewLineDetector(strings.NewReader(input))),
	)
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	if err := gl.Start(context.Background()); err != nil {
		t.Fatalf("Start error = %v", err)
	}
	testutil.RequireClosed(t, gl.Done(), 2*time.Second, "detector did not finish")
	if err := gl.Stop(); err != nil {
		t.Fatalf("Stop error = %v", err)
	}

	got := collect(t, r, 4)
	want := []string{"start", "coordinate(10, 20)", "coordinate(30, 40)", "stop"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("received %v, want %v", got, want)
	}
}

func TestGesturelink_PluginOrder(t *testing.T) {
	r := startReceiver(t)

	var mu sync.Mutex
	var calls []string
	a := &trackingPlugin{BasePlugin: gesturelink.BasePlugin{PluginName: "a"}, mu: &mu, calls: &calls}
	b := &trackingPlugin{BasePlugin: gesturelink.BasePlugin{PluginName: "b"}, mu: &mu, calls: &calls}

	cfg := gesturelink.DefaultConfig()
	cfg.SocketPath = r.Path()
	gl, err := gesturelink.New(cfg, gesturelink.WithPlugin(a), gesturelink.WithPlugin(b))
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	if err := gl.Start(context.Background()); err != nil {
		t.Fatalf("Start error = %v", err)
	}
	if err := gl.Stop(); err != nil {
		t.Fatalf("Stop error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := "init:a|init:b|shutdown:b|shutdown:a"
	if got := strings.Join(calls, "|"); got != want {
		t.Errorf("plugin calls = %s, want %s", got, want)
	}
	if a.cfg.SocketPath != r.Path() || a.cfg.Session != gl.Session() || a.cfg.Logger == nil {
		t.Errorf("plugin config = %+v, want socket, session and logger", a.cfg)
	}
}

func TestGesturelink_PluginInitFailure(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	initErr := errors.New("boom")
	a := &trackingPlugin{BasePlugin: gesturelink.BasePlugin{PluginName: "a"}, mu: &mu, calls: &calls}
	b := &trackingPlugin{BasePlugin: gesturelink.BasePlugin{PluginName: "b"}, mu: &mu, calls: &calls, initError: initErr}

	gl, _ := gesturelink.New(gesturelink.DefaultConfig(), gesturelink.WithPlugin(a), gesturelink.WithPlugin(b))
	if err := gl.Start(context.Background()); !errors.Is(err, initErr) {
		t.Fatalf("Start error = %v, want boom", err)
	}
	if gl.Status() != gesturelink.StateCrashed {
		t.Errorf("Status() = %v, want Crashed", gl.Status())
	}

	mu.Lock()
	defer mu.Unlock()
	if got := strings.Join(calls, "|"); got != "init:a|shutdown:a" {
		t.Errorf("plugin calls = %s, want init:a|shutdown:a", got)
	}
}

func TestGesturelink_ConnectFailure(t *testing.T) {
	cfg := gesturelink.DefaultConfig()
	cfg.SocketPath = filepath.Join(testutil.SocketDir(t), "nobody.sock")
	gl, _ := gesturelink.New(cfg)

	if err := gl.Start(context.Background()); !errors.Is(err, gesturelink.ErrConnection) {
		t.Fatalf("Start error = %v, want ErrConnection", err)
	}
	if gl.Status() != gesturelink.StateCrashed {
		t.Errorf("Status() = %v, want Crashed", gl.Status())
	}
}

func TestGesturelink_WaitForSocket(t *testing.T) {
	path := filepath.Join(testutil.SocketDir(t), "late.sock")

	cfg := gesturelink.DefaultConfig()
	cfg.SocketPath = path
	cfg.WaitForSocket = true
	cfg.WaitTimeout = 2 * time.Second
	gl, _ := gesturelink.New(cfg)

	started := make(chan error, 1)
	go func() { started <- gl.Start(context.Background()) }()
	testutil.RequireBlocked(t, started, 50*time.Millisecond, "Start returned before the socket existed")

	r, err := msgtransport.Listen(path)
	if err != nil {
		t.Fatalf("Listen error = %v", err)
	}
	go func() { _ = r.Serve(context.Background()) }()
	defer r.Close()

	if err := testutil.RequireReceive(t, started, 2*time.Second, "Start did not notice the socket"); err != nil {
		t.Fatalf("Start error = %v", err)
	}
	if err := gl.Stop(); err != nil {
		t.Errorf("Stop error = %v", err)
	}
}

func TestGesturelink_WaitForSocketTimeout(t *testing.T) {
	cfg := gesturelink.DefaultConfig()
	cfg.SocketPath = filepath.Join(testutil.SocketDir(t), "never.sock")
	cfg.WaitForSocket = true
	cfg.WaitTimeout = 30 * time.Millisecond
	gl, _ := gesturelink.New(cfg)

	if err := gl.Start(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Start error = %v, want DeadlineExceeded", err)
	}
	if gl.Status() != gesturelink.StateCrashed {
		t.Errorf("Status() = %v, want Crashed", gl.Status())
	}
}

func TestGesturelink_RestartAfterStop(t *testing.T) {
	r := startReceiver(t)
	cfg := gesturelink.DefaultConfig()
	cfg.SocketPath = r.Path()
	gl, _ := gesturelink.New(cfg)

	var sessions []string
	for i := 0; i < 2; i++ {
		if err := gl.Start(context.Background()); err != nil {
			t.Fatalf("run %d: Start error = %v", i, err)
		}
		sessions = append(sessions, gl.Session())
		if err := gl.Hit(float64(i), 0); err != nil {
			t.Fatalf("run %d: Hit error = %v", i, err)
		}
		if err := gl.Stop(); err != nil {
			t.Fatalf("run %d: Stop error = %v", i, err)
		}
	}
	if sessions[0] == sessions[1] {
		t.Errorf("sessions = %v, want a new id per run", sessions)
	}
	// Each run uses its own connection, so only per-run order is defined.
	got := collect(t, r, 2)
	sort.Strings(got)
	if got[0] != "coordinate(0, 0)" || got[1] != "coordinate(1, 0)" {
		t.Errorf("received %v, want one hit per run", got)
	}
}
