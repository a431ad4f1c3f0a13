package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/agent-panel/internal/collect"
	"github.com/sweeney/agent-panel/internal/config"
	"github.com/sweeney/agent-panel/internal/gpio"
	"github.com/sweeney/agent-panel/internal/logic"
	"github.com/sweeney/agent-panel/internal/mqtt"
	"github.com/sweeney/agent-panel/internal/panel"
	"github.com/sweeney/agent-panel/internal/render"
	"github.com/sweeney/agent-panel/internal/settings"
)

func TestApplyOverrides(t *testing.T) {
	tests := []struct {
		name  string
		o     overrides
		check func(t *testing.T, c *config.Config)
	}{
		{"none", overrides{}, func(t *testing.T, c *config.Config) {
			if c.HTTP.Listen != ":8080" || !c.MQTT.Enabled || c.Panel.Driver != config.DriverST7789 {
				t.Errorf("defaults changed: %+v", c)
			}
		}},
		{"log level", overrides{LogLevel: "debug"}, func(t *testing.T, c *config.Config) {
			if c.Log.Level != "debug" {
				t.Errorf("Log.Level = %q", c.Log.Level)
			}
		}},
		{"http addr", overrides{HTTP: ":9090"}, func(t *testing.T, c *config.Config) {
			if c.HTTP.Listen != ":9090" {
				t.Errorf("HTTP.Listen = %q", c.HTTP.Listen)
			}
		}},
		{"http off", overrides{HTTP: "off"}, func(t *testing.T, c *config.Config) {
			if c.HTTP.Listen != "" {
				t.Errorf("HTTP.Listen = %q, want empty", c.HTTP.Listen)
			}
		}},
		{"broker", overrides{Broker: "tcp://10.0.0.5:1883"}, func(t *testing.T, c *config.Config) {
			if !c.MQTT.Enabled || c.MQTT.Broker != "tcp://10.0.0.5:1883" {
				t.Errorf("MQTT = %+v", c.MQTT)
			}
		}},
		{"broker off", overrides{Broker: "off"}, func(t *testing.T, c *config.Config) {
			if c.MQTT.Enabled {
				t.Error("MQTT still enabled")
			}
		}},
		{"panel", overrides{Panel: "png"}, func(t *testing.T, c *config.Config) {
			if c.Panel.Driver != config.DriverPNG {
				t.Errorf("Panel.Driver = %q", c.Panel.Driver)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.Default()
			applyOverrides(c, tt.o)
			tt.check(t, c)
		})
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFlagsWin(t *testing.T) {
	path := writeConfig(t, "panel:\n  driver: png\n  png_path: /tmp/frame.png\n")
	cfg, err := loadConfig(path, overrides{Panel: "none"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Panel.Driver != config.DriverNone {
		t.Errorf("Panel.Driver = %q, want none", cfg.Panel.Driver)
	}
}

func TestLoadConfigRejectsBadFlag(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	if _, err := loadConfig(path, overrides{Panel: "hdmi"}); err == nil {
		t.Fatal("expected error for unknown panel driver")
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"), overrides{}); err == nil {
		t.Fatal("expected error for missing --config file")
	}
}

func TestSignalReason(t *testing.T) {
	tests := []struct {
		sig  os.Signal
		want string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGHUP, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := signalReason(tt.sig); got != tt.want {
			t.Errorf("signalReason(%v) = %q, want %q", tt.sig, got, tt.want)
		}
	}
}

type fakeNetwork struct{}

func (fakeNetwork) IsConnected() bool              { return true }
func (fakeNetwork) CurrentAddress() (string, bool) { return "192.168.1.50", true }
func (fakeNetwork) Signal() (int8, bool)           { return -58, true }

func TestPrintState(t *testing.T) {
	reader := gpio.NewFakeReader([]gpio.Sample{{Boot: true, User: false}})
	ref := &collect.Refresher{Network: fakeNetwork{}}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	if err := printState(&buf, reader, ref, logic.ModeDetail, now); err != nil {
		t.Fatalf("printState: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"BOOT: PRESSED, USER: RELEASED\n",
		`"mode": "detail"`,
		`"label": "WiFi OK"`,
		`"ip": "192.168.1.50"`,
		`"signal_dbm": -58`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintStateWithoutButtons(t *testing.T) {
	var buf bytes.Buffer
	err := printState(&buf, nil, &collect.Refresher{}, logic.ModeDashboard, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("printState: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "BOOT: unavailable, USER: unavailable\n") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrintStateReadError(t *testing.T) {
	reader := gpio.NewFakeReader(nil)
	reader.ReadError = errors.New("line busy")
	var buf bytes.Buffer
	if err := printState(&buf, reader, &collect.Refresher{}, logic.ModeDashboard, time.Now()); err == nil {
		t.Fatal("expected read error")
	}
}

func TestRunSelftest(t *testing.T) {
	sink := panel.NewMemorySink()
	var out bytes.Buffer
	if err := runSelftest(context.Background(), sink, 0, 2, &out, zap.NewNop()); err != nil {
		t.Fatalf("runSelftest: %v", err)
	}

	patterns := render.Patterns()
	if got, want := sink.Presents(), 2*len(patterns); got != want {
		t.Errorf("presents = %d, want %d", got, want)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2*len(patterns) || lines[0] != patterns[0].Name {
		t.Errorf("output lines = %v", lines)
	}
	if levels := sink.BacklightLevels(); len(levels) != 1 || levels[0] != panel.MaxPercent {
		t.Errorf("backlight levels = %v, want [100]", levels)
	}
	last := sink.Last()
	if last == nil {
		t.Fatal("no frame presented")
	}
	want := render.NewFrame(render.Width, render.Height)
	patterns[len(patterns)-1].Draw(want)
	if !last.Equal(want) {
		t.Error("last presented frame is not the last pattern")
	}
}

func TestRunSelftestCancelled(t *testing.T) {
	sink := panel.NewMemorySink()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runSelftest(ctx, sink, time.Hour, 1, &bytes.Buffer{}, zap.NewNop())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if sink.Presents() != 1 {
		t.Errorf("presents = %d, want 1", sink.Presents())
	}
}

func TestRunSelftestPresentError(t *testing.T) {
	sink := panel.NewMemorySink()
	sink.FailNext(panel.ErrBusy)
	err := runSelftest(context.Background(), sink, 0, 1, &bytes.Buffer{}, zap.NewNop())
	if !errors.Is(err, panel.ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
}

func headlessConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Panel.Driver = config.DriverNone
	cfg.GPIO.Enabled = false
	cfg.MQTT.Enabled = false
	cfg.HTTP.Listen = "127.0.0.1:0"
	cfg.HTTP.MDNS = false
	cfg.Store.Path = filepath.Join(t.TempDir(), "settings.db")
	return cfg
}

func TestBuildHeadless(t *testing.T) {
	cfg := headlessConfig(t)
	cfg.Panel.Mode = logic.ModeBanner.String()

	d, err := build(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer d.close()

	if d.buttons != nil || d.mqtt != nil {
		t.Error("disabled subsystems were started")
	}
	if d.web == nil || d.hub == nil {
		t.Error("http surface not assembled")
	}
	rep := d.app.Report()
	if rep.Mode != logic.ModeBanner {
		t.Errorf("mode = %v, want banner", rep.Mode)
	}
	if rep.Backlight != 100 {
		t.Errorf("backlight = %d, want 100", rep.Backlight)
	}
}

func TestBuildRestoresPreferences(t *testing.T) {
	cfg := headlessConfig(t)

	store, err := settings.Open(cfg.Store.Path)
	if err != nil {
		t.Fatal(err)
	}
	saved := settings.Prefs{Mode: logic.ModeLargeAddress, Backlight: 40, UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := store.Save(saved); err != nil {
		t.Fatal(err)
	}
	store.Close()

	d, err := build(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer d.close()

	rep := d.app.Report()
	if rep.Mode != logic.ModeLargeAddress {
		t.Errorf("mode = %v, want large-address", rep.Mode)
	}
	if rep.Backlight != 40 {
		t.Errorf("backlight = %d, want 40", rep.Backlight)
	}
}

func TestBuildWithoutHTTP(t *testing.T) {
	cfg := headlessConfig(t)
	cfg.HTTP.Listen = ""
	cfg.Store.Path = ""

	d, err := build(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if d.web != nil || d.hub != nil || d.prefs != nil {
		t.Error("unexpected subsystems assembled")
	}
	if err := d.close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestMQTTHandlersSetStatusText(t *testing.T) {
	d, err := build(headlessConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer d.close()

	ready := make(chan struct{})
	close(ready)
	h := d.mqttHandlers(ready)
	if err := h.Route(mqtt.TopicStatusText, []byte(`{"text":"Tool call"}`)); err != nil {
		t.Fatalf("route: %v", err)
	}
	if got := d.app.Report().Snapshot.StateLabel; got != "Tool call" {
		t.Errorf("state label = %q, want Tool call", got)
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "agent-panel "+version) {
		t.Errorf("output = %q", buf.String())
	}
}
