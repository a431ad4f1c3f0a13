package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/agent-panel/internal/logic"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
timing:
  refresh: 2s
  button_poll: 10ms
panel:
  driver: png
  png_path: /tmp/frame.png
  mode: banner
backlight:
  percent: 60
mqtt:
  broker: tcp://192.168.1.200:1883
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
	if cfg.Timing.Refresh != 2*time.Second {
		t.Errorf("timing.refresh = %v", cfg.Timing.Refresh)
	}
	if cfg.Panel.Driver != DriverPNG || cfg.Panel.PNGPath != "/tmp/frame.png" {
		t.Errorf("panel = %+v", cfg.Panel)
	}
	if cfg.InitialMode() != logic.ModeBanner {
		t.Errorf("mode = %v", cfg.InitialMode())
	}
	if cfg.Backlight.Percent != 60 {
		t.Errorf("backlight.percent = %d", cfg.Backlight.Percent)
	}
	if cfg.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("mqtt.broker = %q", cfg.MQTT.Broker)
	}

	// Untouched sections keep their defaults
	if cfg.Timing.Render != 100*time.Millisecond {
		t.Errorf("timing.render = %v, want default", cfg.Timing.Render)
	}
	if cfg.HTTP.Listen != ":8080" {
		t.Errorf("http.listen = %q, want default", cfg.HTTP.Listen)
	}
	if cfg.Panel.ST7789.RowOffset != 35 {
		t.Errorf("st7789.row_offset = %d, want default", cfg.Panel.ST7789.RowOffset)
	}
}

func TestLoadEmptyPathWithoutDefaultFile(t *testing.T) {
	if _, err := os.Stat(DefaultPath); err == nil {
		t.Skip("default config present on this host")
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Panel.Driver != DriverST7789 {
		t.Errorf("driver = %q", cfg.Panel.Driver)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "log: [unterminated")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad driver", func(c *Config) { c.Panel.Driver = "lcd" }, "panel.driver"},
		{"bad mode", func(c *Config) { c.Panel.Mode = "clock" }, "panel.mode"},
		{"png without path", func(c *Config) { c.Panel.Driver = DriverPNG; c.Panel.PNGPath = "" }, "png_path"},
		{"backlight range", func(c *Config) { c.Backlight.Percent = 101 }, "backlight.percent"},
		{"dim range", func(c *Config) { c.Backlight.DimPercent = -1 }, "backlight.dim_percent"},
		{"zero refresh", func(c *Config) { c.Timing.Refresh = 0 }, "must be positive"},
		{"long press too short", func(c *Config) { c.Timing.LongPress = 5 * time.Millisecond }, "long_press"},
		{"same pins", func(c *Config) { c.GPIO.PinUser = c.GPIO.PinBoot }, "must differ"},
		{"mqtt without broker", func(c *Config) { c.MQTT.Broker = "" }, "mqtt.broker"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestValidateAllowsDisabledSubsystems(t *testing.T) {
	c := Default()
	c.MQTT.Enabled = false
	c.MQTT.Broker = ""
	c.GPIO.Enabled = false
	c.GPIO.PinUser = c.GPIO.PinBoot
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, "panel:\n  driver: crt\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "panel.driver") {
		t.Errorf("err = %v", err)
	}
}
