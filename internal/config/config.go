// Package config loads the agent-panel YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/agent-panel/internal/gpio"
	"github.com/sweeney/agent-panel/internal/logic"
)

// DefaultPath is read when --config is not given and the file exists.
const DefaultPath = "/etc/agent-panel/config.yaml"

// Panel drivers.
const (
	DriverST7789 = "st7789"
	DriverPNG    = "png"
	DriverWindow = "window"
	DriverNone   = "none"
)

// Config is the full application configuration.
type Config struct {
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // "console" or "json"
	} `yaml:"log"`
	GPIO struct {
		Enabled       bool   `yaml:"enabled"`
		Chip          string `yaml:"chip"`
		PinBoot       int    `yaml:"pin_boot"`
		PinUser       int    `yaml:"pin_user"`
		ActiveLow     bool   `yaml:"active_low"`
		StableSamples int    `yaml:"stable_samples"`
	} `yaml:"gpio"`
	Timing struct {
		ButtonPoll time.Duration `yaml:"button_poll"`
		LongPress  time.Duration `yaml:"long_press"`
		Refresh    time.Duration `yaml:"refresh"`
		Render     time.Duration `yaml:"render"`
		Heartbeat  time.Duration `yaml:"heartbeat"`
		BotStale   time.Duration `yaml:"bot_stale"`
	} `yaml:"timing"`
	Panel struct {
		Driver      string `yaml:"driver"`
		Title       string `yaml:"title"`
		Mode        string `yaml:"mode"`
		PNGPath     string `yaml:"png_path"`
		WindowScale int    `yaml:"window_scale"`
		ST7789      struct {
			SPIPort        string `yaml:"spi_port"`
			SPISpeedHz     int64  `yaml:"spi_speed_hz"`
			DCPin          string `yaml:"dc_pin"`
			ResetPin       string `yaml:"reset_pin"`
			BacklightPin   string `yaml:"backlight_pin"`
			BacklightPWMHz int64  `yaml:"backlight_pwm_hz"`
			BacklightSysfs string `yaml:"backlight_sysfs"`
			ColumnOffset   int    `yaml:"column_offset"`
			RowOffset      int    `yaml:"row_offset"`
			Invert         bool   `yaml:"invert"`
		} `yaml:"st7789"`
	} `yaml:"panel"`
	Backlight struct {
		Percent    int `yaml:"percent"`
		DimPercent int `yaml:"dim_percent"`
	} `yaml:"backlight"`
	MQTT struct {
		Enabled    bool   `yaml:"enabled"`
		Broker     string `yaml:"broker"`
		ClientID   string `yaml:"client_id"`
		Username   string `yaml:"username"`
		Password   string `yaml:"password"`
		BufferSize int    `yaml:"buffer_size"`
	} `yaml:"mqtt"`
	HTTP struct {
		Listen   string `yaml:"listen"`
		MDNS     bool   `yaml:"mdns"`
		Instance string `yaml:"instance"`
	} `yaml:"http"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		APIBase  string `yaml:"api_base"`
	} `yaml:"telegram"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	System struct {
		WirelessPath string `yaml:"wireless_path"`
		MeminfoPath  string `yaml:"meminfo_path"`
	} `yaml:"system"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var c Config
	c.Log.Level = "info"
	c.Log.Format = "console"

	c.GPIO.Enabled = true
	c.GPIO.Chip = gpio.DefaultChip
	c.GPIO.PinBoot = gpio.DefaultPinBoot
	c.GPIO.PinUser = gpio.DefaultPinUser
	c.GPIO.ActiveLow = true
	c.GPIO.StableSamples = 1

	c.Timing.ButtonPoll = 10 * time.Millisecond
	c.Timing.LongPress = logic.LongPressThreshold
	c.Timing.Refresh = 5 * time.Second
	c.Timing.Render = 100 * time.Millisecond
	c.Timing.Heartbeat = 15 * time.Minute
	c.Timing.BotStale = 2 * time.Minute

	c.Panel.Driver = DriverST7789
	c.Panel.Title = "AGENT PANEL"
	c.Panel.Mode = logic.ModeDashboard.String()
	c.Panel.PNGPath = "/run/agent-panel/frame.png"
	c.Panel.WindowScale = 2
	c.Panel.ST7789.SPIPort = "SPI0.0"
	c.Panel.ST7789.SPISpeedHz = 40_000_000
	c.Panel.ST7789.DCPin = "GPIO25"
	c.Panel.ST7789.ResetPin = "GPIO24"
	c.Panel.ST7789.BacklightPin = "GPIO18"
	c.Panel.ST7789.BacklightPWMHz = 1000
	c.Panel.ST7789.RowOffset = 35
	c.Panel.ST7789.Invert = true

	c.Backlight.Percent = 100
	c.Backlight.DimPercent = 30

	c.MQTT.Enabled = true
	c.MQTT.Broker = "tcp://127.0.0.1:1883"
	c.MQTT.ClientID = "agent-panel"
	c.MQTT.BufferSize = 64

	c.HTTP.Listen = ":8080"
	c.HTTP.MDNS = true
	c.HTTP.Instance = "agent-panel"

	c.Telegram.APIBase = "https://api.telegram.org"

	c.Store.Path = "/var/lib/agent-panel/settings.db"

	c.System.WirelessPath = "/proc/net/wireless"
	c.System.MeminfoPath = "/proc/meminfo"
	return &c
}

// Load reads path over the defaults. An empty path returns the defaults, and
// so does DefaultPath when it does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	switch c.Panel.Driver {
	case DriverST7789, DriverPNG, DriverWindow, DriverNone:
	default:
		return fmt.Errorf("panel.driver must be one of st7789, png, window, none; got %q", c.Panel.Driver)
	}
	if _, ok := logic.ParseMode(c.Panel.Mode); !ok {
		return fmt.Errorf("panel.mode %q is not a display mode", c.Panel.Mode)
	}
	if c.Panel.Driver == DriverPNG && c.Panel.PNGPath == "" {
		return fmt.Errorf("panel.png_path is required for the png driver")
	}
	if c.Backlight.Percent < 0 || c.Backlight.Percent > 100 {
		return fmt.Errorf("backlight.percent must be 0-100, got %d", c.Backlight.Percent)
	}
	if c.Backlight.DimPercent < 0 || c.Backlight.DimPercent > 100 {
		return fmt.Errorf("backlight.dim_percent must be 0-100, got %d", c.Backlight.DimPercent)
	}
	if c.Timing.ButtonPoll <= 0 || c.Timing.Refresh <= 0 || c.Timing.Render <= 0 {
		return fmt.Errorf("timing.button_poll, timing.refresh and timing.render must be positive")
	}
	if c.Timing.LongPress <= c.Timing.ButtonPoll {
		return fmt.Errorf("timing.long_press (%v) must exceed timing.button_poll (%v)", c.Timing.LongPress, c.Timing.ButtonPoll)
	}
	if c.Timing.Heartbeat < 0 {
		return fmt.Errorf("timing.heartbeat must not be negative")
	}
	if c.GPIO.Enabled && c.GPIO.PinBoot == c.GPIO.PinUser {
		return fmt.Errorf("gpio.pin_boot and gpio.pin_user must differ")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// InitialMode returns the configured start-up display mode.
func (c *Config) InitialMode() logic.Mode {
	m, _ := logic.ParseMode(c.Panel.Mode)
	return m
}
