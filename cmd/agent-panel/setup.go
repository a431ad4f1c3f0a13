package main

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"

	"github.com/sweeney/agent-panel/internal/collect"
	"github.com/sweeney/agent-panel/internal/config"
	"github.com/sweeney/agent-panel/internal/gpio"
	"github.com/sweeney/agent-panel/internal/logic"
	"github.com/sweeney/agent-panel/internal/panel"
	"github.com/sweeney/agent-panel/internal/settings"
)

// flagOff disables the subsystem behind --http or --broker.
const flagOff = "off"

// overrides are command-line values applied over the configuration file.
type overrides struct {
	LogLevel string
	HTTP     string
	Broker   string
	Panel    string
}

func currentOverrides() overrides {
	return overrides{LogLevel: logLevel, HTTP: httpAddr, Broker: brokerAddr, Panel: panelDrv}
}

// loadConfig reads path, applies o and validates the result.
func loadConfig(path string, o overrides) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, o)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config, o overrides) {
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	switch o.HTTP {
	case "":
	case flagOff:
		cfg.HTTP.Listen = ""
	default:
		cfg.HTTP.Listen = o.HTTP
	}
	switch o.Broker {
	case "":
	case flagOff:
		cfg.MQTT.Enabled = false
	default:
		cfg.MQTT.Enabled = true
		cfg.MQTT.Broker = o.Broker
	}
	if o.Panel != "" {
		cfg.Panel.Driver = o.Panel
	}
}

// openButtons returns nil when buttons are disabled or the chip cannot be
// opened; the panel keeps running without them.
func openButtons(cfg *config.Config, logger *zap.Logger) gpio.Reader {
	if !cfg.GPIO.Enabled {
		return nil
	}
	r, err := gpio.NewRealReader(gpio.Config{
		Chip:      cfg.GPIO.Chip,
		PinBoot:   cfg.GPIO.PinBoot,
		PinUser:   cfg.GPIO.PinUser,
		ActiveLow: cfg.GPIO.ActiveLow,
	})
	if err != nil {
		logger.Warn("buttons unavailable", zap.String("chip", cfg.GPIO.Chip), zap.Error(err))
		return nil
	}
	return r
}

func newDetector(cfg *config.Config) *logic.Detector {
	return logic.NewDetector(logic.DetectorConfig{
		BootPin:       cfg.GPIO.PinBoot,
		UserPin:       cfg.GPIO.PinUser,
		LongPress:     cfg.Timing.LongPress,
		StableSamples: cfg.GPIO.StableSamples,
	})
}

func st7789Config(cfg *config.Config) panel.ST7789Config {
	s := cfg.Panel.ST7789
	return panel.ST7789Config{
		SPIPort:        s.SPIPort,
		SPISpeed:       physic.Frequency(s.SPISpeedHz) * physic.Hertz,
		DCPin:          s.DCPin,
		ResetPin:       s.ResetPin,
		BacklightPin:   s.BacklightPin,
		BacklightPWM:   physic.Frequency(s.BacklightPWMHz) * physic.Hertz,
		BacklightSysfs: s.BacklightSysfs,
		ColumnOffset:   s.ColumnOffset,
		RowOffset:      s.RowOffset,
		Invert:         s.Invert,
	}
}

// openSink opens the configured panel driver. For the window driver the
// returned Window must be run on the main goroutine.
func openSink(cfg *config.Config) (panel.Sink, *panel.Window, error) {
	switch cfg.Panel.Driver {
	case config.DriverST7789:
		d, err := panel.OpenST7789(st7789Config(cfg))
		if err != nil {
			return nil, nil, fmt.Errorf("open st7789: %w", err)
		}
		return d, nil, nil
	case config.DriverPNG:
		return panel.NewPNGSink(cfg.Panel.PNGPath), nil, nil
	case config.DriverWindow:
		w, err := panel.NewWindow(cfg.Panel.WindowScale)
		if err != nil {
			return nil, nil, err
		}
		return w, w, nil
	case config.DriverNone:
		return panel.NewMemorySink(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown panel driver %q", cfg.Panel.Driver)
	}
}

// openPrefs opens the preference store and returns the values to start
// with. Saved preferences win over the configuration; a store that cannot be
// opened leaves the configured values in place and returns a nil store.
func openPrefs(cfg *config.Config, logger *zap.Logger) (*settings.Store, logic.Mode, uint8) {
	mode := cfg.InitialMode()
	level := uint8(cfg.Backlight.Percent)
	if cfg.Store.Path == "" {
		return nil, mode, level
	}

	store, err := settings.Open(cfg.Store.Path)
	if err != nil {
		logger.Warn("preferences not persisted", zap.String("path", cfg.Store.Path), zap.Error(err))
		return nil, mode, level
	}
	p, err := store.Load()
	switch {
	case err == nil:
		logger.Info("restored preferences",
			zap.Stringer("mode", p.Mode),
			zap.Uint8("backlight", p.Backlight),
			zap.Time("saved_at", p.UpdatedAt),
		)
		return store, p.Mode, p.Backlight
	case errors.Is(err, settings.ErrNotFound):
	default:
		logger.Warn("stored preferences unreadable", zap.Error(err))
	}
	return store, mode, level
}

func newRefresher(cfg *config.Config, bot collect.BotProvider, boot time.Time) *collect.Refresher {
	return &collect.Refresher{
		Network: &collect.EnvNetwork{Getenv: os.Getenv, WirelessPath: cfg.System.WirelessPath},
		Bot:     bot,
		Memory:  &collect.ProcMemory{Path: cfg.System.MeminfoPath},
		Boot:    boot,
	}
}

// signalReason is the SHUTDOWN reason published for s.
func signalReason(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}
