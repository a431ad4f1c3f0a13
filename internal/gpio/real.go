//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads buttons from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip      *gpiocdev.Chip
	bootPin   *gpiocdev.Line
	userPin   *gpiocdev.Line
	activeLow bool
}

// NewRealReader creates a button reader for the configured GPIO lines.
func NewRealReader(cfg Config) (*RealReader, error) {
	if cfg.Chip == "" {
		cfg.Chip = DefaultChip
	}

	chip, err := gpiocdev.NewChip(cfg.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// Buttons short the line to ground, so bias towards the released level.
	bias := gpiocdev.WithPullDown
	if cfg.ActiveLow {
		bias = gpiocdev.WithPullUp
	}

	bootLine, err := chip.RequestLine(cfg.PinBoot, gpiocdev.AsInput, bias)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request BOOT pin %d: %w", cfg.PinBoot, err)
	}

	userLine, err := chip.RequestLine(cfg.PinUser, gpiocdev.AsInput, bias)
	if err != nil {
		bootLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request USER pin %d: %w", cfg.PinUser, err)
	}

	return &RealReader{
		chip:      chip,
		bootPin:   bootLine,
		userPin:   userLine,
		activeLow: cfg.ActiveLow,
	}, nil
}

// Read returns the pressed states of BOOT and USER.
func (r *RealReader) Read() (bool, bool, error) {
	bootRaw, err := r.bootPin.Value()
	if err != nil {
		return false, false, fmt.Errorf("read BOOT pin: %w", err)
	}

	userRaw, err := r.userPin.Value()
	if err != nil {
		return false, false, fmt.Errorf("read USER pin: %w", err)
	}

	return r.pressed(bootRaw), r.pressed(userRaw), nil
}

func (r *RealReader) pressed(raw int) bool {
	if r.activeLow {
		return raw == 0
	}
	return raw != 0
}

// Close releases GPIO resources.
// Lines are left as plain inputs so the pins are in a safe state for reboot.
func (r *RealReader) Close() error {
	var errs []error

	for name, line := range map[string]*gpiocdev.Line{"BOOT": r.bootPin, "USER": r.userPin} {
		if line == nil {
			continue
		}
		if err := line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
