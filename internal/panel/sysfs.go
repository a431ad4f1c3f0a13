package panel

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SysfsBacklight drives a kernel backlight device such as
// /sys/class/backlight/backlight.
type SysfsBacklight struct {
	dir string
	max int
}

// OpenSysfsBacklight reads max_brightness from dir.
func OpenSysfsBacklight(dir string) (*SysfsBacklight, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "max_brightness"))
	if err != nil {
		return nil, fmt.Errorf("read max_brightness: %w", err)
	}
	max, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || max <= 0 {
		return nil, fmt.Errorf("invalid max_brightness %q", strings.TrimSpace(string(raw)))
	}
	return &SysfsBacklight{dir: dir, max: max}, nil
}

// SetBacklight scales percent to the device range and writes brightness.
func (s *SysfsBacklight) SetBacklight(percent uint8) error {
	percent = clampPercent(percent)
	level := s.max * int(percent) / MaxPercent
	if percent > 0 && level == 0 {
		level = 1
	}
	if err := os.WriteFile(filepath.Join(s.dir, "brightness"), []byte(strconv.Itoa(level)), 0o644); err != nil {
		return fmt.Errorf("write brightness: %w", err)
	}
	return nil
}
