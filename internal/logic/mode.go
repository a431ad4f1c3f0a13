package logic

import (
	"strings"
	"sync"
)

// Mode selects the layout drawn on the panel.
type Mode uint8

// Modes cycle in declaration order.
const (
	ModeDashboard Mode = iota
	ModeDetail
	ModeLargeAddress
	ModeBanner

	ModeCount = int(ModeBanner) + 1
)

var modeNames = [...]string{
	ModeDashboard:    "dashboard",
	ModeDetail:       "detail",
	ModeLargeAddress: "large-address",
	ModeBanner:       "banner",
}

func (m Mode) String() string {
	if !m.Valid() {
		return "unknown"
	}
	return modeNames[m]
}

// Valid reports whether m is one of the declared modes.
func (m Mode) Valid() bool {
	return int(m) < ModeCount
}

// Next returns the mode after m, wrapping around.
func (m Mode) Next() Mode {
	return Mode((int(m) + 1) % ModeCount)
}

// ParseMode maps a mode name to a Mode.
func ParseMode(s string) (Mode, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range modeNames {
		if name == s {
			return Mode(i), true
		}
	}
	return ModeDashboard, false
}

// ModeController owns the current display mode.
// It is safe for concurrent use.
type ModeController struct {
	mu      sync.Mutex
	mode    Mode
	changed []chan Mode
}

// NewModeController creates a controller starting at initial, or at the
// default mode if initial is out of range.
func NewModeController(initial Mode) *ModeController {
	if !initial.Valid() {
		initial = ModeDashboard
	}
	return &ModeController{mode: initial}
}

// Current returns the active mode.
func (c *ModeController) Current() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Cycle advances to the next mode and returns it.
func (c *ModeController) Cycle() Mode {
	c.mu.Lock()
	next := c.mode.Next()
	c.mode = next
	c.notifyLocked(next)
	c.mu.Unlock()
	return next
}

// Set switches to m. Out-of-range modes are rejected and leave the current
// mode untouched.
func (c *ModeController) Set(m Mode) bool {
	if !m.Valid() {
		return false
	}
	c.mu.Lock()
	if c.mode != m {
		c.mode = m
		c.notifyLocked(m)
	}
	c.mu.Unlock()
	return true
}

// Changes returns a channel that receives the new mode after every change.
// Only the latest pending change is kept for slow readers.
func (c *ModeController) Changes() <-chan Mode {
	ch := make(chan Mode, 1)
	c.mu.Lock()
	c.changed = append(c.changed, ch)
	c.mu.Unlock()
	return ch
}

func (c *ModeController) notifyLocked(m Mode) {
	for _, ch := range c.changed {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- m:
		default:
		}
	}
}
