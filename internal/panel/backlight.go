package panel

import "sync"

// MaxPercent is full brightness.
const MaxPercent = 100

// BacklightState is the commanded brightness. Enabled is always Percent > 0.
type BacklightState struct {
	Enabled bool
	Percent uint8
}

// BacklightSetter is the part of a Sink that controls brightness.
type BacklightSetter interface {
	SetBacklight(percent uint8) error
}

// Backlight tracks the commanded brightness and applies it to a setter.
//
// State changes happen under mu; hardware calls happen under applyMu and
// always send the latest state, so a slow transport never blocks readers and
// concurrent callers cannot apply levels out of order.
type Backlight struct {
	mu      sync.Mutex
	state   BacklightState
	last    uint8 // last non-zero level, restored by Toggle
	dimmed  bool
	saved   uint8 // level before Dim
	applyMu sync.Mutex
	applied int // -1 until the first successful apply
	sink    BacklightSetter
}

// NewBacklight returns a backlight at the given level. Nothing is sent to the
// sink until the first Set, Toggle, Dim, Restore or Apply.
func NewBacklight(sink BacklightSetter, percent uint8) *Backlight {
	percent = clampPercent(percent)
	last := percent
	if last == 0 {
		last = MaxPercent
	}
	return &Backlight{
		state:   stateFor(percent),
		last:    last,
		applied: -1,
		sink:    sink,
	}
}

func clampPercent(p uint8) uint8 {
	if p > MaxPercent {
		return MaxPercent
	}
	return p
}

func stateFor(p uint8) BacklightState {
	return BacklightState{Enabled: p > 0, Percent: p}
}

// State returns the commanded state.
func (b *Backlight) State() BacklightState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Dimmed reports whether a temporary reduction is in effect.
func (b *Backlight) Dimmed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dimmed
}

// RestoreLevel is the level in effect once any Dim is undone.
func (b *Backlight) RestoreLevel() uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dimmed {
		return b.saved
	}
	return b.state.Percent
}

// setLocked must be called with mu held.
func (b *Backlight) setLocked(p uint8) {
	p = clampPercent(p)
	b.state = stateFor(p)
	if p > 0 {
		b.last = p
	}
}

// Set commands a level, clamped to 100. Setting the current level again is a
// no-op on the hardware. An explicit Set cancels any pending Dim.
func (b *Backlight) Set(percent uint8) error {
	b.mu.Lock()
	b.dimmed = false
	b.setLocked(percent)
	b.mu.Unlock()
	return b.Apply()
}

// Toggle switches off, or back on at the last non-zero level.
func (b *Backlight) Toggle() (BacklightState, error) {
	st := b.ToggleState()
	return st, b.Apply()
}

// ToggleState flips the commanded state like Toggle but leaves the sink
// alone; the next Apply sends it.
func (b *Backlight) ToggleState() BacklightState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dimmed = false
	if b.state.Enabled {
		b.setLocked(0)
	} else {
		b.setLocked(b.last)
	}
	return b.state
}

// Dim temporarily lowers brightness to percent. It never raises brightness
// and a second Dim keeps the level saved by the first.
func (b *Backlight) Dim(percent uint8) error {
	b.mu.Lock()
	if !b.dimmed {
		b.saved = b.state.Percent
		b.dimmed = true
	}
	if p := clampPercent(percent); p < b.state.Percent {
		b.state = stateFor(p)
	}
	b.mu.Unlock()
	return b.Apply()
}

// Restore undoes Dim. It does nothing when no Dim is in effect.
func (b *Backlight) Restore() error {
	b.mu.Lock()
	if !b.dimmed {
		b.mu.Unlock()
		return nil
	}
	b.dimmed = false
	b.setLocked(b.saved)
	b.mu.Unlock()
	return b.Apply()
}

// Apply sends the current level to the sink if it differs from the last
// level applied.
func (b *Backlight) Apply() error {
	if b.sink == nil {
		return nil
	}
	b.applyMu.Lock()
	defer b.applyMu.Unlock()

	p := b.State().Percent
	if int(p) == b.applied {
		return nil
	}
	if err := b.sink.SetBacklight(p); err != nil {
		return err
	}
	b.applied = int(p)
	return nil
}
