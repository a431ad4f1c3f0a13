package logic

import "time"

// Detector turns raw pressed/released samples into short and long press events.
type Detector struct {
	longPress     time.Duration
	stableSamples int
	buttons       [buttonCount]ButtonState
	eventCounts   EventCounts
}

// DetectorConfig configures a Detector.
type DetectorConfig struct {
	// BootPin and UserPin are recorded in the button state for diagnostics.
	BootPin int
	UserPin int
	// LongPress overrides LongPressThreshold when > 0.
	LongPress time.Duration
	// StableSamples is the number of consecutive identical samples required
	// before an edge is accepted. Values <= 1 accept every edge immediately.
	StableSamples int
}

// NewDetector creates a detector for both buttons.
func NewDetector(cfg DetectorConfig) *Detector {
	d := &Detector{
		longPress:     cfg.LongPress,
		stableSamples: cfg.StableSamples,
	}
	if d.longPress <= 0 {
		d.longPress = LongPressThreshold
	}
	if d.stableSamples < 1 {
		d.stableSamples = 1
	}
	d.buttons[ButtonBoot].Pin = cfg.BootPin
	d.buttons[ButtonUser].Pin = cfg.UserPin
	return d
}

// Poll processes one sample for a single button and returns the resulting event.
func (d *Detector) Poll(id ButtonID, pressed bool, now time.Time) ButtonEvent {
	if id >= buttonCount {
		return ButtonEvent{}
	}
	btn := &d.buttons[id]

	if !d.accept(btn, pressed) {
		pressed = btn.StablePressed
	}

	// Rising edge: start timing, no event yet
	if pressed && !btn.StablePressed {
		btn.StablePressed = true
		btn.PressStartedAt = now
		btn.LongPressFired = false
		return ButtonEvent{}
	}

	// Falling edge
	if !pressed && btn.StablePressed {
		held := now.Sub(btn.PressStartedAt)
		fired := btn.LongPressFired
		btn.StablePressed = false
		btn.LongPressFired = false
		if !fired && held < d.longPress {
			return d.count(ShortPress(id))
		}
		return ButtonEvent{}
	}

	// Still held
	if pressed && !btn.LongPressFired && now.Sub(btn.PressStartedAt) >= d.longPress {
		btn.LongPressFired = true
		return d.count(LongPress(id))
	}

	return ButtonEvent{}
}

// PollBoth samples both buttons, boot first. When the boot button produces an
// event the user button is not evaluated this cycle, so simultaneous presses
// can delay or mask its event.
func (d *Detector) PollBoth(boot, user bool, now time.Time) ButtonEvent {
	if ev := d.Poll(ButtonBoot, boot, now); !ev.None() {
		return ev
	}
	return d.Poll(ButtonUser, user, now)
}

// accept applies the optional N-sample filter. It reports whether the raw
// level may be used as-is.
func (d *Detector) accept(btn *ButtonState, pressed bool) bool {
	if d.stableSamples <= 1 || pressed == btn.StablePressed {
		btn.candidateCount = 0
		return true
	}
	if btn.candidateCount == 0 || btn.candidate != pressed {
		btn.candidate = pressed
		btn.candidateCount = 1
	} else {
		btn.candidateCount++
	}
	if btn.candidateCount >= d.stableSamples {
		btn.candidateCount = 0
		return true
	}
	return false
}

func (d *Detector) count(ev ButtonEvent) ButtonEvent {
	switch {
	case ev.Button == ButtonBoot && ev.Kind == EventShortPress:
		d.eventCounts.BootShort++
	case ev.Button == ButtonBoot && ev.Kind == EventLongPress:
		d.eventCounts.BootLong++
	case ev.Button == ButtonUser && ev.Kind == EventShortPress:
		d.eventCounts.UserShort++
	case ev.Button == ButtonUser && ev.Kind == EventLongPress:
		d.eventCounts.UserLong++
	}
	return ev
}

// State returns a copy of the tracked state for a button.
func (d *Detector) State(id ButtonID) ButtonState {
	if id >= buttonCount {
		return ButtonState{}
	}
	return d.buttons[id]
}

// EventCountsSnapshot returns a copy of the current event counts.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}
