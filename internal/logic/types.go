// Package logic contains pure business logic for button handling and display modes.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// LongPressThreshold is the hold duration after which a press counts as long.
const LongPressThreshold = 2000 * time.Millisecond

// ButtonID identifies one of the two physical buttons.
type ButtonID uint8

const (
	// ButtonBoot is the mode button (GPIO0 on the original board).
	ButtonBoot ButtonID = iota
	// ButtonUser is the secondary user button.
	ButtonUser

	buttonCount
)

func (b ButtonID) String() string {
	switch b {
	case ButtonBoot:
		return "BOOT"
	case ButtonUser:
		return "USER"
	default:
		return "UNKNOWN"
	}
}

// EventKind is the tag of a ButtonEvent.
type EventKind uint8

const (
	EventNone EventKind = iota
	EventShortPress
	EventLongPress
)

func (k EventKind) String() string {
	switch k {
	case EventShortPress:
		return "SHORT"
	case EventLongPress:
		return "LONG"
	default:
		return "NONE"
	}
}

// ButtonEvent is the result of one poll. The zero value is "no event".
type ButtonEvent struct {
	Kind   EventKind
	Button ButtonID
}

// None reports whether the event carries nothing.
func (e ButtonEvent) None() bool {
	return e.Kind == EventNone
}

func (e ButtonEvent) String() string {
	if e.None() {
		return "NONE"
	}
	return e.Button.String() + "_" + e.Kind.String()
}

// ShortPress builds a short press event for b.
func ShortPress(b ButtonID) ButtonEvent {
	return ButtonEvent{Kind: EventShortPress, Button: b}
}

// LongPress builds a long press event for b.
func LongPress(b ButtonID) ButtonEvent {
	return ButtonEvent{Kind: EventLongPress, Button: b}
}

// ButtonState tracks press state for a single button.
type ButtonState struct {
	// Pin is the hardware line the button is wired to.
	Pin int
	// Current stable (accepted) pressed level
	StablePressed bool
	// Time of the last accepted rising edge
	PressStartedAt time.Time
	// Latched once a long press has been emitted for the current hold
	LongPressFired bool

	// Raw level awaiting confirmation when sample filtering is enabled
	candidate      bool
	candidateCount int
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	BootShort int
	BootLong  int
	UserShort int
	UserLong  int
}
