// Package gpio provides button input reading with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the two button inputs.
type Reader interface {
	// Read returns the logical pressed states of the BOOT and USER buttons.
	// Active level is already applied: true means pressed.
	// Returns (bootPressed, userPressed, error).
	Read() (bool, bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultChip    = "gpiochip0"
	DefaultPinBoot = 17 // Mode button
	DefaultPinUser = 27 // User button
)

// Config selects the lines used for the buttons.
type Config struct {
	Chip      string
	PinBoot   int
	PinUser   int
	ActiveLow bool // buttons pull the line to ground when pressed
}
