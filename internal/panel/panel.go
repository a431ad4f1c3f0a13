// Package panel drives the physical display: pixel transport and backlight.
package panel

import (
	"errors"

	"github.com/sweeney/agent-panel/internal/render"
)

// ErrBusy is returned by a sink whose transport is still occupied with a
// previous transfer. The frame can be presented again on the next pass.
var ErrBusy = errors.New("panel: transport busy")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("panel: sink closed")

// Sink is the abstraction over the display's pixel transport and power.
type Sink interface {
	// Present pushes a full frame to the panel. It may block on the transport.
	Present(f *render.Frame) error
	// SetBacklight sets brightness in percent, 0 meaning off.
	SetBacklight(percent uint8) error
	Close() error
}
