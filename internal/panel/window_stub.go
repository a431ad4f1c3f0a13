//go:build !preview

package panel

import (
	"errors"

	"github.com/sweeney/agent-panel/internal/render"
)

var errNoPreview = errors.New("preview window requires a build with -tags preview")

// Window is unavailable in this build.
type Window struct{}

// NewWindow always fails without the preview build tag.
func NewWindow(_ int) (*Window, error) {
	return nil, errNoPreview
}

func (w *Window) Run(_ string) error            { return errNoPreview }
func (w *Window) Present(_ *render.Frame) error { return errNoPreview }
func (w *Window) SetBacklight(_ uint8) error    { return errNoPreview }
func (w *Window) Close() error                  { return nil }
