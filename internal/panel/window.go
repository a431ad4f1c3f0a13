//go:build preview

package panel

import (
	"sync"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/sweeney/agent-panel/internal/render"
)

// Window previews frames in a desktop window. Run must be called from the
// main goroutine; Present and SetBacklight may be called from any goroutine.
type Window struct {
	mu        sync.Mutex
	pix       []byte // RGBA
	dirty     bool
	backlight uint8
	closed    bool

	img   *ebiten.Image
	scale int
}

// NewWindow returns a preview window scaled by scale.
func NewWindow(scale int) (*Window, error) {
	if scale < 1 {
		scale = 1
	}
	return &Window{
		pix:       make([]byte, render.Width*render.Height*4),
		backlight: MaxPercent,
		scale:     scale,
	}, nil
}

// Run opens the window and blocks until it is closed or Close is called.
func (w *Window) Run(title string) error {
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(render.Width*w.scale, render.Height*w.scale)
	ebiten.SetTPS(30)
	return ebiten.RunGame(w)
}

// Present copies f for the next Draw.
func (w *Window) Present(f *render.Frame) error {
	img := f.RGBA()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	copy(w.pix, img.Pix)
	w.dirty = true
	return nil
}

// SetBacklight dims the preview by scaling its colours.
func (w *Window) SetBacklight(percent uint8) error {
	w.mu.Lock()
	w.backlight = clampPercent(percent)
	w.mu.Unlock()
	return nil
}

// Close ends Run on the next update.
func (w *Window) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

// Update implements ebiten.Game.
func (w *Window) Update() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ebiten.Termination
	}
	return nil
}

// Draw implements ebiten.Game.
func (w *Window) Draw(screen *ebiten.Image) {
	if w.img == nil {
		w.img = ebiten.NewImage(render.Width, render.Height)
	}
	w.mu.Lock()
	if w.dirty {
		w.img.WritePixels(w.pix)
		w.dirty = false
	}
	level := float32(w.backlight) / MaxPercent
	w.mu.Unlock()

	op := &ebiten.DrawImageOptions{}
	op.ColorScale.Scale(level, level, level, 1)
	screen.DrawImage(w.img, op)
}

// Layout implements ebiten.Game.
func (w *Window) Layout(_, _ int) (int, int) {
	return render.Width, render.Height
}
