package panel

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/sweeney/agent-panel/internal/render"
)

// PNGSink writes every presented frame to a PNG file, replacing it atomically
// so a viewer polling the file never sees a partial image.
type PNGSink struct {
	path string

	mu        sync.Mutex
	backlight uint8
}

// NewPNGSink returns a sink writing to path. The directory must exist.
func NewPNGSink(path string) *PNGSink {
	return &PNGSink{path: path, backlight: MaxPercent}
}

// Present encodes f and renames it over the target file.
func (s *PNGSink) Present(f *render.Frame) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".frame-*.png")
	if err != nil {
		return fmt.Errorf("create temp frame: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, f.RGBA()); err != nil {
		tmp.Close()
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp frame: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace frame: %w", err)
	}
	return nil
}

// SetBacklight records the level; a file has no brightness.
func (s *PNGSink) SetBacklight(percent uint8) error {
	s.mu.Lock()
	s.backlight = percent
	s.mu.Unlock()
	return nil
}

// Backlight returns the last level set.
func (s *PNGSink) Backlight() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backlight
}

// Close is a no-op.
func (s *PNGSink) Close() error { return nil }
