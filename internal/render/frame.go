// Package render turns status snapshots into RGB565 frames for the panel.
//
// Layouts build a retained Scene of rectangles, circles and text; Rasterize is
// the only code that touches pixels. Rendering is pure: the same mode and
// snapshot always produce the same bytes.
package render

import (
	"bytes"
	"image"
	"image/color"
)

// Panel geometry.
const (
	Width         = 320
	Height        = 170
	BytesPerPixel = 2
)

// Frame is an RGB565 pixel buffer. Pixels are stored big-endian, the byte
// order the panel expects on the wire.
type Frame struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// NewFrame allocates a zeroed frame.
func NewFrame(w, h int) *Frame {
	return &Frame{
		Width:  w,
		Height: h,
		Stride: w * BytesPerPixel,
		Pix:    make([]byte, w*h*BytesPerPixel),
	}
}

// Equal reports whether two frames have identical geometry and pixels.
func (f *Frame) Equal(o *Frame) bool {
	if f == nil || o == nil {
		return f == o
	}
	return f.Width == o.Width && f.Height == o.Height && bytes.Equal(f.Pix, o.Pix)
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	c := *f
	c.Pix = append([]byte(nil), f.Pix...)
	return &c
}

// At returns the RGB565 value at (x, y), or 0 outside the frame.
func (f *Frame) At(x, y int) uint16 {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0
	}
	off := y*f.Stride + x*BytesPerPixel
	return uint16(f.Pix[off])<<8 | uint16(f.Pix[off+1])
}

// Set writes an RGB565 value at (x, y). Out of range writes are ignored.
func (f *Frame) Set(x, y int, v uint16) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	off := y*f.Stride + x*BytesPerPixel
	f.Pix[off] = byte(v >> 8)
	f.Pix[off+1] = byte(v)
}

// FillRect fills the clipped rectangle [x, x+w) × [y, y+h).
func (f *Frame) FillRect(x, y, w, h int, v uint16) {
	x0 := clampInt(x, 0, f.Width)
	y0 := clampInt(y, 0, f.Height)
	x1 := clampInt(x+w, 0, f.Width)
	y1 := clampInt(y+h, 0, f.Height)
	if x0 >= x1 || y0 >= y1 {
		return
	}
	hi, lo := byte(v>>8), byte(v)
	for py := y0; py < y1; py++ {
		row := py * f.Stride
		for px := x0; px < x1; px++ {
			off := row + px*BytesPerPixel
			f.Pix[off] = hi
			f.Pix[off+1] = lo
		}
	}
}

// Fill paints the whole frame.
func (f *Frame) Fill(v uint16) {
	f.FillRect(0, 0, f.Width, f.Height, v)
}

// RGBA expands the frame to 8-bit RGBA for PNG encoding and preview windows.
func (f *Frame) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			img.SetRGBA(x, y, RGBAFrom565(f.At(x, y)))
		}
	}
	return img
}

// RGB565 packs an 8-bit colour into 5-6-5 bits.
func RGB565(c color.RGBA) uint16 {
	return uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
}

// RGBAFrom565 expands a 5-6-5 value, replicating high bits into the low ones.
func RGBAFrom565(v uint16) color.RGBA {
	r := uint8(v>>11) & 0x1f
	g := uint8(v>>5) & 0x3f
	b := uint8(v) & 0x1f
	return color.RGBA{
		R: r<<3 | r>>2,
		G: g<<2 | g>>4,
		B: b<<3 | b>>2,
		A: 0xff,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
