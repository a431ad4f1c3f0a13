package render

import (
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

var (
	_ drivers.Displayer = (*canvas)(nil)
	_ drivers.Displayer = (*scaled)(nil)
)

// textFont is the only font on the panel.
var textFont tinyfont.Fonter = &proggy.TinySZ8pt7b

// Font metrics in unscaled pixels.
const (
	lineHeight   = 12
	glyphAscent  = 9
	glyphDescent = lineHeight - glyphAscent
)

// canvas adapts a Frame to the tinygo display driver interface so tinyfont
// can draw into it.
type canvas struct {
	f *Frame
}

func (c *canvas) Size() (x, y int16) {
	return int16(c.f.Width), int16(c.f.Height)
}

func (c *canvas) SetPixel(x, y int16, col color.RGBA) {
	c.f.Set(int(x), int(y), RGB565(col))
}

func (c *canvas) Display() error { return nil }

// scaled magnifies every pixel drawn through it into an s×s block placed
// relative to an origin on the target canvas.
type scaled struct {
	c      *canvas
	s      int
	ox, oy int
}

func (d *scaled) Size() (x, y int16) {
	w, h := d.c.Size()
	return w / int16(d.s), h / int16(d.s)
}

func (d *scaled) SetPixel(x, y int16, col color.RGBA) {
	d.c.f.FillRect(d.ox+int(x)*d.s, d.oy+int(y)*d.s, d.s, d.s, RGB565(col))
}

func (d *scaled) Display() error { return nil }

// TextWidth returns the rendered width of s in pixels at the given scale.
func TextWidth(s string, scale int) int {
	if scale < 1 {
		scale = 1
	}
	_, outbox := tinyfont.LineWidth(textFont, s)
	return int(outbox) * scale
}

// drawText writes s with its top-left corner at (x, y).
func drawText(c *canvas, x, y, scale int, s string, col color.RGBA) {
	if scale <= 1 {
		tinyfont.WriteLine(c, textFont, int16(x), int16(y+glyphAscent), s, col)
		return
	}
	d := &scaled{c: c, s: scale, ox: x, oy: y}
	tinyfont.WriteLine(d, textFont, 0, glyphAscent, s, col)
}

// fitText trims s until it fits within max pixels at scale.
func fitText(s string, max, scale int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	for len(r) > 0 && TextWidth(string(r), scale) > max {
		r = r[:len(r)-1]
	}
	return string(r)
}
