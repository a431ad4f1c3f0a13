package render

import "image/color"

// Element is one drawing primitive in a Scene.
type Element interface {
	draw(c *canvas)
}

// Rect is an axis-aligned rectangle, filled or outlined.
type Rect struct {
	X, Y, W, H int
	Color      color.RGBA
	Outline    bool
}

func (r Rect) draw(c *canvas) {
	v := RGB565(r.Color)
	if !r.Outline {
		c.f.FillRect(r.X, r.Y, r.W, r.H, v)
		return
	}
	c.f.FillRect(r.X, r.Y, r.W, 1, v)
	c.f.FillRect(r.X, r.Y+r.H-1, r.W, 1, v)
	c.f.FillRect(r.X, r.Y, 1, r.H, v)
	c.f.FillRect(r.X+r.W-1, r.Y, 1, r.H, v)
}

// Circle is a disc (or ring when Outline is set) centred on X, Y.
type Circle struct {
	X, Y, R int
	Color   color.RGBA
	Outline bool
}

func (ci Circle) draw(c *canvas) {
	if ci.R <= 0 {
		return
	}
	v := RGB565(ci.Color)
	outer := ci.R * ci.R
	inner := (ci.R - 1) * (ci.R - 1)
	for dy := -ci.R; dy <= ci.R; dy++ {
		for dx := -ci.R; dx <= ci.R; dx++ {
			d := dx*dx + dy*dy
			if d > outer || (ci.Outline && d <= inner) {
				continue
			}
			c.f.Set(ci.X+dx, ci.Y+dy, v)
		}
	}
}

// Align positions Text horizontally relative to X.
type Align uint8

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Text is a single line. Y is the top of the line box.
type Text struct {
	X, Y  int
	S     string
	Color color.RGBA
	Scale int
	Align Align
	// MaxWidth trims the string to fit when non-zero.
	MaxWidth int
}

func (t Text) draw(c *canvas) {
	scale := t.Scale
	if scale < 1 {
		scale = 1
	}
	s := t.S
	if t.MaxWidth > 0 {
		s = fitText(s, t.MaxWidth, scale)
	}
	x := t.X
	switch t.Align {
	case AlignCenter:
		x -= TextWidth(s, scale) / 2
	case AlignRight:
		x -= TextWidth(s, scale)
	}
	drawText(c, x, t.Y, scale, s, t.Color)
}

// Scene is an ordered list of elements over a background colour.
type Scene struct {
	Background color.RGBA
	Elements   []Element
}

// Add appends elements in paint order.
func (s *Scene) Add(e ...Element) {
	s.Elements = append(s.Elements, e...)
}

// Rasterize paints scene into dst, overwriting every pixel.
func Rasterize(scene *Scene, dst *Frame) {
	dst.Fill(RGB565(scene.Background))
	c := &canvas{f: dst}
	for _, e := range scene.Elements {
		e.draw(c)
	}
}
