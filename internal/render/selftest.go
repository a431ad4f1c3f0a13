package render

// Raw RGB565 test colours.
const (
	Black   uint16 = 0x0000
	White   uint16 = 0xffff
	Red     uint16 = 0xf800
	Green   uint16 = 0x07e0
	Blue    uint16 = 0x001f
	Yellow  uint16 = 0xffe0
	Cyan    uint16 = 0x07ff
	Magenta uint16 = 0xf81f
)

var stripeColors = [...]uint16{Red, Green, Blue, Yellow, Cyan, Magenta}

const checkerSize = 20

// Pattern is a named panel test image.
type Pattern struct {
	Name string
	Draw func(f *Frame)
}

// Patterns returns the panel self-test sequence: solid colours, stripes, a
// checkerboard and a grey ramp.
func Patterns() []Pattern {
	return []Pattern{
		{"red", solid(Red)},
		{"green", solid(Green)},
		{"blue", solid(Blue)},
		{"white", solid(White)},
		{"black", solid(Black)},
		{"stripes-horizontal", stripesHorizontal},
		{"stripes-vertical", stripesVertical},
		{"checkerboard", checkerboard},
		{"gradient", gradient},
	}
}

func solid(v uint16) func(*Frame) {
	return func(f *Frame) { f.Fill(v) }
}

func stripesHorizontal(f *Frame) {
	h := f.Height / len(stripeColors)
	for y := 0; y < f.Height; y++ {
		i := min(y/h, len(stripeColors)-1)
		f.FillRect(0, y, f.Width, 1, stripeColors[i])
	}
}

func stripesVertical(f *Frame) {
	w := f.Width / len(stripeColors)
	for x := 0; x < f.Width; x++ {
		i := min(x/w, len(stripeColors)-1)
		f.FillRect(x, 0, 1, f.Height, stripeColors[i])
	}
}

func checkerboard(f *Frame) {
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			v := Black
			if (x/checkerSize+y/checkerSize)%2 == 0 {
				v = White
			}
			f.Set(x, y, v)
		}
	}
}

func gradient(f *Frame) {
	for y := 0; y < f.Height; y++ {
		i := uint16(y * 255 / f.Height)
		f.FillRect(0, y, f.Width, 1, (i>>3)<<11|(i>>2)<<5|(i>>3))
	}
}
