package panel

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/sweeney/agent-panel/internal/render"
)

func checkInvariant(t *testing.T, st BacklightState) {
	t.Helper()
	if st.Enabled != (st.Percent > 0) {
		t.Fatalf("invariant broken: %+v", st)
	}
	if st.Percent > MaxPercent {
		t.Fatalf("percent out of range: %+v", st)
	}
}

func TestBacklightSetClamps(t *testing.T) {
	sink := NewMemorySink()
	b := NewBacklight(sink, 50)

	if err := b.Set(250); err != nil {
		t.Fatal(err)
	}
	st := b.State()
	checkInvariant(t, st)
	if st.Percent != 100 {
		t.Errorf("Percent: got %d, want 100", st.Percent)
	}
}

func TestBacklightSetIdempotent(t *testing.T) {
	sink := NewMemorySink()
	b := NewBacklight(sink, 0)

	b.Set(40)
	b.Set(40)
	b.Set(40)

	levels := sink.BacklightLevels()
	if len(levels) != 1 || levels[0] != 40 {
		t.Errorf("sink levels: got %v, want [40]", levels)
	}
	if st := b.State(); st.Percent != 40 || !st.Enabled {
		t.Errorf("state: got %+v", st)
	}
}

func TestBacklightToggleRestoresLastLevel(t *testing.T) {
	sink := NewMemorySink()
	b := NewBacklight(sink, 70)

	st, err := b.Toggle()
	if err != nil {
		t.Fatal(err)
	}
	checkInvariant(t, st)
	if st.Enabled || st.Percent != 0 {
		t.Errorf("first toggle: got %+v, want off", st)
	}

	st, _ = b.Toggle()
	checkInvariant(t, st)
	if !st.Enabled || st.Percent != 70 {
		t.Errorf("second toggle: got %+v, want 70%%", st)
	}

	if got := sink.BacklightLevels(); len(got) != 2 || got[0] != 0 || got[1] != 70 {
		t.Errorf("sink levels: got %v, want [0 70]", got)
	}
}

func TestBacklightToggleFromZeroStart(t *testing.T) {
	b := NewBacklight(NewMemorySink(), 0)
	st, _ := b.Toggle()
	if st.Percent != MaxPercent {
		t.Errorf("toggle from never-lit: got %d, want %d", st.Percent, MaxPercent)
	}
}

func TestBacklightToggleStateDefersApply(t *testing.T) {
	sink := NewMemorySink()
	b := NewBacklight(sink, 60)

	st := b.ToggleState()
	checkInvariant(t, st)
	if st.Enabled {
		t.Errorf("state after ToggleState: got %+v, want off", st)
	}
	if levels := sink.BacklightLevels(); len(levels) != 0 {
		t.Fatalf("ToggleState reached the sink: %v", levels)
	}

	if err := b.Apply(); err != nil {
		t.Fatal(err)
	}
	b.ToggleState()
	if err := b.Apply(); err != nil {
		t.Fatal(err)
	}
	if got := sink.BacklightLevels(); len(got) != 2 || got[0] != 0 || got[1] != 60 {
		t.Errorf("sink levels: got %v, want [0 60]", got)
	}
}

func TestBacklightDimRestore(t *testing.T) {
	sink := NewMemorySink()
	b := NewBacklight(sink, 80)

	b.Dim(20)
	if st := b.State(); st.Percent != 20 || !b.Dimmed() {
		t.Errorf("after Dim: got %+v dimmed=%v", st, b.Dimmed())
	}

	// A second Dim must not overwrite the saved level.
	b.Dim(10)
	b.Restore()
	if st := b.State(); st.Percent != 80 || b.Dimmed() {
		t.Errorf("after Restore: got %+v dimmed=%v", st, b.Dimmed())
	}

	// Restore without Dim is a no-op.
	before := len(sink.BacklightLevels())
	b.Restore()
	if len(sink.BacklightLevels()) != before {
		t.Error("Restore without Dim touched the sink")
	}
}

func TestBacklightDimNeverRaises(t *testing.T) {
	b := NewBacklight(NewMemorySink(), 10)
	b.Dim(50)
	if st := b.State(); st.Percent != 10 {
		t.Errorf("Dim raised brightness to %d", st.Percent)
	}
}

func TestBacklightExplicitSetCancelsDim(t *testing.T) {
	b := NewBacklight(NewMemorySink(), 80)
	b.Dim(20)
	b.Set(60)
	b.Restore()
	if st := b.State(); st.Percent != 60 {
		t.Errorf("Restore after Set: got %d, want 60", st.Percent)
	}
}

type failingSetter struct{ err error }

func (f failingSetter) SetBacklight(uint8) error { return f.err }

func TestBacklightApplyErrorRetries(t *testing.T) {
	want := errors.New("i2c nack")
	fs := &failingSetter{err: want}
	b := NewBacklight(fs, 50)

	if err := b.Set(30); !errors.Is(err, want) {
		t.Fatalf("got %v, want %v", err, want)
	}
	// State still reflects the command so the next Apply can retry.
	if b.State().Percent != 30 {
		t.Error("state should hold the commanded level")
	}
	fs.err = nil
	if err := b.Apply(); err != nil {
		t.Errorf("retry: %v", err)
	}
}

func TestBacklightConcurrentInvariant(t *testing.T) {
	b := NewBacklight(NewMemorySink(), 50)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				switch (i + j) % 4 {
				case 0:
					b.Toggle()
				case 1:
					b.Set(uint8(j % 120))
				case 2:
					b.Dim(5)
				case 3:
					b.Restore()
				}
			}
		}(i)
	}
	wg.Wait()
	checkInvariant(t, b.State())
}

func TestMemorySink(t *testing.T) {
	m := NewMemorySink()
	f := render.NewFrame(4, 4)
	f.Fill(render.Red)

	if err := m.Present(f); err != nil {
		t.Fatal(err)
	}
	f.Fill(render.Blue)
	if got := m.Last(); got.At(0, 0) != render.Red {
		t.Error("MemorySink should keep a copy, not the caller's buffer")
	}

	m.FailNext(ErrBusy)
	if err := m.Present(f); !errors.Is(err, ErrBusy) {
		t.Errorf("got %v, want ErrBusy", err)
	}
	if m.Presents() != 1 {
		t.Errorf("Presents: got %d, want 1", m.Presents())
	}

	m.Close()
	if err := m.Present(f); !errors.Is(err, ErrClosed) {
		t.Errorf("after Close: got %v, want ErrClosed", err)
	}
}

func TestPNGSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	s := NewPNGSink(path)

	f := render.NewFrame(render.Width, render.Height)
	f.Fill(render.Green)
	if err := s.Present(f); err != nil {
		t.Fatalf("Present: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != render.Width || b.Dy() != render.Height {
		t.Errorf("bounds: got %v", b)
	}
	r, g, bl, _ := img.At(5, 5).RGBA()
	if r != 0 || g != 0xffff || bl != 0 {
		t.Errorf("pixel: got r=%x g=%x b=%x, want green", r, g, bl)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}

	s.SetBacklight(30)
	if s.Backlight() != 30 {
		t.Errorf("Backlight: got %d", s.Backlight())
	}
}

func TestSysfsBacklight(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "max_brightness"), []byte("255\n"), 0o644)

	bl, err := OpenSysfsBacklight(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, tt := range []struct {
		percent uint8
		want    string
	}{
		{100, "255"},
		{50, "127"},
		{0, "0"},
		{1, "2"},
	} {
		if err := bl.SetBacklight(tt.percent); err != nil {
			t.Fatal(err)
		}
		got, _ := os.ReadFile(filepath.Join(dir, "brightness"))
		if string(got) != tt.want {
			t.Errorf("%d%%: wrote %q, want %q", tt.percent, got, tt.want)
		}
	}
}

func TestSysfsBacklightMissing(t *testing.T) {
	if _, err := OpenSysfsBacklight(t.TempDir()); err == nil {
		t.Error("expected error without max_brightness")
	}
}

// fakeConn records SPI writes along with the DC level at the time.
type fakeConn struct {
	dc  *fakePin
	txs []tx
	err error
}

type tx struct {
	data bool
	b    []byte
}

func (c *fakeConn) Tx(w, _ []byte) error {
	if c.err != nil {
		return c.err
	}
	c.txs = append(c.txs, tx{data: c.dc.level == gpio.High, b: append([]byte(nil), w...)})
	return nil
}

type fakePin struct {
	level gpio.Level
	duty  gpio.Duty
	freq  physic.Frequency
	outs  []gpio.Level
	err   error
}

func (p *fakePin) Out(l gpio.Level) error {
	if p.err != nil {
		return p.err
	}
	p.level = l
	p.outs = append(p.outs, l)
	return nil
}

func (p *fakePin) PWM(d gpio.Duty, f physic.Frequency) error {
	p.duty, p.freq = d, f
	return nil
}

func newTestST7789(cfg ST7789Config) (*ST7789, *fakeConn) {
	dc := &fakePin{}
	c := &fakeConn{dc: dc}
	d := newST7789(c, dc, cfg)
	d.sleep = func(time.Duration) {}
	return d, c
}

// commands returns the command bytes in order.
func (c *fakeConn) commands() []byte {
	var out []byte
	for _, x := range c.txs {
		if !x.data {
			out = append(out, x.b[0])
		}
	}
	return out
}

func TestST7789InitSequence(t *testing.T) {
	d, c := newTestST7789(ST7789Config{Invert: true})
	rst := &fakePin{}
	d.rst = rst

	if err := d.init(); err != nil {
		t.Fatal(err)
	}

	want := []byte{cmdSWRESET, cmdSLPOUT, cmdCOLMOD, cmdMADCTL, cmdINVON, cmdNORON, cmdDISPON}
	if got := c.commands(); !bytes.Equal(got, want) {
		t.Errorf("commands: got % x, want % x", got, want)
	}
	if len(rst.outs) != 3 || rst.outs[1] != gpio.Low {
		t.Errorf("reset pulse: got %v", rst.outs)
	}
}

func TestST7789InitWithoutInvert(t *testing.T) {
	d, c := newTestST7789(ST7789Config{})
	d.init()
	if bytes.IndexByte(c.commands(), cmdINVON) >= 0 {
		t.Error("INVON sent with Invert unset")
	}
}

func TestST7789Present(t *testing.T) {
	d, c := newTestST7789(ST7789Config{RowOffset: 35})
	f := render.NewFrame(render.Width, render.Height)
	f.Fill(0x1234)

	if err := d.Present(f); err != nil {
		t.Fatal(err)
	}

	if got := c.commands(); !bytes.Equal(got, []byte{cmdCASET, cmdRASET, cmdRAMWR}) {
		t.Fatalf("commands: got % x", got)
	}
	caset, raset := c.txs[1].b, c.txs[3].b
	if !bytes.Equal(caset, []byte{0, 0, 0x01, 0x3f}) {
		t.Errorf("CASET: got % x, want 00 00 01 3f", caset)
	}
	if !bytes.Equal(raset, []byte{0, 35, 0, 204}) {
		t.Errorf("RASET: got % x, want 00 23 00 cc", raset)
	}

	var pix []byte
	chunks := 0
	for _, x := range c.txs[5:] {
		pix = append(pix, x.b...)
		chunks++
	}
	if !bytes.Equal(pix, f.Pix) {
		t.Error("pixel data mismatch")
	}
	for _, x := range c.txs[5:] {
		if len(x.b) > maxChunk {
			t.Errorf("chunk of %d bytes exceeds %d", len(x.b), maxChunk)
		}
	}
	if want := (len(f.Pix) + maxChunk - 1) / maxChunk; chunks != want {
		t.Errorf("chunks: got %d, want %d", chunks, want)
	}
}

func TestST7789PresentWrongSize(t *testing.T) {
	d, _ := newTestST7789(ST7789Config{})
	if err := d.Present(render.NewFrame(10, 10)); err == nil {
		t.Error("expected size mismatch error")
	}
}

func TestST7789PresentBusy(t *testing.T) {
	d, c := newTestST7789(ST7789Config{})
	d.mu.Lock()
	err := d.Present(render.NewFrame(render.Width, render.Height))
	d.mu.Unlock()

	if !errors.Is(err, ErrBusy) {
		t.Errorf("got %v, want ErrBusy", err)
	}
	if len(c.txs) != 0 {
		t.Error("busy Present should not touch the bus")
	}
}

func TestST7789TransportError(t *testing.T) {
	d, c := newTestST7789(ST7789Config{})
	want := errors.New("spi timeout")
	c.err = want
	if err := d.Present(render.NewFrame(render.Width, render.Height)); !errors.Is(err, want) {
		t.Errorf("got %v, want wrapped %v", err, want)
	}
}

func TestST7789Backlight(t *testing.T) {
	d, c := newTestST7789(ST7789Config{})
	pin := &fakePin{}
	d.bl = &pinBacklight{pin: pin, freq: physic.KiloHertz}

	d.SetBacklight(50)
	if pin.duty != gpio.DutyMax/2 || pin.freq != physic.KiloHertz {
		t.Errorf("PWM: duty=%d freq=%v", pin.duty, pin.freq)
	}

	d.SetBacklight(0)
	if pin.level != gpio.Low {
		t.Error("0% should drive the pin low")
	}
	if got := c.commands(); len(got) == 0 || got[len(got)-1] != cmdDISPOFF {
		t.Errorf("0%% should send DISPOFF, commands % x", got)
	}

	d.SetBacklight(100)
	if pin.level != gpio.High {
		t.Error("100% should drive the pin high")
	}
	if got := c.commands(); got[len(got)-1] != cmdDISPON {
		t.Errorf("re-enabling should send DISPON, commands % x", got)
	}
}

func TestST7789Close(t *testing.T) {
	d, _ := newTestST7789(ST7789Config{})
	pin := &fakePin{level: gpio.High}
	d.bl = &pinBacklight{pin: pin}

	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if pin.level != gpio.Low {
		t.Error("Close should switch the backlight off")
	}
	if err := d.Present(render.NewFrame(render.Width, render.Height)); !errors.Is(err, ErrClosed) {
		t.Errorf("after Close: got %v, want ErrClosed", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

type failingCloser struct{ err error }

func (c failingCloser) Close() error { return c.err }

func TestST7789CloseKeepsEveryError(t *testing.T) {
	errPin := errors.New("pin stuck")
	errPort := errors.New("spi gone")

	d, _ := newTestST7789(ST7789Config{})
	d.bl = &pinBacklight{pin: &fakePin{err: errPin}}
	d.port = failingCloser{err: errPort}

	err := d.Close()
	if !errors.Is(err, errPin) || !errors.Is(err, errPort) {
		t.Fatalf("Close() = %v, want both %v and %v", err, errPin, errPort)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
