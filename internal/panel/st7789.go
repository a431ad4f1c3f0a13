package panel

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/sweeney/agent-panel/internal/render"
)

// ST7789 command set (subset).
const (
	cmdSWRESET = 0x01
	cmdSLPOUT  = 0x11
	cmdNORON   = 0x13
	cmdINVON   = 0x21
	cmdDISPOFF = 0x28
	cmdDISPON  = 0x29
	cmdCASET   = 0x2a
	cmdRASET   = 0x2b
	cmdRAMWR   = 0x2c
	cmdMADCTL  = 0x36
	cmdCOLMOD  = 0x3a

	colmod16bit = 0x55
	// MADCTL for landscape: row/column exchange plus X mirror.
	madctlLandscape = 0x60
)

// maxChunk bounds a single SPI transaction; spidev rejects larger ones by default.
const maxChunk = 4096

// ST7789Config describes the wiring of an ST7789 panel.
type ST7789Config struct {
	SPIPort        string
	SPISpeed       physic.Frequency
	DCPin          string
	ResetPin       string
	BacklightPin   string
	BacklightPWM   physic.Frequency
	BacklightSysfs string
	ColumnOffset   int
	RowOffset      int
	Invert         bool
}

// DefaultST7789Config matches a 1.9" 170×320 module mounted landscape.
func DefaultST7789Config() ST7789Config {
	return ST7789Config{
		SPIPort:      "SPI0.0",
		SPISpeed:     40 * physic.MegaHertz,
		DCPin:        "GPIO25",
		ResetPin:     "GPIO24",
		BacklightPin: "GPIO18",
		BacklightPWM: physic.KiloHertz,
		RowOffset:    35,
		Invert:       true,
	}
}

type txConn interface {
	Tx(w, r []byte) error
}

type levelPin interface {
	Out(l gpio.Level) error
}

// ST7789 presents frames over SPI with a separate data/command line.
type ST7789 struct {
	mu     sync.Mutex
	conn   txConn
	port   io.Closer
	dc     levelPin
	rst    levelPin
	bl     BacklightSetter
	cfg    ST7789Config
	maxTx  int
	sleep  func(time.Duration)
	closed bool
	off    bool
}

// OpenST7789 initialises the host drivers, opens the SPI port and pins and
// runs the panel init sequence.
func OpenST7789(cfg ST7789Config) (*ST7789, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", cfg.SPIPort, err)
	}
	c, err := port.Connect(cfg.SPISpeed, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("connect spi: %w", err)
	}

	dc := gpioreg.ByName(cfg.DCPin)
	if dc == nil {
		port.Close()
		return nil, fmt.Errorf("dc pin %q not found", cfg.DCPin)
	}

	d := newST7789(c, dc, cfg)
	d.port = port
	if lim, ok := c.(conn.Limits); ok {
		if n := lim.MaxTxSize(); n > 0 && n < d.maxTx {
			d.maxTx = n
		}
	}
	if cfg.ResetPin != "" {
		if p := gpioreg.ByName(cfg.ResetPin); p != nil {
			d.rst = p
		}
	}
	switch {
	case cfg.BacklightPin != "":
		p := gpioreg.ByName(cfg.BacklightPin)
		if p == nil {
			port.Close()
			return nil, fmt.Errorf("backlight pin %q not found", cfg.BacklightPin)
		}
		d.bl = &pinBacklight{pin: p, freq: cfg.BacklightPWM}
	case cfg.BacklightSysfs != "":
		bl, err := OpenSysfsBacklight(cfg.BacklightSysfs)
		if err != nil {
			port.Close()
			return nil, err
		}
		d.bl = bl
	}

	if err := d.init(); err != nil {
		port.Close()
		return nil, err
	}
	return d, nil
}

func newST7789(c txConn, dc levelPin, cfg ST7789Config) *ST7789 {
	return &ST7789{
		conn:  c,
		dc:    dc,
		cfg:   cfg,
		maxTx: maxChunk,
		sleep: time.Sleep,
	}
}

type initStep struct {
	cmd   byte
	data  []byte
	delay time.Duration
}

func (d *ST7789) init() error {
	if d.rst != nil {
		for _, step := range []struct {
			l gpio.Level
			d time.Duration
		}{{gpio.High, 10 * time.Millisecond}, {gpio.Low, 10 * time.Millisecond}, {gpio.High, 120 * time.Millisecond}} {
			if err := d.rst.Out(step.l); err != nil {
				return fmt.Errorf("reset panel: %w", err)
			}
			d.sleep(step.d)
		}
	}

	seq := []initStep{
		{cmdSWRESET, nil, 150 * time.Millisecond},
		{cmdSLPOUT, nil, 120 * time.Millisecond},
		{cmdCOLMOD, []byte{colmod16bit}, 10 * time.Millisecond},
		{cmdMADCTL, []byte{madctlLandscape}, 0},
	}
	if d.cfg.Invert {
		seq = append(seq, initStep{cmdINVON, nil, 0})
	}
	seq = append(seq,
		initStep{cmdNORON, nil, 10 * time.Millisecond},
		initStep{cmdDISPON, nil, 20 * time.Millisecond},
	)
	for _, s := range seq {
		if err := d.command(s.cmd, s.data...); err != nil {
			return fmt.Errorf("panel init 0x%02x: %w", s.cmd, err)
		}
		if s.delay > 0 {
			d.sleep(s.delay)
		}
	}
	return nil
}

func (d *ST7789) command(cmd byte, data ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.conn.Tx([]byte{cmd}, nil); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return d.data(data)
}

func (d *ST7789) data(b []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(b) > 0 {
		n := min(len(b), d.maxTx)
		if err := d.conn.Tx(b[:n], nil); err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func (d *ST7789) setWindow(x0, y0, x1, y1 int) error {
	x0 += d.cfg.ColumnOffset
	x1 += d.cfg.ColumnOffset
	y0 += d.cfg.RowOffset
	y1 += d.cfg.RowOffset
	if err := d.command(cmdCASET, byte(x0>>8), byte(x0), byte(x1>>8), byte(x1)); err != nil {
		return err
	}
	return d.command(cmdRASET, byte(y0>>8), byte(y0), byte(y1>>8), byte(y1))
}

// Present writes f to panel RAM. It returns ErrBusy rather than queueing
// behind a transfer already in progress.
func (d *ST7789) Present(f *render.Frame) error {
	if !d.mu.TryLock() {
		return ErrBusy
	}
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if f.Width != render.Width || f.Height != render.Height {
		return fmt.Errorf("frame is %dx%d, panel is %dx%d", f.Width, f.Height, render.Width, render.Height)
	}
	if err := d.setWindow(0, 0, f.Width-1, f.Height-1); err != nil {
		return fmt.Errorf("set window: %w", err)
	}
	if err := d.command(cmdRAMWR); err != nil {
		return fmt.Errorf("ramwr: %w", err)
	}
	if err := d.data(f.Pix); err != nil {
		return fmt.Errorf("write pixels: %w", err)
	}
	return nil
}

// SetBacklight drives the backlight. At 0 percent the panel is also switched
// off so it stops scanning; any other level switches it back on.
func (d *ST7789) SetBacklight(percent uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if off := percent == 0; off != d.off {
		cmd := byte(cmdDISPON)
		if off {
			cmd = cmdDISPOFF
		}
		if err := d.command(cmd); err != nil {
			return fmt.Errorf("display power: %w", err)
		}
		d.off = off
	}
	if d.bl == nil {
		return nil
	}
	return d.bl.SetBacklight(percent)
}

// Close turns the backlight off and releases the SPI port.
func (d *ST7789) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	if d.bl != nil {
		if err := d.bl.SetBacklight(0); err != nil {
			errs = append(errs, fmt.Errorf("backlight off: %w", err))
		}
	}
	if d.port != nil {
		if err := d.port.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close spi: %w", err))
		}
	}
	return errors.Join(errs...)
}

// pinBacklight drives a backlight enable pin, using PWM for partial levels.
type pinBacklight struct {
	pin  pwmPin
	freq physic.Frequency
}

type pwmPin interface {
	Out(l gpio.Level) error
	PWM(duty gpio.Duty, f physic.Frequency) error
}

func (p *pinBacklight) SetBacklight(percent uint8) error {
	switch {
	case percent == 0:
		return p.pin.Out(gpio.Low)
	case percent >= MaxPercent || p.freq == 0:
		return p.pin.Out(gpio.High)
	}
	duty := gpio.DutyMax * gpio.Duty(percent) / MaxPercent
	if err := p.pin.PWM(duty, p.freq); err != nil {
		return fmt.Errorf("backlight pwm: %w", err)
	}
	return nil
}
