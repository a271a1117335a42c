// Package max7219 drives a panel of daisy-chained MAX7219 8x8 LED matrices.
//
// See doc.go for wiring and usage.
package max7219

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"log/slog"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// ErrHalted is returned by operations on a device after Halt.
var ErrHalted = errors.New("max7219: halted")

// MaxIntensity is the brightest intensity level.
const MaxIntensity = 0x0F

// Opts is the configuration for a MAX7219 panel.
type Opts struct {
	// Panel layout in modules
	Cols int // Module columns (default: 4)
	Rows int // Module rows (default: 1)

	Intensity byte // Brightness 0-15 (default: 1)

	// SPI clock used by NewSPI (default: 1MHz, must be ≤10MHz)
	Hz physic.Frequency

	// Optional logger, nil to disable logging
	Logger *slog.Logger
}

// DefaultOpts is the reference 32x8 panel of four modules in a row.
var DefaultOpts = Opts{
	Cols:      4,
	Rows:      1,
	Intensity: 1,
	Hz:        physic.MegaHertz,
}

func (o *Opts) validate() error {
	if o.Cols <= 0 || o.Rows <= 0 {
		return fmt.Errorf("max7219: invalid module layout %dx%d", o.Cols, o.Rows)
	}
	if o.Intensity > MaxIntensity {
		return fmt.Errorf("max7219: intensity %d out of range 0-%d", o.Intensity, MaxIntensity)
	}
	if o.Hz < 0 || o.Hz > 10*physic.MegaHertz {
		return fmt.Errorf("max7219: SPI clock %s out of range 0-10MHz", o.Hz)
	}
	return nil
}

// Dev is the device handle for a MAX7219 panel.
//
// Dev is not safe for concurrent use; callers sharing a panel must serialize
// drawing and flushing themselves.
type Dev struct {
	c    conn.Conn
	grid *Grid
	enc  *Encoder
	log  *slog.Logger

	halted bool
}

// NewSPI connects to a MAX7219 chain on an SPI port and initializes it.
//
// The port is configured for opts.Hz (1MHz if zero), Mode0, 8-bit transfers.
// opts can be nil to use DefaultOpts.
func NewSPI(p spi.Port, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	hz := opts.Hz
	if hz == 0 {
		hz = physic.MegaHertz
	}
	c, err := p.Connect(hz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("max7219: %w", err)
	}
	return New(c, opts)
}

// New returns a panel driven through c and initializes it.
//
// Initialization takes every chip out of shutdown and blanks all of its rows.
// opts can be nil to use DefaultOpts; opts.Hz is ignored.
func New(c conn.Conn, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	g, err := NewGrid(opts.Cols, opts.Rows)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	d := &Dev{
		c:    c,
		grid: g,
		enc:  NewEncoder(c, opts.Cols, opts.Rows, log),
		log:  log,
	}
	if err := d.init(opts); err != nil {
		return nil, err
	}
	log.Info("max7219: panel ready", "conn", c.String(), "modules", g.Modules(), "width", g.Width(), "height", g.Height())
	return d, nil
}

// init sends the power-up sequence to every chip in the chain.
func (d *Dev) init(opts *Opts) error {
	cmds := [][2]byte{
		{regScanLimit, 0x07},  // Scan all 8 rows
		{regDecodeMode, 0x00}, // Raw segments, no BCD decode
		{regIntensity, opts.Intensity},
		{regShutdown, 0x01},    // Normal operation
		{regDisplayTest, 0x00}, // Test mode off
	}
	for _, cmd := range cmds {
		if err := d.enc.Broadcast(cmd[0], cmd[1]); err != nil {
			return err
		}
	}
	// Row registers are undefined after power-up.
	d.grid.Invalidate()
	return d.enc.Flush(d.grid)
}

// Grid returns the pixel buffer. Changes made through it are sent by Flush.
func (d *Dev) Grid() *Grid {
	return d.grid
}

// SetPixel sets the pixel at (x, y) in the buffer. Call Flush to show it.
func (d *Dev) SetPixel(x, y int, v image1bit.Bit) error {
	if d.halted {
		return ErrHalted
	}
	return d.grid.SetPixel(x, y, v)
}

// Pixel returns the buffered pixel at (x, y).
func (d *Dev) Pixel(x, y int) (image1bit.Bit, error) {
	return d.grid.Pixel(x, y)
}

// Clear turns every pixel off in the buffer. Call Flush to show it.
func (d *Dev) Clear() error {
	if d.halted {
		return ErrHalted
	}
	d.grid.Clear()
	return nil
}

// LoadBMP replaces the buffer with a 1 bpp BMP of exactly the panel size.
// Call Flush to show it.
func (d *Dev) LoadBMP(r io.Reader) error {
	if d.halted {
		return ErrHalted
	}
	if err := d.grid.ImportBMP(r); err != nil {
		return err
	}
	d.log.Debug("max7219: bitmap loaded", "dirty", d.grid.Dirty().Count())
	return nil
}

// Flush sends the rows changed since the last successful flush.
func (d *Dev) Flush() error {
	if d.halted {
		return ErrHalted
	}
	return d.enc.Flush(d.grid)
}

// ColorModel returns image1bit.BitModel.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds returns the panel bounds.
func (d *Dev) Bounds() image.Rectangle {
	return d.grid.Bounds()
}

// Draw draws src onto the panel and flushes the rows that changed.
// Colors are reduced to on and off by image1bit.BitModel.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted {
		return ErrHalted
	}
	dst = dst.Intersect(d.grid.Bounds())
	if dst.Empty() {
		return nil
	}
	draw.Draw(d.grid, dst, src, sp, draw.Src)
	return d.enc.Flush(d.grid)
}

// SetIntensity sets the brightness of every module, 0 to MaxIntensity.
func (d *Dev) SetIntensity(level byte) error {
	if d.halted {
		return ErrHalted
	}
	if level > MaxIntensity {
		return fmt.Errorf("max7219: intensity %d out of range 0-%d", level, MaxIntensity)
	}
	return d.enc.Broadcast(regIntensity, level)
}

// DisplayTest turns display test mode on or off. In test mode every LED is
// lit regardless of the row registers.
func (d *Dev) DisplayTest(on bool) error {
	if d.halted {
		return ErrHalted
	}
	return d.enc.Broadcast(regDisplayTest, boolByte(on))
}

// Shutdown blanks the chips without losing their row registers, or wakes them.
func (d *Dev) Shutdown(off bool) error {
	if d.halted {
		return ErrHalted
	}
	return d.enc.Broadcast(regShutdown, boolByte(!off))
}

// Halt clears the panel and puts every chip in shutdown.
//
// After Halt succeeds, the device does not accept further operations. If a
// write fails the device stays usable and Halt can be called again to resend
// the rows that did not go out.
func (d *Dev) Halt() error {
	if d.halted {
		return nil
	}
	d.grid.Clear()
	err := d.enc.Flush(d.grid)
	if err = errors.Join(err, d.enc.Broadcast(regShutdown, 0x00)); err != nil {
		return err
	}
	d.halted = true
	return nil
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("max7219.Dev{%dx%d}", d.grid.Width(), d.grid.Height())
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

var _ display.Drawer = &Dev{}
