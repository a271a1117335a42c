package max7219

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// ModuleSize is the edge length, in pixels, of one MAX7219 LED matrix.
const ModuleSize = 8

// ErrOutOfRange is returned when a pixel coordinate falls outside the grid.
var ErrOutOfRange = errors.New("max7219: pixel out of range")

// module holds the pixels of one 8x8 matrix, indexed [localY][localX].
type module [ModuleSize][ModuleSize]image1bit.Bit

// Grid is the logical pixel buffer of a panel made of chained modules.
//
// Modules are laid out in bands: each band is one row of modules, and module
// (col, band) covers pixels x in [8*col, 8*col+8) and y in [8*band, 8*band+8).
// The zero value is not usable; use NewGrid.
type Grid struct {
	cols, rows int
	modules    []module // Row-major: band*cols + col
	dirty      DirtyRows
}

// NewGrid returns an all-off grid of cols×rows modules with no pending rows.
func NewGrid(cols, rows int) (*Grid, error) {
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("max7219: invalid module layout %dx%d", cols, rows)
	}
	return &Grid{
		cols:    cols,
		rows:    rows,
		modules: make([]module, cols*rows),
		dirty:   newDirtyRows(rows),
	}, nil
}

// Cols returns the number of module columns.
func (g *Grid) Cols() int { return g.cols }

// Rows returns the number of module rows (bands).
func (g *Grid) Rows() int { return g.rows }

// Modules returns the number of modules in the chain.
func (g *Grid) Modules() int { return len(g.modules) }

// Width returns the grid width in pixels.
func (g *Grid) Width() int { return g.cols * ModuleSize }

// Height returns the grid height in pixels.
func (g *Grid) Height() int { return g.rows * ModuleSize }

// Dirty returns the set of local rows waiting to be flushed.
func (g *Grid) Dirty() *DirtyRows { return &g.dirty }

// SetPixel sets the pixel at (x, y).
//
// The local row of the pixel is marked dirty only when the stored value
// actually changes, so repeated writes of the same value cost nothing at the
// next flush.
func (g *Grid) SetPixel(x, y int, v image1bit.Bit) error {
	if err := g.check(x, y); err != nil {
		return err
	}
	g.set(x, y, v)
	return nil
}

// Pixel returns the pixel at (x, y).
func (g *Grid) Pixel(x, y int) (image1bit.Bit, error) {
	if err := g.check(x, y); err != nil {
		return image1bit.Off, err
	}
	m := &g.modules[(y/ModuleSize)*g.cols+x/ModuleSize]
	return m[y%ModuleSize][x%ModuleSize], nil
}

// Clear turns every pixel off.
func (g *Grid) Clear() {
	g.Fill(image1bit.Off)
}

// Fill sets every pixel to v.
func (g *Grid) Fill(v image1bit.Bit) {
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			g.set(x, y, v)
		}
	}
}

// Invalidate marks every row of every band dirty, forcing the next flush to
// resend the whole panel.
func (g *Grid) Invalidate() {
	g.dirty.markAll()
}

// ColorModel implements image.Image.
func (g *Grid) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements image.Image.
func (g *Grid) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width(), g.Height())
}

// At implements image.Image. Points outside the grid are off.
func (g *Grid) At(x, y int) color.Color {
	v, _ := g.Pixel(x, y)
	return v
}

// Set implements draw.Image. Like the standard library images, points
// outside the grid are ignored; use SetPixel to get an error instead.
func (g *Grid) Set(x, y int, c color.Color) {
	if g.check(x, y) != nil {
		return
	}
	g.set(x, y, image1bit.BitModel.Convert(c).(image1bit.Bit))
}

func (g *Grid) check(x, y int) error {
	if x < 0 || x >= g.Width() || y < 0 || y >= g.Height() {
		return fmt.Errorf("%w: (%d, %d) not in %dx%d", ErrOutOfRange, x, y, g.Width(), g.Height())
	}
	return nil
}

// set assumes (x, y) is inside the grid.
func (g *Grid) set(x, y int, v image1bit.Bit) {
	band, ly := y/ModuleSize, y%ModuleSize
	m := &g.modules[band*g.cols+x/ModuleSize]
	if m[ly][x%ModuleSize] == v {
		return
	}
	m[ly][x%ModuleSize] = v
	g.dirty.mark(band, ly)
}

// DirtyRows tracks which local rows (0-7) changed since the last flush.
//
// Flags are kept per band so a flush can leave bands without changes out of
// the frame. The row-level methods look at all bands at once, which is the
// granularity a frame is sent at: one frame carries one register for every
// module in the chain.
type DirtyRows struct {
	bands []uint8 // Bit r set: local row r changed in that band
}

func newDirtyRows(bands int) DirtyRows {
	return DirtyRows{bands: make([]uint8, bands)}
}

// IsDirty reports whether local row has pending changes in any band.
func (d *DirtyRows) IsDirty(row int) bool {
	if uint(row) >= ModuleSize {
		return false
	}
	for _, b := range d.bands {
		if b&(1<<row) != 0 {
			return true
		}
	}
	return false
}

// IsBandDirty reports whether local row has pending changes in band.
func (d *DirtyRows) IsBandDirty(band, row int) bool {
	if uint(row) >= ModuleSize || uint(band) >= uint(len(d.bands)) {
		return false
	}
	return d.bands[band]&(1<<row) != 0
}

// MarkDirty marks local row dirty in every band.
func (d *DirtyRows) MarkDirty(row int) {
	if uint(row) >= ModuleSize {
		return
	}
	for i := range d.bands {
		d.bands[i] |= 1 << row
	}
}

// ClearRow clears local row in every band.
func (d *DirtyRows) ClearRow(row int) {
	if uint(row) >= ModuleSize {
		return
	}
	for i := range d.bands {
		d.bands[i] &^= 1 << row
	}
}

// Count returns how many local rows are dirty.
func (d *DirtyRows) Count() int {
	n := 0
	for row := 0; row < ModuleSize; row++ {
		if d.IsDirty(row) {
			n++
		}
	}
	return n
}

func (d *DirtyRows) mark(band, row int) {
	d.bands[band] |= 1 << row
}

func (d *DirtyRows) markAll() {
	for i := range d.bands {
		d.bands[i] = 0xFF
	}
}
