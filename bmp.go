package max7219

import (
	"fmt"
	"image"
	"io"

	"github.com/flavioheleno/max7219/monobmp"
)

// DimensionMismatchError is returned when a bitmap does not have exactly the
// size of the grid it is imported into.
type DimensionMismatchError struct {
	Got  image.Point // Bitmap width and height as stored in the file
	Want image.Point // Grid width and height
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("max7219: bitmap is %dx%d, grid is %dx%d", e.Got.X, e.Got.Y, e.Want.X, e.Want.Y)
}

// ImportBMP copies a 1 bpp BMP read from r into the grid.
//
// The bitmap must match the grid size exactly. The whole raster is decoded
// before any pixel is written, so a failed import leaves the grid untouched.
// Decode failures wrap monobmp.ErrTruncated, monobmp.ErrInvalidFormat or
// monobmp.ErrUnsupported.
//
// ImportBMP does not flush; changed rows are left dirty for the caller.
func (g *Grid) ImportBMP(r io.Reader) error {
	dec := monobmp.NewDecoder(r)
	hdr, err := dec.DecodeHeader()
	if err != nil {
		return err
	}
	got := image.Pt(int(hdr.Width), int(hdr.Height))
	if want := g.Bounds().Size(); got != want {
		return &DimensionMismatchError{Got: got, Want: want}
	}
	img, err := dec.Decode()
	if err != nil {
		return err
	}
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			g.set(x, y, img.BitAt(x, y))
		}
	}
	return nil
}
