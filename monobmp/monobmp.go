// Package monobmp reads and writes uncompressed 1 bit per pixel BMP images.
package monobmp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const (
	fileHeaderLen    = 14
	infoHeaderMinLen = 24   // Size through image size
	infoHeaderMaxLen = 1024 // Larger than any defined BMP info header
	encodeInfoLen    = 40   // BITMAPINFOHEADER
	paletteLen       = 8    // Two BGRA entries
	maxRasterLen     = 64 << 20
)

var (
	// ErrTruncated means the input ended inside a header.
	ErrTruncated = errors.New("monobmp: truncated input")
	// ErrInvalidFormat means the input is not a well-formed BMP.
	ErrInvalidFormat = errors.New("monobmp: invalid format")
	// ErrUnsupported means the input is a BMP this package cannot decode.
	ErrUnsupported = errors.New("monobmp: unsupported format")
)

// Header holds the file and info header fields.
type Header struct {
	FileSize     uint32
	DataOffset   uint32 // Offset of the raster from the start of the file
	InfoSize     uint32
	Width        int32
	Height       int32 // Negative for top-down images
	Planes       uint16
	BitsPerPixel uint16
	Compression  uint32
	ImageSize    uint32
}

// Stride returns the padded length of one raster row in bytes.
func (h Header) Stride() int {
	return (int(h.Width) + 31) / 32 * 4
}

type state int

const (
	stateHeader state = iota
	stateRaster
	stateDone
	stateFailed
)

// Decoder reads a BMP from a stream in two steps: DecodeHeader, which lets the
// caller inspect the dimensions, and Decode, which reads the raster.
type Decoder struct {
	r     io.Reader
	h     Header
	n     int64 // Bytes consumed
	state state
	err   error
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// DecodeHeader reads the file and info headers. It may be called more than
// once; later calls return the first result.
func (d *Decoder) DecodeHeader() (Header, error) {
	if d.state == stateHeader {
		if err := d.readHeaders(); err != nil {
			d.fail(err)
		} else {
			d.state = stateRaster
		}
	}
	return d.h, d.err
}

// Decode reads the raster, reading the headers first if needed.
func (d *Decoder) Decode() (*Image, error) {
	if _, err := d.DecodeHeader(); err != nil {
		return nil, err
	}
	if d.state != stateRaster {
		return nil, errors.New("monobmp: raster already decoded")
	}
	img, err := d.readRaster()
	if err != nil {
		d.fail(err)
		return nil, err
	}
	d.state = stateDone
	return img, nil
}

// Decode reads a whole 1 bpp BMP from r.
func Decode(r io.Reader) (*Image, error) {
	return NewDecoder(r).Decode()
}

func (d *Decoder) fail(err error) {
	d.state = stateFailed
	d.err = err
}

func (d *Decoder) readHeaders() error {
	var fh [fileHeaderLen]byte
	if err := d.readFull(fh[:], "file header"); err != nil {
		return err
	}
	if fh[0] != 'B' || fh[1] != 'M' {
		return fmt.Errorf("%w: bad signature %q", ErrInvalidFormat, fh[:2])
	}
	le := binary.LittleEndian
	d.h.FileSize = le.Uint32(fh[2:])
	d.h.DataOffset = le.Uint32(fh[10:])

	var size [4]byte
	if err := d.readFull(size[:], "info header"); err != nil {
		return err
	}
	d.h.InfoSize = le.Uint32(size[:])
	if d.h.InfoSize < infoHeaderMinLen || d.h.InfoSize > infoHeaderMaxLen {
		return fmt.Errorf("%w: info header size %d", ErrInvalidFormat, d.h.InfoSize)
	}
	info := make([]byte, d.h.InfoSize-4)
	if err := d.readFull(info, "info header"); err != nil {
		return err
	}
	d.h.Width = int32(le.Uint32(info[0:]))
	d.h.Height = int32(le.Uint32(info[4:]))
	d.h.Planes = le.Uint16(info[8:])
	d.h.BitsPerPixel = le.Uint16(info[10:])
	d.h.Compression = le.Uint32(info[12:])
	d.h.ImageSize = le.Uint32(info[16:])
	return nil
}

func (d *Decoder) readRaster() (*Image, error) {
	h := d.h
	if h.BitsPerPixel != 1 {
		return nil, fmt.Errorf("%w: %d bits per pixel", ErrUnsupported, h.BitsPerPixel)
	}
	if h.Compression != 0 {
		return nil, fmt.Errorf("%w: compression %d", ErrUnsupported, h.Compression)
	}
	if h.Width <= 0 || h.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d image", ErrUnsupported, h.Width, h.Height)
	}
	stride := h.Stride()
	size := int64(stride) * int64(h.Height)
	if size > maxRasterLen {
		return nil, fmt.Errorf("%w: %dx%d image is too large", ErrUnsupported, h.Width, h.Height)
	}
	if int64(h.DataOffset) < d.n {
		return nil, fmt.Errorf("%w: data offset %d inside the headers", ErrInvalidFormat, h.DataOffset)
	}
	if h.FileSize != 0 && int64(h.DataOffset)+size > int64(h.FileSize) {
		return nil, fmt.Errorf("%w: raster of %d bytes at %d exceeds file size %d", ErrInvalidFormat, size, h.DataOffset, h.FileSize)
	}
	if skip := int64(h.DataOffset) - d.n; skip > 0 {
		n, err := io.CopyN(io.Discard, d.r, skip)
		d.n += n
		if err != nil {
			return nil, rasterErr(err, "data offset past end of input")
		}
	}
	pix := make([]byte, size)
	n, err := io.ReadFull(d.r, pix)
	d.n += int64(n)
	if err != nil {
		return nil, rasterErr(err, "raster data truncated")
	}
	return &Image{
		Pix:    pix,
		Stride: stride,
		Rect:   image.Rect(0, 0, int(h.Width), int(h.Height)),
	}, nil
}

func (d *Decoder) readFull(b []byte, what string) error {
	n, err := io.ReadFull(d.r, b)
	d.n += int64(n)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %s", ErrTruncated, what)
	}
	if err != nil {
		return fmt.Errorf("monobmp: reading %s: %w", what, err)
	}
	return nil
}

// rasterErr maps a short read past the headers to ErrInvalidFormat: the
// headers promised data that is not there.
func rasterErr(err error, msg string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %s", ErrInvalidFormat, msg)
	}
	return fmt.Errorf("monobmp: reading raster: %w", err)
}

// Image is a decoded 1 bpp raster, kept in file order (bottom-up, padded).
type Image struct {
	Pix    []byte          // Raster rows, last image row first
	Stride int             // Bytes per raster row
	Rect   image.Rectangle // Image bounds
}

// NewImage returns an all-off image with the given bounds.
func NewImage(r image.Rectangle) *Image {
	stride := (r.Dx() + 31) / 32 * 4
	return &Image{
		Pix:    make([]byte, stride*r.Dy()),
		Stride: stride,
		Rect:   r,
	}
}

// ColorModel returns image1bit.BitModel.
func (p *Image) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds returns the image bounds.
func (p *Image) Bounds() image.Rectangle {
	return p.Rect
}

// At implements image.Image.
func (p *Image) At(x, y int) color.Color {
	return p.BitAt(x, y)
}

// BitAt returns the pixel at (x, y), where y = 0 is the top row.
func (p *Image) BitAt(x, y int) image1bit.Bit {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return image1bit.Off
	}
	offset, shift := p.bitOffset(x, y)
	return image1bit.Bit(p.Pix[offset]>>shift&1 != 0)
}

// SetBit sets the pixel at (x, y).
func (p *Image) SetBit(x, y int, b image1bit.Bit) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	offset, shift := p.bitOffset(x, y)
	if b {
		p.Pix[offset] |= 1 << shift
	} else {
		p.Pix[offset] &^= 1 << shift
	}
}

// Set implements draw.Image.
func (p *Image) Set(x, y int, c color.Color) {
	p.SetBit(x, y, image1bit.BitModel.Convert(c).(image1bit.Bit))
}

// bitOffset flips y into raster order: image row 0 is the last raster row.
func (p *Image) bitOffset(x, y int) (offset int, shift uint) {
	x -= p.Rect.Min.X
	row := p.Rect.Dy() - 1 - (y - p.Rect.Min.Y)
	offset = row*p.Stride + x/8
	shift = uint(7 - x%8)
	return
}

// Encode writes m as a 1 bpp BMP with a black and white palette. Colors are
// reduced with image1bit.BitModel.
func Encode(w io.Writer, m image.Image) error {
	b := m.Bounds()
	img, ok := m.(*Image)
	if !ok || b.Min != (image.Point{}) {
		img = NewImage(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				img.Set(x-b.Min.X, y-b.Min.Y, m.At(x, y))
			}
		}
	}

	offset := fileHeaderLen + encodeInfoLen + paletteLen
	hdr := make([]byte, offset)
	le := binary.LittleEndian
	hdr[0], hdr[1] = 'B', 'M'
	le.PutUint32(hdr[2:], uint32(offset+len(img.Pix)))
	le.PutUint32(hdr[10:], uint32(offset))
	info := hdr[fileHeaderLen:]
	le.PutUint32(info[0:], encodeInfoLen)
	le.PutUint32(info[4:], uint32(img.Rect.Dx()))
	le.PutUint32(info[8:], uint32(img.Rect.Dy()))
	le.PutUint16(info[12:], 1)
	le.PutUint16(info[14:], 1)
	le.PutUint32(info[20:], uint32(len(img.Pix)))
	le.PutUint32(info[32:], 2) // Colors used
	// Palette entry 0 stays black; entry 1 is white.
	copy(hdr[fileHeaderLen+encodeInfoLen+4:], []byte{0xFF, 0xFF, 0xFF, 0x00})

	if _, err := w.Write(hdr); err != nil {
		return err
	}
	_, err := w.Write(img.Pix)
	return err
}
