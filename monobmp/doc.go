// Package monobmp reads and writes uncompressed 1 bit per pixel BMP images,
// the format used to prepare artwork for MAX7219 LED matrix panels.
//
// File layout:
//
//	Offset  Size  Field
//	0       2     Signature "BM"
//	2       4     File size
//	6       4     Reserved
//	10      4     Raster offset
//	14      4     Info header size (40 for BITMAPINFOHEADER)
//	18      4     Width
//	22      4     Height
//	26      2     Planes
//	28      2     Bits per pixel (must be 1)
//	30      4     Compression (must be 0)
//	34      4     Image size
//	...           Rest of the info header, palette
//	offset        Raster
//
// The raster is stored bottom-up: the first raster row is the bottom row of
// the image. Each row is padded to a multiple of 4 bytes, so a 32 pixel wide
// image uses 4 bytes per row and a 33 pixel wide one uses 8. The most
// significant bit of a byte is the leftmost pixel. The palette is not
// consulted: a set bit is on.
//
// Example usage:
//
//	f, _ := os.Open("logo.bmp")
//	defer f.Close()
//
//	dec := monobmp.NewDecoder(f)
//	hdr, err := dec.DecodeHeader()
//	if err != nil {
//		return err
//	}
//	if hdr.Width != 32 || hdr.Height != 8 {
//		return errors.New("wrong size")
//	}
//	img, err := dec.Decode()
//	if err != nil {
//		return err
//	}
//	on := img.BitAt(0, 0) // Top left pixel
package monobmp
