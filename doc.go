// Package max7219 controls a chain of MAX7219 8x8 LED matrix modules via SPI.
//
// The MAX7219 is a serial LED driver with eight digit registers. On a matrix
// module each digit register holds one row of eight LEDs. Modules are
// daisy-chained: the data shifted into the first module falls out of its DOUT
// pin into the next one, and all of them latch when chip select goes high.
// This driver implements the display.Drawer interface from periph.io.
//
// # Panel Characteristics
//
// - 1 bit per pixel, every LED is either on or off
// - Any number of modules arranged in columns and rows (bands)
// - Adjustable intensity (0-15), shared by every module
// - Display test mode that lights every LED
// - Shutdown mode that keeps the register contents
//
// # Hardware Connection
//
// Connect the first module to your system via SPI:
//
//	Module Pin → System Pin
//	GND        → GND
//	VCC        → 5V
//	DIN        → SPI Data (MOSI)
//	CS         → SPI Chip Select
//	CLK        → SPI Clock (SCLK)
//
// Wire DOUT of each module to DIN of the next one. CS and CLK are shared.
//
// # Chain Order
//
// Modules are numbered in row-major order: the first band left to right, then
// the next band. Module 0 holds pixels (0,0) to (7,7). The frame for one
// update holds a (register, value) pair per module, with the pair for module
// 0 first.
//
// # Basic Usage
//
// Example of creating and using the panel:
//
//	package main
//
//	import (
//		"periph.io/x/conn/v3/spi/spireg"
//		"periph.io/x/devices/v3/ssd1306/image1bit"
//		"periph.io/x/host/v3"
//		"github.com/flavioheleno/max7219"
//	)
//
//	func main() {
//		// Initialize periph.io
//		host.Init()
//
//		// Open SPI bus
//		spiBus, _ := spireg.Open("")
//
//		// Create a panel of four modules in one band
//		dev, _ := max7219.NewSPI(spiBus, &max7219.Opts{
//			Cols:      4,
//			Rows:      1,
//			Intensity: 2,
//		})
//		defer dev.Halt()
//
//		// Draw a diagonal
//		for i := 0; i < 8; i++ {
//			dev.SetPixel(i, i, image1bit.On)
//		}
//
//		// Send the changed rows
//		dev.Flush()
//	}
//
// # Partial Updates
//
// SetPixel only marks a row dirty when the stored value actually changes.
// Flush sends one frame per dirty row, in ascending row order. Bands that did
// not change on that row receive a NOOP so their registers are left alone.
//
// A row whose frame fails to reach the panel stays dirty and is retried on the
// next Flush. Flush still tries the remaining rows and returns every failure
// as a *TransportError.
//
// # Bitmaps
//
// LoadBMP replaces the whole panel with an uncompressed 1 bpp BMP of exactly
// the panel size. The file is decoded completely before any pixel changes, so
// a bad file leaves the panel as it was:
//
//	f, _ := os.Open("logo.bmp")
//	defer f.Close()
//	if err := dev.LoadBMP(f); err != nil {
//		// *DimensionMismatchError or a monobmp error
//	}
//	dev.Flush()
//
// Set bits are lit regardless of the palette. See package monobmp for the
// decoder.
//
// # Testing Without Hardware
//
// New accepts any conn.Conn. WriterConn adapts an io.Writer, which is handy to
// inspect frames:
//
//	dev, _ := max7219.New(max7219.NewWriterConn(os.Stdout, "stdout"), nil)
//
// # Datasheet
//
// For detailed register descriptions and timing information, see:
// https://www.analog.com/media/en/technical-documentation/data-sheets/MAX7219-MAX7221.pdf
//
// # Compatibility with periph.io
//
// This driver implements the display.Drawer interface from periph.io:
// https://pkg.go.dev/periph.io/x/conn/v3/display
//
// It can be used with any periph.io tool or library expecting a display.Drawer.
package max7219
