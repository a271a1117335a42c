package max7219

import (
	"errors"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3"
)

// MAX7219 register addresses.
const (
	regNoop        = 0x00
	regDigit0      = 0x01 // Rows 0-7 are digit registers 0x01-0x08
	regDecodeMode  = 0x09
	regIntensity   = 0x0A
	regScanLimit   = 0x0B
	regShutdown    = 0x0C
	regDisplayTest = 0x0F
)

// TransportError reports a frame that the connection failed to send.
type TransportError struct {
	Row int  // Local row of the frame, or -1 for a control register write
	Reg byte // Register addressed by the frame
	Err error
}

func (e *TransportError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("max7219: writing register 0x%02X: %v", e.Reg, e.Err)
	}
	return fmt.Sprintf("max7219: sending row %d: %v", e.Row, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Encoder packs grid rows into daisy-chain command frames and sends them.
//
// A frame holds one (register, value) byte pair per module, in row-major
// module order, so every frame is exactly 2*modules bytes long. The frame
// buffer is allocated once and reused for every send.
type Encoder struct {
	c          conn.Conn
	cols, rows int
	frame      []byte
	log        *slog.Logger
}

// NewEncoder returns an encoder for a chain of cols×rows modules on c.
// log may be nil.
func NewEncoder(c conn.Conn, cols, rows int, log *slog.Logger) *Encoder {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Encoder{
		c:     c,
		cols:  cols,
		rows:  rows,
		frame: make([]byte, 2*cols*rows),
		log:   log,
	}
}

// FrameLen returns the length of every frame sent by e.
func (e *Encoder) FrameLen() int {
	return len(e.frame)
}

// EncodeRow builds the frame for local row of g.
//
// Modules in bands with a pending change on row are addressed with the row's
// digit register; the others keep the no-op pair and ignore the frame. The
// returned slice is owned by e and overwritten by the next call.
//
// g must have the module layout e was created for.
func (e *Encoder) EncodeRow(g *Grid, row int) ([]byte, error) {
	if err := e.checkLayout(g); err != nil {
		return nil, err
	}
	for i := range e.frame {
		e.frame[i] = regNoop
	}
	for band := 0; band < g.rows; band++ {
		if !g.dirty.IsBandDirty(band, row) {
			continue
		}
		for col := 0; col < g.cols; col++ {
			i := band*g.cols + col
			e.frame[2*i] = regDigit0 + byte(row)
			e.frame[2*i+1] = packRow(&g.modules[i], row)
		}
	}
	return e.frame, nil
}

// Flush sends every dirty row of g, in ascending order, and clears the rows
// that were sent.
//
// A row whose send fails stays dirty so the next Flush retries it; the
// remaining rows are still attempted. All failures are returned joined, each
// as a *TransportError.
func (e *Encoder) Flush(g *Grid) error {
	if err := e.checkLayout(g); err != nil {
		return err
	}
	var errs []error
	for row := 0; row < ModuleSize; row++ {
		if !g.dirty.IsDirty(row) {
			continue
		}
		frame, err := e.EncodeRow(g, row)
		if err != nil {
			return err
		}
		if err := e.c.Tx(frame, nil); err != nil {
			e.log.Warn("max7219: row not sent", "row", row, "err", err)
			errs = append(errs, &TransportError{Row: row, Reg: regDigit0 + byte(row), Err: err})
			continue
		}
		g.dirty.ClearRow(row)
		e.log.Debug("max7219: row sent", "row", row, "bytes", len(frame))
	}
	return errors.Join(errs...)
}

func (e *Encoder) checkLayout(g *Grid) error {
	if g.cols != e.cols || g.rows != e.rows {
		return fmt.Errorf("max7219: grid has %dx%d modules, encoder drives %dx%d", g.cols, g.rows, e.cols, e.rows)
	}
	return nil
}

// Broadcast writes val to register reg of every module in the chain.
func (e *Encoder) Broadcast(reg, val byte) error {
	for i := 0; i < len(e.frame); i += 2 {
		e.frame[i] = reg
		e.frame[i+1] = val
	}
	if err := e.c.Tx(e.frame, nil); err != nil {
		return &TransportError{Row: -1, Reg: reg, Err: err}
	}
	e.log.Debug("max7219: register written", "reg", reg, "val", val)
	return nil
}

// packRow returns the digit register value for local row of m.
// The chip shows bit 0 on the rightmost column, so bit col holds the pixel
// at local column 7-col.
func packRow(m *module, row int) byte {
	var b byte
	for col := 0; col < ModuleSize; col++ {
		if m[row][ModuleSize-1-col] {
			b |= 1 << col
		}
	}
	return b
}
