package max7219

import (
	"errors"
	"io"

	"periph.io/x/conn/v3"
)

// WriterConn adapts an io.Writer, such as an opened spidev node or a dump
// file, to a write-only conn.Conn.
type WriterConn struct {
	w    io.Writer
	name string
}

// NewWriterConn returns a connection writing every frame to w.
func NewWriterConn(w io.Writer, name string) *WriterConn {
	return &WriterConn{w: w, name: name}
}

// String implements conn.Conn.
func (c *WriterConn) String() string {
	return c.name
}

// Tx implements conn.Conn. r must be empty. A write that accepts fewer bytes
// than len(w) fails with io.ErrShortWrite.
func (c *WriterConn) Tx(w, r []byte) error {
	if len(r) != 0 {
		return errors.New("max7219: WriterConn is write-only")
	}
	n, err := c.w.Write(w)
	if err != nil {
		return err
	}
	if n != len(w) {
		return io.ErrShortWrite
	}
	return nil
}

// Duplex implements conn.Conn.
func (c *WriterConn) Duplex() conn.Duplex {
	return conn.Half
}

var _ conn.Conn = &WriterConn{}
