package max7219

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"periph.io/x/conn/v3"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// shortWriter accepts at most n bytes per write.
type shortWriter struct {
	n int
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(p) > w.n {
		return w.n, nil
	}
	return len(p), nil
}

func TestWriterConn(t *testing.T) {
	var buf bytes.Buffer
	c := NewWriterConn(&buf, "dump")
	if c.String() != "dump" {
		t.Errorf("String() = %q, want %q", c.String(), "dump")
	}
	if c.Duplex() != conn.Half {
		t.Errorf("Duplex() = %v, want %v", c.Duplex(), conn.Half)
	}
	if err := c.Tx([]byte{0x01, 0x02}, nil); err != nil {
		t.Fatal(err)
	}
	if err := c.Tx([]byte{0x03}, make([]byte, 1)); err == nil {
		t.Error("Tx() with a read buffer should fail")
	}
	if got, want := buf.Bytes(), []byte{0x01, 0x02}; !bytes.Equal(got, want) {
		t.Errorf("written = %x, want %x", got, want)
	}
}

func TestWriterConnShortWrite(t *testing.T) {
	c := NewWriterConn(&shortWriter{n: 3}, "short")
	if err := c.Tx(make([]byte, 8), nil); !errors.Is(err, io.ErrShortWrite) {
		t.Errorf("Tx() error = %v, want io.ErrShortWrite", err)
	}
}

func TestFlushShortWrite(t *testing.T) {
	g, err := NewGrid(4, 1)
	if err != nil {
		t.Fatal(err)
	}
	enc := NewEncoder(NewWriterConn(&shortWriter{n: 4}, "short"), 4, 1, nil)
	if err := g.SetPixel(9, 2, image1bit.On); err != nil {
		t.Fatal(err)
	}
	err = enc.Flush(g)
	var te *TransportError
	if !errors.As(err, &te) || te.Row != 2 {
		t.Fatalf("Flush() error = %v, want *TransportError for row 2", err)
	}
	if !errors.Is(err, io.ErrShortWrite) {
		t.Errorf("Flush() error = %v, want wrapping io.ErrShortWrite", err)
	}
	if !g.Dirty().IsDirty(2) {
		t.Error("row 2 should stay dirty after a short write")
	}
}

func TestDevOverWriterConn(t *testing.T) {
	var buf bytes.Buffer
	dev, err := New(NewWriterConn(&buf, "dump"), &Opts{Cols: 1, Rows: 1, Intensity: 3})
	if err != nil {
		t.Fatal(err)
	}
	var want []byte
	for _, op := range initOps(1, 3) {
		want = append(want, op.W...)
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("init wrote %x, want %x", buf.Bytes(), want)
	}

	buf.Reset()
	if err := dev.SetPixel(0, 0, image1bit.On); err != nil {
		t.Fatal(err)
	}
	if err := dev.Flush(); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.Bytes(), []byte{0x01, 0x80}; !bytes.Equal(got, want) {
		t.Errorf("flush wrote %x, want %x", got, want)
	}
}
