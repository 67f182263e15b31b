package console

import (
	"fmt"

	"tock/libtock/abi"
)

// Printer formats text into a fixed buffer sized for one console write.
type Printer struct {
	buf [BufferSize]byte
	n   int
}

// Write appends p. It fails with ErrSize, appending nothing, if p does not fit.
func (p *Printer) Write(b []byte) (int, error) {
	if len(b) > len(p.buf)-p.n {
		return 0, abi.ErrSize
	}
	copy(p.buf[p.n:], b)
	p.n += len(b)
	return len(b), nil
}

// Printf appends formatted text.
func (p *Printer) Printf(format string, args ...any) error {
	_, err := fmt.Fprintf(p, format, args...)
	return err
}

// Bytes returns the formatted text.
func (p *Printer) Bytes() []byte { return p.buf[:p.n] }

// Len returns the number of formatted bytes.
func (p *Printer) Len() int { return p.n }

// Reset empties the printer.
func (p *Printer) Reset() { p.n = 0 }
