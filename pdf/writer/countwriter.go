package writer

import "io"

// Line terminators and separators used by the serializer.
var (
	eol   = []byte{'\n'}
	crlf  = []byte{'\r', '\n'}
	space = []byte{' '}
)

// CountingWriter wraps a byte sink and counts every byte written through
// it. The count is the single source of truth for xref offsets and
// signature byte ranges, so all serializer output goes through here.
type CountingWriter struct {
	out       io.Writer
	pos       uint64
	onNewLine bool
}

// NewCountingWriter wraps out, starting the position counter at start.
// Incremental updates pass the original file length so that positions are
// final-file offsets.
func NewCountingWriter(out io.Writer, start uint64) *CountingWriter {
	return &CountingWriter{out: out, pos: start, onNewLine: true}
}

// Position returns the number of bytes written so far, including the
// starting offset.
func (w *CountingWriter) Position() uint64 {
	return w.pos
}

// Write implements io.Writer.
func (w *CountingWriter) Write(p []byte) (int, error) {
	n, err := w.out.Write(p)
	w.pos += uint64(n)
	if n > 0 {
		w.onNewLine = p[n-1] == '\n'
	}
	return n, err
}

// WriteByte writes a single byte.
func (w *CountingWriter) WriteByte(b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

// WriteString writes a string.
func (w *CountingWriter) WriteString(s string) error {
	_, err := w.Write([]byte(s))
	return err
}

// WriteEOL writes a newline unless the last byte written already was one,
// so repeated calls produce at most one blank terminator.
func (w *CountingWriter) WriteEOL() error {
	if w.onNewLine {
		return nil
	}
	_, err := w.Write(eol)
	return err
}

// WriteLF writes a newline unconditionally.
func (w *CountingWriter) WriteLF() error {
	_, err := w.Write(eol)
	return err
}

// WriteCRLF writes a carriage return and newline.
func (w *CountingWriter) WriteCRLF() error {
	_, err := w.Write(crlf)
	return err
}

// WriteSpace writes a single space.
func (w *CountingWriter) WriteSpace() error {
	_, err := w.Write(space)
	return err
}
