package writer

import (
	"bytes"
	"testing"
)

func TestCountingWriterPosition(t *testing.T) {
	var buf bytes.Buffer
	w := NewCountingWriter(&buf, 0)

	if err := w.WriteString("hello"); err != nil {
		t.Fatalf("WriteString() error = %v", err)
	}
	if w.Position() != 5 {
		t.Errorf("Position() = %d, want 5", w.Position())
	}
	if err := w.WriteByte(' '); err != nil {
		t.Fatalf("WriteByte() error = %v", err)
	}
	if err := w.WriteCRLF(); err != nil {
		t.Fatalf("WriteCRLF() error = %v", err)
	}
	if w.Position() != 8 {
		t.Errorf("Position() = %d, want 8", w.Position())
	}
	if got := buf.String(); got != "hello \r\n" {
		t.Errorf("output = %q, want %q", got, "hello \r\n")
	}
}

func TestCountingWriterStartOffset(t *testing.T) {
	var buf bytes.Buffer
	w := NewCountingWriter(&buf, 1000)

	w.WriteString("abc")
	if w.Position() != 1003 {
		t.Errorf("Position() = %d, want 1003", w.Position())
	}
	if buf.Len() != 3 {
		t.Errorf("buffer holds %d bytes, want 3", buf.Len())
	}
}

func TestCountingWriterEOLSuppression(t *testing.T) {
	var buf bytes.Buffer
	w := NewCountingWriter(&buf, 0)

	// Nothing written yet counts as being on a fresh line.
	w.WriteEOL()
	if buf.Len() != 0 {
		t.Errorf("WriteEOL on a fresh line wrote %d bytes", buf.Len())
	}

	w.WriteString("x")
	w.WriteEOL()
	w.WriteEOL()
	if got := buf.String(); got != "x\n" {
		t.Errorf("output = %q, want %q", got, "x\n")
	}

	// WriteLF is unconditional.
	w.WriteLF()
	if got := buf.String(); got != "x\n\n" {
		t.Errorf("output = %q, want %q", got, "x\n\n")
	}
}
