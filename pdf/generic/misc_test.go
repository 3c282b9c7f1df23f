package generic

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestIsWhitespace(t *testing.T) {
	for _, b := range []byte{0x00, 0x09, 0x0A, 0x0C, 0x0D, 0x20} {
		if !IsWhitespace(b) {
			t.Errorf("IsWhitespace(0x%02X) = false, want true", b)
		}
	}
	for _, b := range []byte{'a', '0', '/', '('} {
		if IsWhitespace(b) {
			t.Errorf("IsWhitespace(%q) = true, want false", b)
		}
	}
}

func TestIsDelimiter(t *testing.T) {
	for _, b := range []byte{'(', ')', '<', '>', '[', ']', '{', '}', '/', '%'} {
		if !IsDelimiter(b) {
			t.Errorf("IsDelimiter(%q) = false, want true", b)
		}
		if IsRegularCharacter(b) {
			t.Errorf("IsRegularCharacter(%q) = true, want false", b)
		}
	}
	if !IsRegularCharacter('A') {
		t.Error("IsRegularCharacter('A') = false, want true")
	}
}

func TestReadUntilWhitespace(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxChars int
		want     string
	}{
		{"stops at space", "token rest", 100, "token"},
		{"bounded", "abcdefgh", 3, "abc"},
		{"eof", "token", 100, "token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadUntilWhitespace(strings.NewReader(tt.input), tt.maxChars)
			if err != nil {
				t.Fatalf("ReadUntilWhitespace() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("ReadUntilWhitespace() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChunkedWrite(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 10000)

	t.Run("full copy", func(t *testing.T) {
		var out bytes.Buffer
		if err := ChunkedWrite(bytes.NewReader(data), &out, 1024, 0); err != nil {
			t.Fatalf("ChunkedWrite() error = %v", err)
		}
		if !bytes.Equal(out.Bytes(), data) {
			t.Errorf("copied %d bytes, want %d", out.Len(), len(data))
		}
	})

	t.Run("bounded copy", func(t *testing.T) {
		var out bytes.Buffer
		if err := ChunkedWrite(bytes.NewReader(data), &out, 1024, 2500); err != nil {
			t.Fatalf("ChunkedWrite() error = %v", err)
		}
		if out.Len() != 2500 {
			t.Errorf("copied %d bytes, want 2500", out.Len())
		}
	})
}

func TestSeekableBufferWriteAndPatch(t *testing.T) {
	buf := NewSeekableBuffer()
	if _, err := buf.Write([]byte("hello world")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if buf.Len() != 11 {
		t.Fatalf("Len() = %d, want 11", buf.Len())
	}

	// Overwrite in the middle without growing.
	if _, err := buf.Seek(6, io.SeekStart); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	if _, err := buf.Write([]byte("WORLD")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := string(buf.Bytes()); got != "hello WORLD" {
		t.Errorf("Bytes() = %q, want %q", got, "hello WORLD")
	}
	if buf.Len() != 11 {
		t.Errorf("Len() after patch = %d, want 11", buf.Len())
	}

	// Appending past the end grows the buffer.
	if _, err := buf.Seek(0, io.SeekEnd); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	if _, err := buf.Write([]byte("!")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := string(buf.Bytes()); got != "hello WORLD!" {
		t.Errorf("Bytes() = %q, want %q", got, "hello WORLD!")
	}
}

func TestSeekableBufferSeekWhence(t *testing.T) {
	buf := NewSeekableBuffer()
	buf.Write([]byte("0123456789"))

	if pos, err := buf.Seek(-3, io.SeekEnd); err != nil || pos != 7 {
		t.Errorf("Seek(-3, End) = %d, %v, want 7, nil", pos, err)
	}
	if pos, err := buf.Seek(2, io.SeekCurrent); err != nil || pos != 9 {
		t.Errorf("Seek(2, Current) = %d, %v, want 9, nil", pos, err)
	}
	if _, err := buf.Seek(-1, io.SeekStart); err == nil {
		t.Error("Seek to a negative position should fail")
	}
}

func TestSeekableBufferRead(t *testing.T) {
	buf := NewSeekableBuffer()
	buf.Write([]byte("abcdef"))
	buf.Seek(2, io.SeekStart)

	out := make([]byte, 3)
	n, err := buf.Read(out)
	if err != nil || n != 3 || string(out) != "cde" {
		t.Errorf("Read() = %d, %v, %q", n, err, out[:n])
	}

	buf.Seek(0, io.SeekEnd)
	if _, err := buf.Read(out); err != io.EOF {
		t.Errorf("Read at end error = %v, want io.EOF", err)
	}
}

func TestPdfErrorUnwrap(t *testing.T) {
	readErr := NewPdfReadError("bad token")
	if readErr.Error() == "" {
		t.Error("Error() should not be empty")
	}
	writeErr := NewPdfWriteError("short write")
	if writeErr.Error() == "" {
		t.Error("Error() should not be empty")
	}
}
