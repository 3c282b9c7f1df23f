package generic

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// DefaultChunkSize is the default chunk size for stream I/O.
const DefaultChunkSize = 4096

// PDF character classes
var (
	// PDFWhitespace contains all PDF whitespace characters.
	PDFWhitespace = []byte(" \n\r\t\f\x00")

	// PDFDelimiters contains all PDF delimiter characters.
	PDFDelimiters = []byte("()<>[]{}/%")
)

// PdfError is the base error type for PDF operations.
type PdfError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *PdfError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *PdfError) Unwrap() error {
	return e.Cause
}

// PdfReadError represents an error while scanning an existing PDF.
type PdfReadError struct {
	PdfError
}

// NewPdfReadError creates a new PdfReadError.
func NewPdfReadError(msg string) *PdfReadError {
	return &PdfReadError{PdfError: PdfError{Message: msg}}
}

// PdfWriteError represents an error during PDF writing.
type PdfWriteError struct {
	PdfError
}

// NewPdfWriteError creates a new PdfWriteError.
func NewPdfWriteError(msg string) *PdfWriteError {
	return &PdfWriteError{PdfError: PdfError{Message: msg}}
}

// Common sentinel errors
var (
	ErrStreamEndedPrematurely = errors.New("stream ended prematurely")
)

// IsRegularCharacter returns true if the byte is a regular PDF character,
// i.e. neither whitespace nor a delimiter.
func IsRegularCharacter(b byte) bool {
	return !IsWhitespace(b) && !IsDelimiter(b)
}

// IsWhitespace returns true if the byte is a PDF whitespace character.
func IsWhitespace(b byte) bool {
	return bytes.IndexByte(PDFWhitespace, b) >= 0
}

// IsDelimiter returns true if the byte is a PDF delimiter character.
func IsDelimiter(b byte) bool {
	return bytes.IndexByte(PDFDelimiters, b) >= 0
}

// ReadUntilWhitespace reads non-whitespace characters until whitespace is
// encountered. maxChars <= 0 means unbounded.
func ReadUntilWhitespace(r io.Reader, maxChars int) ([]byte, error) {
	var result []byte
	buf := make([]byte, 1)

	for maxChars <= 0 || len(result) < maxChars {
		n, err := r.Read(buf)
		if err == io.EOF || n == 0 {
			return result, nil
		}
		if err != nil {
			return result, err
		}
		if IsWhitespace(buf[0]) {
			break
		}
		result = append(result, buf[0])
	}
	return result, nil
}

// ReadNonWhitespace finds and returns the next non-whitespace character,
// skipping comments. With seekBack the character stays unread.
func ReadNonWhitespace(r io.ReadSeeker, seekBack bool, allowEOF bool) (byte, error) {
	buf := make([]byte, 1)

	for {
		n, err := r.Read(buf)
		if err == io.EOF || n == 0 {
			if allowEOF {
				return 0, nil
			}
			return 0, ErrStreamEndedPrematurely
		}
		if err != nil {
			return 0, err
		}

		if IsWhitespace(buf[0]) {
			continue
		}

		if buf[0] == '%' {
			// Comment runs to end of line.
			for {
				n, err = r.Read(buf)
				if err == io.EOF || n == 0 {
					if allowEOF {
						return 0, nil
					}
					return 0, ErrStreamEndedPrematurely
				}
				if err != nil {
					return 0, err
				}
				if buf[0] == '\n' || buf[0] == '\r' {
					break
				}
			}
			continue
		}

		if seekBack {
			if _, err := r.Seek(-1, io.SeekCurrent); err != nil {
				return 0, err
			}
		}
		return buf[0], nil
	}
}

// SkipOverWhitespace skips whitespace, leaving the stream positioned at
// the first non-whitespace byte. Returns whether anything was skipped.
func SkipOverWhitespace(r io.ReadSeeker) (bool, error) {
	buf := make([]byte, 1)
	count := 0

	for {
		n, err := r.Read(buf)
		if err == io.EOF || n == 0 {
			return count > 0, nil
		}
		if err != nil {
			return count > 0, err
		}
		if !IsWhitespace(buf[0]) {
			if _, err := r.Seek(-1, io.SeekCurrent); err != nil {
				return count > 0, err
			}
			return count > 0, nil
		}
		count++
	}
}

// ChunkedWrite copies data from r to w in chunks of chunkSize. maxRead
// bounds the total number of bytes copied; <= 0 means until EOF.
func ChunkedWrite(r io.Reader, w io.Writer, chunkSize int, maxRead int) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := make([]byte, chunkSize)
	totalRead := 0

	for maxRead <= 0 || totalRead < maxRead {
		toRead := chunkSize
		if maxRead > 0 && totalRead+toRead > maxRead {
			toRead = maxRead - totalRead
		}

		n, err := r.Read(buf[:toRead])
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
			totalRead += n
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// SeekableBuffer is a growable, randomly-overwritable byte buffer. The
// incremental writer accumulates new bytes here so that ByteRange and
// Contents placeholders can be patched in place before the final flush.
type SeekableBuffer struct {
	buf    []byte
	pos    int
	length int
}

// NewSeekableBuffer creates a new seekable buffer.
func NewSeekableBuffer() *SeekableBuffer {
	return &SeekableBuffer{buf: make([]byte, 0, DefaultChunkSize)}
}

// Read implements io.Reader.
func (s *SeekableBuffer) Read(p []byte) (int, error) {
	if s.pos >= s.length {
		return 0, io.EOF
	}
	n := copy(p, s.buf[s.pos:s.length])
	s.pos += n
	return n, nil
}

// Write implements io.Writer, overwriting at the current position and
// growing the buffer as needed.
func (s *SeekableBuffer) Write(p []byte) (int, error) {
	needed := s.pos + len(p)
	if needed > len(s.buf) {
		newBuf := make([]byte, needed*2)
		copy(newBuf, s.buf)
		s.buf = newBuf
	}
	n := copy(s.buf[s.pos:], p)
	s.pos += n
	if s.pos > s.length {
		s.length = s.pos
	}
	return n, nil
}

// Seek implements io.Seeker.
func (s *SeekableBuffer) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = int64(s.pos) + offset
	case io.SeekEnd:
		newPos = int64(s.length) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if newPos < 0 {
		return 0, errors.New("negative position")
	}
	s.pos = int(newPos)
	return newPos, nil
}

// Bytes returns the buffer contents.
func (s *SeekableBuffer) Bytes() []byte {
	return s.buf[:s.length]
}

// Len returns the length of the data.
func (s *SeekableBuffer) Len() int {
	return s.length
}
