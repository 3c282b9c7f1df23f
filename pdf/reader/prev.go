// Package reader provides the minimal view of an existing PDF file that
// an incremental update needs: the location of the last cross-reference
// section and the highest object number already in use. It follows the
// classic xref table chain only; it is not a PDF parser.
package reader

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/georgepadayatti/pdfcos/pdf/generic"
)

// Common errors
var (
	// ErrNoStartXRef is returned when no startxref marker is found near
	// the end of the file.
	ErrNoStartXRef = errors.New("no startxref marker found")

	// ErrXRefStreamUnsupported is returned when the startxref target is
	// a cross-reference stream (PDF 1.5+). Only classic tables are
	// supported; this fails loudly instead of guessing.
	ErrXRefStreamUnsupported = errors.New("cross-reference streams are not supported")
)

// Source is a random-access view of the original file.
type Source interface {
	io.ReaderAt
	Size() int64
}

// Previous describes what an incremental update needs to know about the
// file it appends to.
type Previous struct {
	// StartXRef is the byte offset of the last xref section, carried
	// into the update's /Prev trailer entry.
	StartXRef int64

	// MaxObjectNumber is the highest object number present in the xref
	// chain; new objects are numbered past it.
	MaxObjectNumber int

	// Root is the document catalog reference from the newest trailer
	// that carries one. An update that does not replace the catalog
	// points its own trailer at this key.
	Root *generic.ObjectKey

	// Info is the document information reference from the newest
	// trailer that carries one, if any.
	Info *generic.ObjectKey

	// ID is the first element of the /ID array from the newest trailer
	// that carries one. An update keeps it as its own first element so
	// the file identifier stays stable across revisions.
	ID []byte
}

const (
	// startXRefWindow bounds the tail scan for the startxref marker.
	startXRefWindow = 1024

	// trailerWindow bounds how far into a trailer dictionary the /Prev
	// and /Size entries are searched for.
	trailerWindow = 8192
)

var (
	prevRegex = regexp.MustCompile(`/Prev\s+(\d+)`)
	sizeRegex = regexp.MustCompile(`/Size\s+(\d+)`)
	rootRegex = regexp.MustCompile(`/Root\s+(\d+)\s+(\d+)\s+R`)
	infoRegex = regexp.MustCompile(`/Info\s+(\d+)\s+(\d+)\s+R`)
	idRegex   = regexp.MustCompile(`/ID\s*\[\s*<([0-9A-Fa-f]+)>`)
)

// ScanPrevious locates the startxref marker, walks the classic xref
// chain through /Prev links and reports the last section offset and the
// highest object number seen.
func ScanPrevious(src Source) (*Previous, error) {
	size := src.Size()

	start, err := findStartXRef(src, size)
	if err != nil {
		return nil, err
	}

	prev := &Previous{StartXRef: start}
	visited := make(map[int64]bool)
	offset := start

	for offset >= 0 && offset < size && !visited[offset] {
		visited[offset] = true
		next, maxObj, err := scanSection(src, offset, size, prev)
		if err != nil {
			return nil, err
		}
		if maxObj > prev.MaxObjectNumber {
			prev.MaxObjectNumber = maxObj
		}
		offset = next
	}

	return prev, nil
}

// findStartXRef reads the file tail and parses the offset following the
// last startxref marker.
func findStartXRef(src Source, size int64) (int64, error) {
	window := int64(startXRefWindow)
	if window > size {
		window = size
	}
	tail := make([]byte, window)
	if _, err := src.ReadAt(tail, size-window); err != nil && err != io.EOF {
		return 0, err
	}

	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, ErrNoStartXRef
	}

	rest := bytes.TrimLeft(tail[idx+len("startxref"):], " \r\n\t")
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, generic.NewPdfReadError("startxref is not followed by an offset")
	}
	offset, err := strconv.ParseInt(string(rest[:end]), 10, 64)
	if err != nil {
		return 0, generic.NewPdfReadError("malformed startxref offset")
	}
	return offset, nil
}

// scanSection reads one xref section at offset. It returns the /Prev
// offset of the next section in the chain (-1 when the chain ends) and
// the highest object number covered by this section. Trailer /Root,
// /Info and /ID values are recorded on prev when it has none yet, so the
// newest section in the chain wins.
func scanSection(src Source, offset, size int64, prev *Previous) (int64, int, error) {
	r := bufio.NewReader(io.NewSectionReader(src, offset, size-offset))

	token, err := readToken(r)
	if err != nil {
		return 0, 0, err
	}
	if token != "xref" {
		if len(token) > 0 && token[0] >= '0' && token[0] <= '9' {
			// An object header here means the xref lives in a stream.
			return 0, 0, ErrXRefStreamUnsupported
		}
		return 0, 0, generic.NewPdfReadError(fmt.Sprintf("expected xref keyword at offset %d, got %q", offset, token))
	}

	maxObj := 0
	for {
		token, err = readToken(r)
		if err != nil {
			return 0, 0, err
		}
		if token == "trailer" {
			break
		}

		first, err := strconv.Atoi(token)
		if err != nil {
			return 0, 0, generic.NewPdfReadError(fmt.Sprintf("malformed xref subsection header %q", token))
		}
		token, err = readToken(r)
		if err != nil {
			return 0, 0, err
		}
		count, err := strconv.Atoi(token)
		if err != nil {
			return 0, 0, generic.NewPdfReadError(fmt.Sprintf("malformed xref subsection count %q", token))
		}

		if count > 0 {
			if first+count-1 > maxObj {
				maxObj = first + count - 1
			}
			// Entries are fixed-width 20-byte records; skip the EOL
			// after the header first.
			if err := skipEOL(r); err != nil {
				return 0, 0, err
			}
			if _, err := io.CopyN(io.Discard, r, int64(count)*20); err != nil {
				return 0, 0, err
			}
		}
	}

	// Search the trailer dictionary text for /Prev and /Size.
	trailer := make([]byte, trailerWindow)
	n, err := io.ReadFull(r, trailer)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, 0, err
	}
	trailer = trailer[:n]
	if end := bytes.Index(trailer, []byte("startxref")); end >= 0 {
		trailer = trailer[:end]
	}

	if m := sizeRegex.FindSubmatch(trailer); m != nil {
		if sz, err := strconv.Atoi(string(m[1])); err == nil && sz-1 > maxObj {
			maxObj = sz - 1
		}
	}

	if prev.Root == nil {
		if key := matchKey(rootRegex, trailer); key != nil {
			prev.Root = key
		}
	}
	if prev.Info == nil {
		if key := matchKey(infoRegex, trailer); key != nil {
			prev.Info = key
		}
	}
	if prev.ID == nil {
		if m := idRegex.FindSubmatch(trailer); m != nil {
			if id, err := hex.DecodeString(string(m[1])); err == nil {
				prev.ID = id
			}
		}
	}

	next := int64(-1)
	if m := prevRegex.FindSubmatch(trailer); m != nil {
		if p, err := strconv.ParseInt(string(m[1]), 10, 64); err == nil {
			next = p
		}
	}
	return next, maxObj, nil
}

// matchKey parses an object reference matched by a trailer regex.
func matchKey(re *regexp.Regexp, trailer []byte) *generic.ObjectKey {
	m := re.FindSubmatch(trailer)
	if m == nil {
		return nil
	}
	num, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return nil
	}
	gen, err := strconv.Atoi(string(m[2]))
	if err != nil {
		return nil
	}
	return &generic.ObjectKey{Number: num, Generation: gen}
}

// readToken skips whitespace and comments, then reads one token.
func readToken(r *bufio.Reader) (string, error) {
	var token []byte
	started := false
	for {
		b, err := r.ReadByte()
		if err == io.EOF {
			if started {
				return string(token), nil
			}
			return "", generic.ErrStreamEndedPrematurely
		}
		if err != nil {
			return "", err
		}

		if generic.IsWhitespace(b) {
			if started {
				if err := r.UnreadByte(); err != nil {
					return "", err
				}
				return string(token), nil
			}
			continue
		}
		if b == '%' && !started {
			// Comment runs to end of line.
			if _, err := r.ReadString('\n'); err != nil && err != io.EOF {
				return "", err
			}
			continue
		}

		started = true
		token = append(token, b)
	}
}

// skipEOL consumes a single line ending (LF, CR or CRLF).
func skipEOL(r *bufio.Reader) error {
	b, err := r.ReadByte()
	if err != nil {
		return err
	}
	if b == '\r' {
		b, err = r.ReadByte()
		if err != nil {
			return err
		}
		if b != '\n' {
			return r.UnreadByte()
		}
		return nil
	}
	if b != '\n' {
		return r.UnreadByte()
	}
	return nil
}
