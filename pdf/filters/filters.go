// Package filters implements the stream filters needed on the write
// side: FlateDecode, ASCIIHexDecode and RunLengthDecode.
package filters

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// Common errors
var (
	ErrUnsupportedFilter = errors.New("unsupported filter")
	ErrDecodeFailed      = errors.New("decode failed")
)

// Filter encodes and decodes a stream payload.
type Filter interface {
	// Encode encodes the data.
	Encode(data []byte) ([]byte, error)
	// Decode decodes the data.
	Decode(data []byte) ([]byte, error)
	// Name returns the /Filter name.
	Name() string
}

// Flate implements the FlateDecode filter (zlib compression).
type Flate struct{}

// Name implements Filter.
func (Flate) Name() string { return "FlateDecode" }

// Encode implements Filter.
func (Flate) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("flate encode failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("flate encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode implements Filter.
func (Flate) Decode(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	defer r.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return buf.Bytes(), nil
}

// ASCIIHex implements the ASCIIHexDecode filter.
type ASCIIHex struct{}

// Name implements Filter.
func (ASCIIHex) Name() string { return "ASCIIHexDecode" }

// Encode implements Filter.
func (ASCIIHex) Encode(data []byte) ([]byte, error) {
	out := make([]byte, hex.EncodedLen(len(data))+1)
	hex.Encode(out, data)
	out[len(out)-1] = '>'
	return out, nil
}

// Decode implements Filter.
func (ASCIIHex) Decode(data []byte) ([]byte, error) {
	// Whitespace is allowed anywhere; '>' terminates the data.
	cleaned := make([]byte, 0, len(data))
	for _, b := range data {
		if b == '>' {
			break
		}
		switch b {
		case ' ', '\t', '\r', '\n', '\f', 0:
			continue
		}
		cleaned = append(cleaned, b)
	}
	// An odd final digit is treated as if followed by zero.
	if len(cleaned)%2 == 1 {
		cleaned = append(cleaned, '0')
	}

	out := make([]byte, hex.DecodedLen(len(cleaned)))
	if _, err := hex.Decode(out, cleaned); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return out, nil
}

// RunLength implements the RunLengthDecode filter.
type RunLength struct{}

// Name implements Filter.
func (RunLength) Name() string { return "RunLengthDecode" }

// Encode implements Filter.
func (RunLength) Encode(data []byte) ([]byte, error) {
	var out bytes.Buffer
	i := 0
	for i < len(data) {
		// Count a run of identical bytes.
		run := 1
		for i+run < len(data) && run < 128 && data[i+run] == data[i] {
			run++
		}
		if run >= 2 {
			out.WriteByte(byte(257 - run))
			out.WriteByte(data[i])
			i += run
			continue
		}

		// Collect a literal stretch up to the next run of 3 or more.
		start := i
		for i < len(data) && i-start < 128 {
			if i+2 < len(data) && data[i] == data[i+1] && data[i] == data[i+2] {
				break
			}
			i++
		}
		out.WriteByte(byte(i - start - 1))
		out.Write(data[start:i])
	}
	out.WriteByte(128) // EOD
	return out.Bytes(), nil
}

// Decode implements Filter.
func (RunLength) Decode(data []byte) ([]byte, error) {
	var out bytes.Buffer
	i := 0
	for i < len(data) {
		length := int(data[i])
		i++
		if length == 128 {
			break
		}
		if length < 128 {
			end := i + length + 1
			if end > len(data) {
				return nil, fmt.Errorf("%w: literal run past end of data", ErrDecodeFailed)
			}
			out.Write(data[i:end])
			i = end
			continue
		}
		if i >= len(data) {
			return nil, fmt.Errorf("%w: replicated run past end of data", ErrDecodeFailed)
		}
		for j := 0; j < 257-length; j++ {
			out.WriteByte(data[i])
		}
		i++
	}
	return out.Bytes(), nil
}

// Get returns the filter registered under name.
func Get(name string) (Filter, error) {
	switch name {
	case "FlateDecode", "Fl":
		return Flate{}, nil
	case "ASCIIHexDecode", "AHx":
		return ASCIIHex{}, nil
	case "RunLengthDecode", "RL":
		return RunLength{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, name)
	}
}
