// Package writer serializes a COS object graph into the exact byte stream
// of a PDF file: header, indirect objects, cross-reference table and
// trailer, with support for incremental updates and digital signature
// placeholders.
package writer

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/georgepadayatti/pdfcos/pdf/generic"
)

// Common errors
var (
	// ErrNoSecurityHandler is returned when the trailer carries /Encrypt
	// but no security handler is configured and security is not being
	// stripped. Detected before any bytes are written.
	ErrNoSecurityHandler = errors.New("document is encrypted but no security handler is set")

	// ErrWriteInProgress is returned when a write is started on a writer
	// that is already driving one.
	ErrWriteInProgress = errors.New("write already in progress")

	// ErrMissingRoot is returned when the trailer has no /Root entry.
	ErrMissingRoot = errors.New("trailer has no /Root entry")

	// ErrByteRangeTooSmall is returned when the formatted /ByteRange
	// array does not fit the placeholder the caller reserved.
	ErrByteRangeTooSmall = errors.New("formatted /ByteRange does not fit reserved placeholder")

	// ErrSignatureTooLarge is returned when a signature payload exceeds
	// the reserved /Contents width.
	ErrSignatureTooLarge = errors.New("signature payload exceeds reserved /Contents width")

	// ErrNoSignaturePlaceholder is returned when signing was requested
	// but no /Sig or /DocTimeStamp dictionary was found in the graph.
	ErrNoSignaturePlaceholder = errors.New("no signature dictionary found in document")

	// ErrNotPrepared is returned when external-signing calls arrive
	// before the buffer has been prepared.
	ErrNotPrepared = errors.New("external signing not prepared")

	// ErrAlreadySigned is returned when an external signature is
	// supplied twice.
	ErrAlreadySigned = errors.New("external signature already written")
)

// SecurityHandler encrypts strings and stream payloads before they are
// serialized. Implementations are external collaborators; the writer only
// needs the two transforms and the fact that a handler exists.
type SecurityHandler interface {
	EncryptString(data []byte, key generic.ObjectKey) ([]byte, error)
	EncryptStream(data []byte, key generic.ObjectKey) ([]byte, error)
}

// SignatureInterface computes a signature over the document bytes not
// covered by the /Contents placeholder. The reader yields exactly the
// ranges described by the patched /ByteRange array.
type SignatureInterface interface {
	Sign(data io.Reader) ([]byte, error)
}

// Document is the caller-owned object graph handed to the writer: a
// trailer-like dictionary whose /Root, /Info and /Encrypt entries anchor
// the traversal.
type Document struct {
	// Version is the PDF (or FDF) version written into the header.
	Version string

	// FDF selects the %FDF- header instead of %PDF-.
	FDF bool

	// Trailer is the root of the object graph.
	Trailer *generic.DictionaryObject

	// SecurityHandler encrypts output when the trailer carries /Encrypt.
	SecurityHandler SecurityHandler

	// RemoveSecurity strips the /Encrypt entry instead of encrypting.
	RemoveSecurity bool
}

// DefaultVersion is used when a document does not set one.
const DefaultVersion = "1.4"

// NewDocument creates an empty document with an empty trailer.
func NewDocument() *Document {
	return &Document{
		Version: DefaultVersion,
		Trailer: generic.NewDictionary(),
	}
}

// Root returns the trailer's /Root entry.
func (d *Document) Root() generic.PdfObject {
	return d.Trailer.Get(generic.NameRoot)
}

// FormatPdfDate formats a time as a PDF date string (D:YYYYMMDDHHmmSS
// with timezone offset).
func FormatPdfDate(t time.Time) string {
	_, offset := t.Zone()
	offsetHours := offset / 3600
	offsetMinutes := (offset % 3600) / 60

	sign := "+"
	if offset < 0 {
		sign = "-"
		offsetHours = -offsetHours
		offsetMinutes = -offsetMinutes
	}

	return fmt.Sprintf("D:%04d%02d%02d%02d%02d%02d%s%02d'%02d'",
		t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(),
		sign, offsetHours, offsetMinutes)
}
