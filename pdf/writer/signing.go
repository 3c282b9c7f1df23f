package writer

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// WriteSigned serializes the document, patches the /ByteRange array of
// the signature dictionary found during emission, hands the bytes not
// covered by the /Contents placeholder to the signer and patches the
// hex-encoded result into the placeholder before flushing.
func (w *DocumentWriter) WriteSigned(doc *Document, signer SignatureInterface) error {
	if signer == nil {
		return w.Write(doc)
	}

	if err := w.begin(doc, true); err != nil {
		return err
	}
	if err := w.writeDocument(); err != nil {
		w.reset()
		return err
	}
	if err := w.patchByteRange(); err != nil {
		w.reset()
		return err
	}

	signature, err := signer.Sign(w.dataToSign())
	if err != nil {
		w.reset()
		return fmt.Errorf("sign document: %w", err)
	}
	if err := w.patchContents(signature); err != nil {
		w.reset()
		return err
	}
	return w.flush()
}

// ExternalSigningSupport drives the two-phase external signing protocol:
// the caller reads the data to sign, computes a signature out of band and
// supplies it through WriteSignature, which patches the placeholder and
// performs the final copy to the destination.
type ExternalSigningSupport struct {
	w       *DocumentWriter
	exposed bool
	signed  bool
}

// WriteForExternalSigning serializes the document into the patch buffer,
// fills in /ByteRange and stops short of signing. The returned support
// object completes the write once a signature exists.
func (w *DocumentWriter) WriteForExternalSigning(doc *Document) (*ExternalSigningSupport, error) {
	if err := w.begin(doc, true); err != nil {
		return nil, err
	}
	if err := w.writeDocument(); err != nil {
		w.reset()
		return nil, err
	}
	if err := w.patchByteRange(); err != nil {
		w.reset()
		return nil, err
	}
	return &ExternalSigningSupport{w: w}, nil
}

// DataToSign returns the byte stream covered by the signature: the
// original file's bytes and the buffered bytes, excluding the /Contents
// placeholder span.
func (e *ExternalSigningSupport) DataToSign() (io.Reader, error) {
	if e.w.state != stateTrailerWritten {
		return nil, ErrNotPrepared
	}
	e.exposed = true
	return e.w.dataToSign(), nil
}

// WriteSignature patches the externally computed signature into the
// reserved /Contents region and flushes original plus buffered bytes to
// the destination.
func (e *ExternalSigningSupport) WriteSignature(signature []byte) error {
	if e.signed {
		return ErrAlreadySigned
	}
	if e.w.state != stateTrailerWritten {
		return ErrNotPrepared
	}
	if err := e.w.patchContents(signature); err != nil {
		return err
	}
	e.signed = true
	return e.w.flush()
}

// patchByteRange computes the four ByteRange integers once the final file
// length is known and writes their literal text over the placeholder that
// was emitted during dictionary writing, padding unused reserved width
// with spaces.
func (w *DocumentWriter) patchByteRange() error {
	if w.signatureLength == 0 || w.byteRangeLength == 0 {
		return ErrNoSignaturePlaceholder
	}

	sigStart := w.signatureOffset
	sigEnd := w.signatureOffset + w.signatureLength
	fileLen := w.out.Position()

	text := fmt.Sprintf("[0 %d %d %d]", sigStart, sigEnd, fileLen-sigEnd)
	if uint64(len(text)) > w.byteRangeLength {
		return fmt.Errorf("%w: need %d bytes, reserved %d",
			ErrByteRangeTooSmall, len(text), w.byteRangeLength)
	}
	padded := text + strings.Repeat(" ", int(w.byteRangeLength)-len(text))

	return w.patchBuffer(w.byteRangeOffset, []byte(padded))
}

// patchContents hex-encodes the signature and writes it just after the
// opening < of the reserved placeholder. The closing > and any unused
// placeholder bytes stay in place.
func (w *DocumentWriter) patchContents(signature []byte) error {
	hexSig := strings.ToUpper(hex.EncodeToString(signature))
	reserved := w.signatureLength - 2
	if uint64(len(hexSig)) > reserved {
		return fmt.Errorf("%w: need %d bytes, reserved %d",
			ErrSignatureTooLarge, len(hexSig), reserved)
	}
	return w.patchBuffer(w.signatureOffset+1, []byte(hexSig))
}

// patchBuffer overwrites bytes at a final-file offset inside the patch
// buffer. Offsets below the original file length are unreachable: only
// buffered bytes are ever patched.
func (w *DocumentWriter) patchBuffer(offset uint64, data []byte) error {
	if _, err := w.buf.Seek(int64(offset-w.originalLen), io.SeekStart); err != nil {
		return err
	}
	_, err := w.buf.Write(data)
	return err
}

// dataToSign concatenates the signed ranges: everything before the
// /Contents placeholder (original file bytes plus the buffer prefix) and
// everything after it.
func (w *DocumentWriter) dataToSign() io.Reader {
	bufBytes := w.buf.Bytes()
	bufStart := w.signatureOffset - w.originalLen
	bufEnd := bufStart + w.signatureLength

	readers := make([]io.Reader, 0, 3)
	if w.source != nil {
		readers = append(readers, io.NewSectionReader(w.source, 0, int64(w.originalLen)))
	}
	readers = append(readers,
		bytes.NewReader(bufBytes[:bufStart]),
		bytes.NewReader(bufBytes[bufEnd:]),
	)
	return io.MultiReader(readers...)
}
