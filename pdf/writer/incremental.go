package writer

import (
	"fmt"
	"io"

	"github.com/jonboulle/clockwork"

	"github.com/georgepadayatti/pdfcos/pdf/generic"
	"github.com/georgepadayatti/pdfcos/pdf/reader"
)

// SourceFile is the random-access view of the original file an
// incremental update appends to.
type SourceFile interface {
	io.ReaderAt
	Size() int64
}

// NewIncrementalWriter creates a writer that appends an update section to
// the original file in source, leaving its bytes untouched. The source's
// classic xref chain is scanned up front to seed object numbering past
// the highest number already in use and to locate the previous xref
// section for the /Prev trailer entry.
func NewIncrementalWriter(out io.Writer, source SourceFile) (*DocumentWriter, error) {
	prev, err := reader.ScanPrevious(source)
	if err != nil {
		return nil, fmt.Errorf("scan original file: %w", err)
	}

	return &DocumentWriter{
		dest:          out,
		clock:         clockwork.NewRealClock(),
		incremental:   true,
		source:        source,
		originalLen:   uint64(source.Size()),
		prevStartXRef: prev.StartXRef,
		seedNumber:    prev.MaxObjectNumber,
	}, nil
}

// flush completes a write call. Buffered modes copy the original file
// first and then append the buffered section, so the output's prefix is
// byte-identical to the original; the straight-through path has nothing
// left to do.
func (w *DocumentWriter) flush() error {
	defer w.reset()

	if w.buf == nil {
		w.state = stateDone
		return nil
	}

	if w.source != nil {
		original := io.NewSectionReader(w.source, 0, int64(w.originalLen))
		if err := generic.ChunkedWrite(original, w.dest, generic.DefaultChunkSize, 0); err != nil {
			return err
		}
	}
	if _, err := w.dest.Write(w.buf.Bytes()); err != nil {
		return err
	}
	w.state = stateDone
	return nil
}

// reset returns the writer to the idle state so it can serve another
// write call. Bookkeeping from the finished pass is discarded.
func (w *DocumentWriter) reset() {
	w.state = stateIdle
	w.doc = nil
	w.willEncrypt = false
	w.keys = nil
	w.toWrite = nil
	w.written = nil
	w.queued = nil
	w.actualsAdded = nil
	w.buf = nil
	w.out = nil
}
