package writer

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"
	"golang.org/x/text/unicode/norm"

	"github.com/georgepadayatti/pdfcos/pdf/generic"
)

// writerState tracks the single pass a write call drives.
type writerState int

const (
	stateIdle writerState = iota
	stateHeaderWritten
	stateBodyWriting
	stateXRefWritten
	stateTrailerWritten
	stateDone
)

// headerGarbage is the high-bit comment that forces binary-aware tools to
// treat the file as binary.
var headerGarbage = []byte{0xF6, 0xE4, 0xFC, 0xDF}

// DocumentWriter serializes one object graph per Write call. It owns its
// numbering map, queue and bookkeeping sets for the duration of a call;
// the graph itself stays caller-owned. A writer must not drive two writes
// concurrently.
type DocumentWriter struct {
	dest  io.Writer
	out   *CountingWriter
	buf   *generic.SeekableBuffer // non-nil when buffering (incremental or signing)
	clock clockwork.Clock

	// incremental mode
	incremental   bool
	source        SourceFile
	originalLen   uint64
	prevStartXRef int64
	seedNumber    int

	state       writerState
	doc         *Document
	willEncrypt bool

	number       int
	keys         map[generic.PdfObject]generic.ObjectKey
	toWrite      []generic.PdfObject
	written      map[generic.PdfObject]bool
	queued       map[generic.PdfObject]bool
	actualsAdded map[generic.PdfObject]bool

	xref      []XRefEntry
	startXRef uint64

	// signature bookkeeping, final-file offsets, valid for one write call
	reachedSignature bool
	signatureOffset  uint64
	signatureLength  uint64
	byteRangeOffset  uint64
	byteRangeLength  uint64
}

// NewWriter creates a writer that serializes straight to out.
func NewWriter(out io.Writer) *DocumentWriter {
	return &DocumentWriter{
		dest:  out,
		clock: clockwork.NewRealClock(),
	}
}

// SetClock replaces the clock used for /ID generation. Tests inject a
// fake clock to get deterministic output.
func (w *DocumentWriter) SetClock(clock clockwork.Clock) {
	w.clock = clock
}

// begin validates the document and resets per-call state. No bytes have
// been written when begin returns an error.
func (w *DocumentWriter) begin(doc *Document, buffered bool) error {
	if w.state != stateIdle {
		return ErrWriteInProgress
	}
	if doc.Trailer == nil || doc.Trailer.Get(generic.NameRoot) == nil {
		return ErrMissingRoot
	}
	if doc.Version == "" {
		doc.Version = DefaultVersion
	}

	w.willEncrypt = false
	if doc.RemoveSecurity {
		doc.Trailer.Delete(generic.NameEncrypt)
	} else if doc.Trailer.Has(generic.NameEncrypt) {
		if doc.SecurityHandler == nil {
			return ErrNoSecurityHandler
		}
		w.willEncrypt = true
	}

	w.doc = doc
	w.number = w.seedNumber
	w.keys = make(map[generic.PdfObject]generic.ObjectKey)
	w.toWrite = nil
	w.written = make(map[generic.PdfObject]bool)
	w.queued = make(map[generic.PdfObject]bool)
	w.actualsAdded = make(map[generic.PdfObject]bool)
	w.xref = nil
	w.reachedSignature = false
	w.signatureOffset, w.signatureLength = 0, 0
	w.byteRangeOffset, w.byteRangeLength = 0, 0

	if buffered || w.incremental {
		w.buf = generic.NewSeekableBuffer()
		w.out = NewCountingWriter(w.buf, w.originalLen)
	} else {
		w.buf = nil
		w.out = NewCountingWriter(w.dest, 0)
	}

	w.prepareFileID()
	return nil
}

// Write serializes the document: header, body, xref table and trailer.
// In incremental mode the original file's bytes are copied first and the
// new section is appended, leaving the original prefix untouched.
func (w *DocumentWriter) Write(doc *Document) error {
	if err := w.begin(doc, false); err != nil {
		return err
	}
	if err := w.writeDocument(); err != nil {
		return err
	}
	return w.flush()
}

// writeDocument drives the state machine Idle through TrailerWritten.
func (w *DocumentWriter) writeDocument() error {
	if err := w.doWriteHeader(); err != nil {
		return err
	}
	if err := w.doWriteBody(); err != nil {
		return err
	}
	if err := w.doWriteXRefTable(); err != nil {
		return err
	}
	return w.doWriteTrailer()
}

// doWriteHeader emits the %PDF (or %FDF) header line and the binary
// comment. Skipped in incremental mode: the original file already starts
// with its own header.
func (w *DocumentWriter) doWriteHeader() error {
	if w.incremental {
		w.state = stateHeaderWritten
		return nil
	}

	marker := "%PDF-"
	if w.doc.FDF {
		marker = "%FDF-"
	}
	if err := w.out.WriteString(marker + w.doc.Version); err != nil {
		return err
	}
	if err := w.out.WriteCRLF(); err != nil {
		return err
	}
	if err := w.out.WriteByte('%'); err != nil {
		return err
	}
	if _, err := w.out.Write(headerGarbage); err != nil {
		return err
	}
	if err := w.out.WriteEOL(); err != nil {
		return err
	}
	w.state = stateHeaderWritten
	return nil
}

// doWriteBody seeds the queue with /Root and /Info, drains it, then runs
// a second pass for /Encrypt. The queue is the only place new objects are
// discovered, so a finite graph always terminates.
func (w *DocumentWriter) doWriteBody() error {
	w.state = stateBodyWriting

	if root := w.doc.Trailer.Get(generic.NameRoot); root != nil {
		w.addObjectToWrite(root)
	}
	if info := w.doc.Trailer.Get(generic.NameInfo); info != nil {
		w.addObjectToWrite(info)
	}
	if err := w.doWriteObjects(); err != nil {
		return err
	}

	// The encryption dictionary itself is never encrypted.
	w.willEncrypt = false
	if encrypt := w.doc.Trailer.Get(generic.NameEncrypt); encrypt != nil {
		w.addObjectToWrite(encrypt)
		if err := w.doWriteObjects(); err != nil {
			return err
		}
	}
	return nil
}

// doWriteObjects drains the FIFO queue.
func (w *DocumentWriter) doWriteObjects() error {
	for len(w.toWrite) > 0 {
		obj := w.toWrite[0]
		w.toWrite = w.toWrite[1:]
		delete(w.queued, obj)
		if err := w.doWriteObject(obj); err != nil {
			return err
		}
	}
	return nil
}

// addObjectToWrite enqueues an object for body emission at most once.
// Membership is tracked through the written set, the queued set and the
// actuals set keyed by the reference-resolved identity, so a cyclic or
// repeatedly-referenced graph is serialized exactly once per logical
// object.
func (w *DocumentWriter) addObjectToWrite(obj generic.PdfObject) {
	actual := obj
	if ref, ok := obj.(*generic.IndirectObject); ok {
		if ref.Object == nil {
			// Lives only in the original file; nothing to emit.
			if w.incremental && ref.Key.Number > 0 {
				return
			}
		} else {
			actual = ref.Object
		}
	}

	if w.written[obj] || w.queued[obj] {
		return
	}
	if actual != nil && w.actualsAdded[actual] {
		return
	}

	w.toWrite = append(w.toWrite, obj)
	w.queued[obj] = true
	if actual != nil {
		w.actualsAdded[actual] = true
	}
}

// keyFor resolves the object key for obj, allocating the next unused
// number on first sight. Reference nodes resolve through their target so
// that many syntactically distinct references to one object share a key.
func (w *DocumentWriter) keyFor(obj generic.PdfObject) generic.ObjectKey {
	actual := obj
	if ref, ok := obj.(*generic.IndirectObject); ok {
		if ref.Key.Number > 0 {
			if ref.Object != nil {
				w.keys[ref.Object] = ref.Key
			}
			return ref.Key
		}
		if ref.Object != nil {
			actual = ref.Object
		}
	}

	if key, ok := w.keys[actual]; ok {
		return key
	}

	w.number++
	key := generic.ObjectKey{Number: w.number, Generation: 0}
	w.keys[actual] = key
	return key
}

// doWriteObject emits one indirect object: records its xref entry at the
// current position, writes "n g obj", the object content and "endobj".
func (w *DocumentWriter) doWriteObject(obj generic.PdfObject) error {
	w.written[obj] = true

	key := w.keyFor(obj)
	w.xref = append(w.xref, XRefEntry{
		Offset: w.out.Position(),
		Key:    key,
	})

	if err := w.out.WriteString(fmt.Sprintf("%d %d obj", key.Number, key.Generation)); err != nil {
		return err
	}
	if err := w.out.WriteLF(); err != nil {
		return err
	}

	content := obj
	if ref, ok := obj.(*generic.IndirectObject); ok {
		content = ref.Object
	}
	if err := w.writeValue(content, key, nil); err != nil {
		return err
	}

	if err := w.out.WriteEOL(); err != nil {
		return err
	}
	if err := w.out.WriteString("endobj"); err != nil {
		return err
	}
	return w.out.WriteLF()
}

// writeValue emits one value at its point of use. objKey is the key of
// the enclosing indirect object (used for encryption); containerKey is
// the dictionary key under which the value is visited, nil inside arrays
// and at top level.
func (w *DocumentWriter) writeValue(obj generic.PdfObject, objKey generic.ObjectKey, containerKey *generic.Name) error {
	switch v := obj.(type) {
	case nil:
		return w.out.WriteString("null")
	case generic.NullObject:
		return w.out.WriteString("null")
	case generic.BooleanObject:
		if v {
			return w.out.WriteString("true")
		}
		return w.out.WriteString("false")
	case generic.IntegerObject:
		return w.out.WriteString(strconv.FormatInt(int64(v), 10))
	case generic.RealObject:
		return w.out.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 64))
	case *generic.Name:
		return w.writeName(v)
	case *generic.StringObject:
		return w.writePdfString(v, objKey)
	case *generic.ArrayObject:
		return w.writeArray(v, objKey)
	case *generic.DictionaryObject:
		return w.writeDictionary(v, objKey, containerKey)
	case *generic.StreamObject:
		return w.writeStream(v, objKey)
	case *generic.IndirectObject:
		return w.writeReference(v)
	default:
		return generic.NewPdfWriteError(fmt.Sprintf("unknown object type %T", obj))
	}
}

// nameByteNeedsEscape reports whether a name byte must be written as a
// #XX escape: anything outside the regular printable range, plus the
// delimiter and escape characters. Bytes, not runes: each byte of a
// multi-byte sequence escapes on its own.
func nameByteNeedsEscape(b byte) bool {
	if b < '!' || b > '~' {
		return true
	}
	switch b {
	case '#', '%', '/', '[', ']', '(', ')', '<', '>', '{', '}':
		return true
	}
	return false
}

// writeName emits /Name with # escapes for irregular bytes.
func (w *DocumentWriter) writeName(n *generic.Name) error {
	value := n.Value()
	var sb strings.Builder
	sb.WriteByte('/')
	for i := 0; i < len(value); i++ {
		if nameByteNeedsEscape(value[i]) {
			fmt.Fprintf(&sb, "#%02X", value[i])
		} else {
			sb.WriteByte(value[i])
		}
	}
	return w.out.WriteString(sb.String())
}

// writeReference writes "n g R" for a reference node.
func (w *DocumentWriter) writeReference(ref *generic.IndirectObject) error {
	key := w.keyFor(ref)
	return w.out.WriteString(fmt.Sprintf("%d %d R", key.Number, key.Generation))
}

// literalEligible reports whether the bytes can be written as a literal
// string: printable ASCII only, no bare CR or LF.
func literalEligible(data []byte) bool {
	for _, b := range data {
		if b < 0x20 || b > 0x7E {
			return false
		}
	}
	return true
}

// writePdfString emits a string as either a literal ( ... ) with ( ) \
// backslash-escaped, or an uppercase hex string < ... >.
func (w *DocumentWriter) writePdfString(s *generic.StringObject, objKey generic.ObjectKey) error {
	data := s.Value
	if w.willEncrypt {
		enc, err := w.doc.SecurityHandler.EncryptString(data, objKey)
		if err != nil {
			return err
		}
		data = enc
	}

	if !s.ForceHex && literalEligible(data) {
		var sb strings.Builder
		sb.WriteByte('(')
		for _, b := range data {
			if b == '(' || b == ')' || b == '\\' {
				sb.WriteByte('\\')
			}
			sb.WriteByte(b)
		}
		sb.WriteByte(')')
		return w.out.WriteString(sb.String())
	}

	return w.out.WriteString("<" + strings.ToUpper(hex.EncodeToString(data)) + ">")
}

// writeArray emits [ ... ] with space-separated elements and a line break
// after every 10th element to bound line length.
func (w *DocumentWriter) writeArray(a *generic.ArrayObject, objKey generic.ObjectKey) error {
	if err := w.out.WriteByte('['); err != nil {
		return err
	}

	items := a.Items()
	for i, item := range items {
		var err error
		switch v := item.(type) {
		case nil:
			err = w.out.WriteString("null")
		case *generic.DictionaryObject:
			if v.Direct {
				err = w.writeDictionary(v, objKey, nil)
			} else {
				w.addObjectToWrite(v)
				err = w.out.WriteString(fmt.Sprintf("%d %d R", w.keyFor(v).Number, w.keyFor(v).Generation))
			}
		case *generic.StreamObject:
			// Streams exist only as indirect objects.
			w.addObjectToWrite(v)
			err = w.out.WriteString(fmt.Sprintf("%d %d R", w.keyFor(v).Number, w.keyFor(v).Generation))
		case *generic.IndirectObject:
			err = w.writeDictEntryReference(v, objKey, nil)
		default:
			err = w.writeValue(item, objKey, nil)
		}
		if err != nil {
			return err
		}

		if i < len(items)-1 {
			if (i+1)%10 == 0 {
				err = w.out.WriteLF()
			} else {
				err = w.out.WriteSpace()
			}
			if err != nil {
				return err
			}
		}
	}

	return w.out.WriteByte(']')
}

// writeDictEntryReference applies the always-indirect rules for a
// reference node met inside a composite: a nil target, a dictionary or
// stream target, encryption or an incremental update all force the
// reference form, so the same object is never emitted both directly and
// indirectly. Anything else is resolved inline.
func (w *DocumentWriter) writeDictEntryReference(ref *generic.IndirectObject, objKey generic.ObjectKey, containerKey *generic.Name) error {
	targetNeedsObject := false
	switch ref.Object.(type) {
	case nil, *generic.DictionaryObject, *generic.StreamObject:
		targetNeedsObject = true
	}
	if w.willEncrypt || w.incremental || targetNeedsObject {
		w.addObjectToWrite(ref)
		return w.writeReference(ref)
	}
	return w.writeValue(ref.Object, objKey, containerKey)
}

// writeDictionary emits << ... >> with one key-value pair per line. The
// first dictionary whose /Type is /Sig or /DocTimeStamp has the byte
// positions of its /Contents and /ByteRange values recorded for later
// patching.
func (w *DocumentWriter) writeDictionary(d *generic.DictionaryObject, objKey generic.ObjectKey, containerKey *generic.Name) error {
	isSignatureDict := false
	if !w.reachedSignature {
		if t := d.GetName(generic.NameType); t != nil {
			if t.Value() == generic.NameSig.Value() || t.Value() == generic.NameDocTimeStamp.Value() {
				isSignatureDict = true
				w.reachedSignature = true
			}
		}
	}

	if err := w.out.WriteString("<<"); err != nil {
		return err
	}
	if err := w.out.WriteLF(); err != nil {
		return err
	}

	for _, key := range d.Keys() {
		value := d.Get(key)
		if value == nil {
			// Treat like the PDF convention for missing values.
			continue
		}

		if err := w.writeName(key); err != nil {
			return err
		}
		if err := w.out.WriteSpace(); err != nil {
			return err
		}

		var start uint64
		if isSignatureDict {
			start = w.out.Position()
		}

		var err error
		switch v := value.(type) {
		case *generic.DictionaryObject:
			if !w.incremental {
				// Inline resource-like sub-dictionaries to save size,
				// except when the visit key itself is /XObject or
				// /Resources, which could inline a cycle.
				if sub := v.GetDict(generic.NameXObject); sub != nil && key.Value() != generic.NameXObject.Value() {
					sub.Direct = true
				}
				if sub := v.GetDict(generic.NameResources); sub != nil && key.Value() != generic.NameResources.Value() {
					sub.Direct = true
				}
			}
			if v.Direct {
				err = w.writeDictionary(v, objKey, key)
			} else {
				w.addObjectToWrite(v)
				err = w.out.WriteString(fmt.Sprintf("%d %d R", w.keyFor(v).Number, w.keyFor(v).Generation))
			}
		case *generic.StreamObject:
			// Streams exist only as indirect objects.
			w.addObjectToWrite(v)
			err = w.out.WriteString(fmt.Sprintf("%d %d R", w.keyFor(v).Number, w.keyFor(v).Generation))
		case *generic.IndirectObject:
			err = w.writeDictEntryReference(v, objKey, key)
		default:
			err = w.writeValue(value, objKey, key)
		}
		if err != nil {
			return err
		}

		if isSignatureDict {
			switch key.Value() {
			case "Contents":
				w.signatureOffset = start
				w.signatureLength = w.out.Position() - start
			case "ByteRange":
				w.byteRangeOffset = start
				w.byteRangeLength = w.out.Position() - start
			}
		}

		if err := w.out.WriteLF(); err != nil {
			return err
		}
	}

	return w.out.WriteString(">>")
}

// writeStream emits the stream dictionary (with /Length set from the
// payload) followed by the framed stream bytes.
func (w *DocumentWriter) writeStream(s *generic.StreamObject, objKey generic.ObjectKey) error {
	data := s.Data
	if w.willEncrypt {
		enc, err := w.doc.SecurityHandler.EncryptStream(data, objKey)
		if err != nil {
			return err
		}
		data = enc
	}

	s.Dict.Set(generic.NameLength, generic.IntegerObject(len(data)))
	if err := w.writeDictionary(s.Dict, objKey, nil); err != nil {
		return err
	}

	if err := w.out.WriteEOL(); err != nil {
		return err
	}
	if err := w.out.WriteString("stream"); err != nil {
		return err
	}
	if err := w.out.WriteCRLF(); err != nil {
		return err
	}
	if _, err := w.out.Write(data); err != nil {
		return err
	}
	if err := w.out.WriteCRLF(); err != nil {
		return err
	}
	return w.out.WriteString("endstream")
}

// doWriteXRefTable adds the free head entry, remembers the table start
// for startxref and emits the classic table.
func (w *DocumentWriter) doWriteXRefTable() error {
	w.xref = append(w.xref, XRefEntry{
		Key:  generic.FreeObjectKey,
		Free: true,
	})
	w.startXRef = w.out.Position()

	if err := writeXRefTable(w.out, w.xref); err != nil {
		return err
	}
	w.state = stateXRefWritten
	return nil
}

// doWriteTrailer emits the trailer dictionary, startxref and the EOF
// marker. /Prev is carried only for incremental updates; /XRefStm and
// stored checksums are never emitted.
func (w *DocumentWriter) doWriteTrailer() error {
	trailer := w.doc.Trailer
	trailer.Set(generic.NameSize, generic.IntegerObject(w.number+1))
	trailer.Delete(generic.NameXRefStm)
	trailer.Delete(generic.NameDocChecksum)
	if w.incremental {
		trailer.Set(generic.NamePrev, generic.IntegerObject(w.prevStartXRef))
	} else {
		trailer.Delete(generic.NamePrev)
	}

	if err := w.out.WriteString("trailer"); err != nil {
		return err
	}
	if err := w.out.WriteLF(); err != nil {
		return err
	}
	if err := w.writeDictionary(trailer, generic.ObjectKey{}, nil); err != nil {
		return err
	}
	if err := w.out.WriteLF(); err != nil {
		return err
	}

	if err := w.out.WriteString("startxref"); err != nil {
		return err
	}
	if err := w.out.WriteLF(); err != nil {
		return err
	}
	if err := w.out.WriteString(strconv.FormatUint(w.startXRef, 10)); err != nil {
		return err
	}
	if err := w.out.WriteLF(); err != nil {
		return err
	}
	if err := w.out.WriteString("%%EOF"); err != nil {
		return err
	}
	if err := w.out.WriteLF(); err != nil {
		return err
	}
	w.state = stateTrailerWritten
	return nil
}

// prepareFileID ensures the trailer carries a two-element /ID array. The
// second element is always refreshed from a digest over the current time
// and the /Info values; the first element is kept from an existing ID so
// incremental updates preserve the original identifier.
func (w *DocumentWriter) prepareFileID() {
	trailer := w.doc.Trailer
	existing := trailer.GetArray(generic.NameID)
	if existing != nil && existing.Len() == 2 && !w.incremental {
		return
	}

	h := md5.New()
	io.WriteString(h, strconv.FormatInt(w.clock.Now().UnixNano(), 10))
	if info := resolveDict(trailer.Get(generic.NameInfo)); info != nil {
		for _, key := range info.Keys() {
			io.WriteString(h, norm.NFC.String(stringifyValue(info.Get(key))))
		}
	}
	digest := h.Sum(nil)

	first := digest
	if existing != nil && existing.Len() >= 1 {
		if s, ok := existing.Get(0).(*generic.StringObject); ok {
			first = s.Value
		}
	}

	trailer.Set(generic.NameID, generic.NewArray(
		generic.NewHexString(first),
		generic.NewHexString(digest),
	))
}

// resolveDict unwraps a reference node down to a dictionary, or nil.
func resolveDict(obj generic.PdfObject) *generic.DictionaryObject {
	if ref, ok := obj.(*generic.IndirectObject); ok {
		obj = ref.Object
	}
	if d, ok := obj.(*generic.DictionaryObject); ok {
		return d
	}
	return nil
}

// stringifyValue renders a value for the /ID digest input.
func stringifyValue(obj generic.PdfObject) string {
	switch v := obj.(type) {
	case nil:
		return ""
	case *generic.StringObject:
		return v.Text()
	case *generic.Name:
		return v.Value()
	case generic.IntegerObject:
		return strconv.FormatInt(int64(v), 10)
	case generic.RealObject:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	case generic.BooleanObject:
		return strconv.FormatBool(bool(v))
	default:
		return fmt.Sprintf("%v", obj)
	}
}
