// Package generic provides the COS object model: the typed PDF values
// (null, booleans, numbers, names, strings, arrays, dictionaries, streams
// and indirect references) that the writer serializes.
package generic

import (
	"bytes"
	"strings"
)

// PdfObject is the closed set of COS values. The writer performs an
// exhaustive type switch over the concrete types below; no further
// implementations exist outside this package.
type PdfObject interface {
	// Clone creates a deep copy of the object. Names are shared, not
	// copied, since they are interned and immutable.
	Clone() PdfObject
}

// ObjectKey identifies an indirect object by number and generation.
type ObjectKey struct {
	Number     int
	Generation int
}

// FreeObjectKey is the conventional head of the free-entry list.
var FreeObjectKey = ObjectKey{Number: 0, Generation: 65535}

// IndirectObject is a reference node: it stands in for its target at some
// position in the graph and is written as "n g R". The target is never
// embedded inline by the node itself; the writer decides whether to
// resolve it. A nil Object with a non-zero Key refers to an object that
// lives only in the original file of an incremental update.
type IndirectObject struct {
	Key    ObjectKey
	Object PdfObject
}

// NewIndirectObject creates a reference node for obj with no key assigned
// yet; the writer numbers it on first visit.
func NewIndirectObject(obj PdfObject) *IndirectObject {
	return &IndirectObject{Object: obj}
}

// NewReference creates a reference node for an object known only by key.
func NewReference(key ObjectKey) *IndirectObject {
	return &IndirectObject{Key: key}
}

// Clone implements PdfObject.
func (i *IndirectObject) Clone() PdfObject {
	out := &IndirectObject{Key: i.Key}
	if i.Object != nil {
		out.Object = i.Object.Clone()
	}
	return out
}

// NullObject represents the PDF null value.
type NullObject struct{}

// Clone implements PdfObject.
func (n NullObject) Clone() PdfObject { return n }

// BooleanObject represents a PDF boolean value.
type BooleanObject bool

// Clone implements PdfObject.
func (b BooleanObject) Clone() PdfObject { return b }

// IntegerObject represents a PDF integer value.
type IntegerObject int64

// Clone implements PdfObject.
func (i IntegerObject) Clone() PdfObject { return i }

// RealObject represents a PDF real (floating point) value.
type RealObject float64

// Clone implements PdfObject.
func (r RealObject) Clone() PdfObject { return r }

// StringObject represents a PDF string. ForceHex makes the writer emit the
// hex form even when the bytes would qualify for a literal string.
type StringObject struct {
	Value    []byte
	ForceHex bool
}

// NewLiteralString creates a string from text.
func NewLiteralString(s string) *StringObject {
	return &StringObject{Value: []byte(s)}
}

// NewHexString creates a string that is always written in hex form.
func NewHexString(data []byte) *StringObject {
	return &StringObject{Value: data, ForceHex: true}
}

// NewTextString creates a PDF text string, using UTF-16BE with a BOM when
// the text contains characters outside the 8-bit range.
func NewTextString(s string) *StringObject {
	needsUnicode := false
	for _, r := range s {
		if r > 255 {
			needsUnicode = true
			break
		}
	}

	if !needsUnicode {
		return &StringObject{Value: []byte(s)}
	}

	var buf bytes.Buffer
	buf.Write([]byte{0xFE, 0xFF})
	for _, r := range s {
		buf.WriteByte(byte(r >> 8))
		buf.WriteByte(byte(r & 0xFF))
	}
	return &StringObject{Value: buf.Bytes()}
}

// Clone implements PdfObject.
func (s *StringObject) Clone() PdfObject {
	val := make([]byte, len(s.Value))
	copy(val, s.Value)
	return &StringObject{Value: val, ForceHex: s.ForceHex}
}

// Text returns the string value decoded as text, handling the UTF-16BE
// BOM convention.
func (s *StringObject) Text() string {
	if len(s.Value) >= 2 && s.Value[0] == 0xFE && s.Value[1] == 0xFF {
		var result strings.Builder
		for i := 2; i+1 < len(s.Value); i += 2 {
			result.WriteRune(rune(s.Value[i])<<8 | rune(s.Value[i+1]))
		}
		return result.String()
	}
	return string(s.Value)
}

// ArrayObject represents a PDF array. It is a pointer type so that two
// structurally equal arrays at different graph positions remain distinct
// nodes for the writer's bookkeeping.
type ArrayObject struct {
	items []PdfObject
}

// NewArray creates a new array.
func NewArray(items ...PdfObject) *ArrayObject {
	return &ArrayObject{items: items}
}

// Clone implements PdfObject.
func (a *ArrayObject) Clone() PdfObject {
	items := make([]PdfObject, len(a.items))
	for i, item := range a.items {
		if item != nil {
			items[i] = item.Clone()
		}
	}
	return &ArrayObject{items: items}
}

// Append adds items to the end of the array.
func (a *ArrayObject) Append(items ...PdfObject) {
	a.items = append(a.items, items...)
}

// Get returns the item at index, or nil when out of bounds.
func (a *ArrayObject) Get(index int) PdfObject {
	if index < 0 || index >= len(a.items) {
		return nil
	}
	return a.items[index]
}

// Set replaces the item at index.
func (a *ArrayObject) Set(index int, obj PdfObject) {
	if index >= 0 && index < len(a.items) {
		a.items[index] = obj
	}
}

// Len returns the number of items.
func (a *ArrayObject) Len() int {
	return len(a.items)
}

// Items returns the backing slice.
func (a *ArrayObject) Items() []PdfObject {
	return a.items
}

// DictionaryObject represents a PDF dictionary with insertion-ordered
// keys. Direct marks the dictionary for inline emission at its point of
// use instead of getting its own indirect object.
type DictionaryObject struct {
	Direct  bool
	entries map[string]PdfObject
	order   []*Name
}

// NewDictionary creates a new dictionary.
func NewDictionary() *DictionaryObject {
	return &DictionaryObject{entries: make(map[string]PdfObject)}
}

// Clone implements PdfObject.
func (d *DictionaryObject) Clone() PdfObject {
	result := NewDictionary()
	result.Direct = d.Direct
	for _, key := range d.order {
		if val := d.entries[key.value]; val != nil {
			result.Set(key, val.Clone())
		}
	}
	return result
}

// Set sets a key-value pair, keeping first-insertion order.
func (d *DictionaryObject) Set(key *Name, value PdfObject) {
	if _, exists := d.entries[key.value]; !exists {
		d.order = append(d.order, key)
	}
	d.entries[key.value] = value
}

// Get returns the value for key, or nil.
func (d *DictionaryObject) Get(key *Name) PdfObject {
	return d.entries[key.value]
}

// GetName returns the name value for key, or nil when absent or not a name.
func (d *DictionaryObject) GetName(key *Name) *Name {
	if n, ok := d.entries[key.value].(*Name); ok {
		return n
	}
	return nil
}

// GetInt returns the integer value for key.
func (d *DictionaryObject) GetInt(key *Name) (int64, bool) {
	if i, ok := d.entries[key.value].(IntegerObject); ok {
		return int64(i), true
	}
	return 0, false
}

// GetArray returns the array value for key, or nil.
func (d *DictionaryObject) GetArray(key *Name) *ArrayObject {
	if a, ok := d.entries[key.value].(*ArrayObject); ok {
		return a
	}
	return nil
}

// GetDict returns the dictionary value for key, or nil.
func (d *DictionaryObject) GetDict(key *Name) *DictionaryObject {
	if dict, ok := d.entries[key.value].(*DictionaryObject); ok {
		return dict
	}
	return nil
}

// GetString returns the string value for key, or nil.
func (d *DictionaryObject) GetString(key *Name) *StringObject {
	if s, ok := d.entries[key.value].(*StringObject); ok {
		return s
	}
	return nil
}

// Has returns true if key exists.
func (d *DictionaryObject) Has(key *Name) bool {
	_, exists := d.entries[key.value]
	return exists
}

// Delete removes key.
func (d *DictionaryObject) Delete(key *Name) {
	if _, exists := d.entries[key.value]; !exists {
		return
	}
	delete(d.entries, key.value)
	for i, k := range d.order {
		if k.value == key.value {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (d *DictionaryObject) Keys() []*Name {
	return d.order
}

// Len returns the number of entries.
func (d *DictionaryObject) Len() int {
	return len(d.entries)
}

// StreamObject represents a PDF stream: a dictionary plus raw bytes. The
// writer sets /Length from len(Data) at emission time.
type StreamObject struct {
	Dict *DictionaryObject
	Data []byte
}

// NewStream creates a new stream.
func NewStream(dict *DictionaryObject, data []byte) *StreamObject {
	if dict == nil {
		dict = NewDictionary()
	}
	return &StreamObject{Dict: dict, Data: data}
}

// Clone implements PdfObject.
func (s *StreamObject) Clone() PdfObject {
	data := make([]byte, len(s.Data))
	copy(data, s.Data)
	return &StreamObject{
		Dict: s.Dict.Clone().(*DictionaryObject),
		Data: data,
	}
}

// Equal reports structural equality of two objects: contents are compared
// recursively, ignoring node identity. Reference nodes compare by key.
func Equal(a, b PdfObject) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case NullObject:
		_, ok := b.(NullObject)
		return ok
	case BooleanObject:
		bv, ok := b.(BooleanObject)
		return ok && av == bv
	case IntegerObject:
		bv, ok := b.(IntegerObject)
		return ok && av == bv
	case RealObject:
		bv, ok := b.(RealObject)
		return ok && av == bv
	case *Name:
		bv, ok := b.(*Name)
		return ok && av.value == bv.value
	case *StringObject:
		bv, ok := b.(*StringObject)
		return ok && av.ForceHex == bv.ForceHex && bytes.Equal(av.Value, bv.Value)
	case *ArrayObject:
		bv, ok := b.(*ArrayObject)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for i, item := range av.items {
			if !Equal(item, bv.items[i]) {
				return false
			}
		}
		return true
	case *DictionaryObject:
		bv, ok := b.(*DictionaryObject)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, key := range av.order {
			if !Equal(av.Get(key), bv.Get(key)) {
				return false
			}
		}
		return true
	case *StreamObject:
		bv, ok := b.(*StreamObject)
		return ok && Equal(av.Dict, bv.Dict) && bytes.Equal(av.Data, bv.Data)
	case *IndirectObject:
		bv, ok := b.(*IndirectObject)
		return ok && av.Key == bv.Key
	}
	return false
}
