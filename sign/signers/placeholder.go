package signers

import (
	"time"

	"github.com/georgepadayatti/pdfcos/pdf/generic"
	"github.com/georgepadayatti/pdfcos/pdf/writer"
)

// DefaultBytesReserved is the default width reserved for the signature
// payload. 16 KiB leaves room for a CMS container with embedded
// certificate chains and timestamp tokens.
const DefaultBytesReserved = 16 * 1024

// byteRangeSentinel is the integer written into the ByteRange
// placeholder. Ten digits keep the reserved text wide enough for any
// realistic file offset.
const byteRangeSentinel = 1000000000

// Signature dictionary names not in the writer's core set.
var (
	nameAdobePPKLite = generic.NewName("Adobe.PPKLite")
	nameName         = generic.NewName("Name")
	nameLocation     = generic.NewName("Location")
	nameReason       = generic.NewName("Reason")
	nameContactInfo  = generic.NewName("ContactInfo")
)

// SubFilter identifies the encoding of the signature payload.
type SubFilter string

const (
	// SubFilterPKCS7Detached is the classic detached PKCS#7 signature.
	SubFilterPKCS7Detached SubFilter = "adbe.pkcs7.detached"
	// SubFilterCAdESDetached is the PAdES CAdES-detached signature.
	SubFilterCAdESDetached SubFilter = "ETSI.CAdES.detached"
	// SubFilterRFC3161 is the document timestamp encoding.
	SubFilterRFC3161 SubFilter = "ETSI.RFC3161"
)

// SignatureOptions configures a signature dictionary placeholder.
type SignatureOptions struct {
	SubFilter     SubFilter
	Name          string
	Location      string
	Reason        string
	ContactInfo   string
	Timestamp     *time.Time
	BytesReserved int
}

// DefaultSignatureOptions returns the defaults for a detached signature.
func DefaultSignatureOptions() *SignatureOptions {
	return &SignatureOptions{
		SubFilter:     SubFilterPKCS7Detached,
		BytesReserved: DefaultBytesReserved,
	}
}

// NewSignatureDictionary builds a /Sig dictionary with reserved
// /Contents and /ByteRange placeholders. The writer records their byte
// positions during emission and patches them once final offsets exist;
// the caller must reserve enough width up front, since the placeholder
// cannot grow afterwards.
func NewSignatureDictionary(opts *SignatureOptions) *generic.DictionaryObject {
	if opts == nil {
		opts = DefaultSignatureOptions()
	}
	bytesReserved := opts.BytesReserved
	if bytesReserved <= 0 {
		bytesReserved = DefaultBytesReserved
	}
	subFilter := opts.SubFilter
	if subFilter == "" {
		subFilter = SubFilterPKCS7Detached
	}

	dict := generic.NewDictionary()
	dict.Set(generic.NameType, generic.NameSig)
	dict.Set(generic.NameFilter, nameAdobePPKLite)
	dict.Set(generic.NameSubFilter, generic.NewName(string(subFilter)))

	if opts.Name != "" {
		dict.Set(nameName, generic.NewTextString(opts.Name))
	}
	if opts.Location != "" {
		dict.Set(nameLocation, generic.NewTextString(opts.Location))
	}
	if opts.Reason != "" {
		dict.Set(nameReason, generic.NewTextString(opts.Reason))
	}
	if opts.ContactInfo != "" {
		dict.Set(nameContactInfo, generic.NewTextString(opts.ContactInfo))
	}
	if opts.Timestamp != nil {
		dict.Set(generic.NameM, generic.NewTextString(writer.FormatPdfDate(*opts.Timestamp)))
	}

	dict.Set(generic.NameContents, generic.NewHexString(make([]byte, bytesReserved)))
	dict.Set(generic.NameByteRange, generic.NewArray(
		generic.IntegerObject(0),
		generic.IntegerObject(byteRangeSentinel),
		generic.IntegerObject(byteRangeSentinel),
		generic.IntegerObject(byteRangeSentinel),
	))

	return dict
}

// NewDocumentTimestampDictionary builds a /DocTimeStamp placeholder
// dictionary for RFC 3161 document timestamps.
func NewDocumentTimestampDictionary(bytesReserved int) *generic.DictionaryObject {
	if bytesReserved <= 0 {
		bytesReserved = DefaultBytesReserved
	}

	dict := generic.NewDictionary()
	dict.Set(generic.NameType, generic.NameDocTimeStamp)
	dict.Set(generic.NameFilter, nameAdobePPKLite)
	dict.Set(generic.NameSubFilter, generic.NewName(string(SubFilterRFC3161)))
	dict.Set(generic.NameContents, generic.NewHexString(make([]byte, bytesReserved)))
	dict.Set(generic.NameByteRange, generic.NewArray(
		generic.IntegerObject(0),
		generic.IntegerObject(byteRangeSentinel),
		generic.IntegerObject(byteRangeSentinel),
		generic.IntegerObject(byteRangeSentinel),
	))
	return dict
}
