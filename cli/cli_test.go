package cli

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/georgepadayatti/pdfcos/pdf/filters"
	"github.com/georgepadayatti/pdfcos/pdf/generic"
	"github.com/georgepadayatti/pdfcos/pdf/reader"
	"github.com/georgepadayatti/pdfcos/pdf/writer"
)

func TestEscapeContentText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain text", "plain text"},
		{"with (parens)", `with \(parens\)`},
		{`back\slash`, `back\\slash`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := escapeContentText(tt.input); got != tt.want {
			t.Errorf("escapeContentText(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestBuildMinimalDocument(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	doc, err := BuildMinimalDocument(&CreateOptions{
		Title:  "Test Title",
		Author: "Test Author",
		Text:   "Hello",
	}, now)
	if err != nil {
		t.Fatalf("BuildMinimalDocument() error = %v", err)
	}

	var buf bytes.Buffer
	if err := writer.NewWriter(&buf).Write(doc); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"/Type /Catalog",
		"/Type /Pages",
		"/Type /Page",
		"/BaseFont /Helvetica",
		"/MediaBox [0 0 612 792]",
		"/Filter /FlateDecode",
		"(Test Title)",
		"(Test Author)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q", want)
		}
	}

	// The page content is compressed; the text must not appear raw.
	if strings.Contains(out, "(Hello) Tj") {
		t.Error("content stream was written uncompressed")
	}

	prev, err := reader.ScanPrevious(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ScanPrevious() error = %v", err)
	}
	if prev.Root == nil || prev.Info == nil {
		t.Errorf("Root = %v, Info = %v; want both present", prev.Root, prev.Info)
	}
}

func TestBuildMinimalDocumentContentStream(t *testing.T) {
	doc, err := BuildMinimalDocument(&CreateOptions{Text: "Body (text)"}, time.Now())
	if err != nil {
		t.Fatalf("BuildMinimalDocument() error = %v", err)
	}

	catalog := doc.Trailer.Get(generic.NameRoot).(*generic.IndirectObject).Object.(*generic.DictionaryObject)
	pages := catalog.Get(namePages).(*generic.IndirectObject).Object.(*generic.DictionaryObject)
	page := pages.GetArray(nameKids).Get(0).(*generic.IndirectObject).Object.(*generic.DictionaryObject)
	stream := page.Get(namePageContents).(*generic.IndirectObject).Object.(*generic.StreamObject)

	content, err := filters.Flate{}.Decode(stream.Data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := `BT /F1 24 Tf 72 720 Td (Body \(text\)) Tj ET`
	if string(content) != want {
		t.Errorf("content = %q, want %q", content, want)
	}
}

func TestCreateEncryptedDocument(t *testing.T) {
	doc, err := BuildMinimalDocument(&CreateOptions{Text: "Secret"}, time.Now())
	if err != nil {
		t.Fatalf("BuildMinimalDocument() error = %v", err)
	}
	if err := encryptDocument(doc, &CreateOptions{UserPassword: "user", OwnerPassword: "owner"}); err != nil {
		t.Fatalf("encryptDocument() error = %v", err)
	}

	var buf bytes.Buffer
	if err := writer.NewWriter(&buf).Write(doc); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()

	if !regexp.MustCompile(`/Encrypt \d+ \d+ R`).MatchString(out) {
		t.Error("trailer does not reference an encryption dictionary")
	}
	for _, want := range []string{"/Filter /Standard", "/CFM /AESV2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q", want)
		}
	}
	// Metadata strings are encrypted, so the creation date must not
	// appear as plain text.
	if strings.Contains(out, "(D:2") {
		t.Error("info strings were written unencrypted")
	}
}

func TestAttachSignatureField(t *testing.T) {
	doc, err := BuildMinimalDocument(&CreateOptions{Text: "Signed"}, time.Now())
	if err != nil {
		t.Fatalf("BuildMinimalDocument() error = %v", err)
	}

	sig := generic.NewDictionary()
	sig.Set(generic.NameType, generic.NameSig)
	attachSignatureField(doc, "Signature1", sig)

	catalog := resolveCatalog(doc)
	acroForm := catalog.GetDict(nameAcroForm)
	if acroForm == nil {
		t.Fatal("/AcroForm missing from catalog")
	}
	if got := acroForm.Get(nameSigFlags); got != generic.IntegerObject(3) {
		t.Errorf("/SigFlags = %v, want 3", got)
	}

	fields := acroForm.GetArray(nameFields)
	if fields == nil || fields.Len() != 1 {
		t.Fatalf("/Fields = %v, want one entry", fields)
	}

	page := firstPage(catalog)
	if page == nil {
		t.Fatal("first page not found")
	}
	annots := page.GetArray(nameAnnots)
	if annots == nil || annots.Len() != 1 {
		t.Fatalf("/Annots = %v, want one entry", annots)
	}
}

func TestIncrementalDocumentCarriesID(t *testing.T) {
	doc, err := BuildMinimalDocument(&CreateOptions{Text: "Base"}, time.Now())
	if err != nil {
		t.Fatalf("BuildMinimalDocument() error = %v", err)
	}
	var buf bytes.Buffer
	if err := writer.NewWriter(&buf).Write(doc); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	source := bytes.NewReader(buf.Bytes())

	prev, err := reader.ScanPrevious(source)
	if err != nil {
		t.Fatalf("ScanPrevious() error = %v", err)
	}
	if prev.ID == nil {
		t.Fatal("base file carries no /ID")
	}

	update, err := incrementalDocument(source)
	if err != nil {
		t.Fatalf("incrementalDocument() error = %v", err)
	}
	id := update.Trailer.GetArray(generic.NameID)
	if id == nil || id.Len() != 2 {
		t.Fatalf("update trailer /ID = %v, want two elements", id)
	}
	first, ok := id.Get(0).(*generic.StringObject)
	if !ok || !bytes.Equal(first.Value, prev.ID) {
		t.Errorf("/ID first element = %v, want %x", id.Get(0), prev.ID)
	}
}
