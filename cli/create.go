package cli

import (
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/georgepadayatti/pdfcos/pdf/crypt"
	"github.com/georgepadayatti/pdfcos/pdf/filters"
	"github.com/georgepadayatti/pdfcos/pdf/generic"
	"github.com/georgepadayatti/pdfcos/pdf/writer"
)

// Document structure names used when building files from scratch.
var (
	namePages        = generic.NewName("Pages")
	namePage         = generic.NewName("Page")
	nameKids         = generic.NewName("Kids")
	nameCount        = generic.NewName("Count")
	nameParent       = generic.NewName("Parent")
	nameMediaBox     = generic.NewName("MediaBox")
	namePageContents = generic.NewName("Contents")
	nameFont         = generic.NewName("Font")
	nameF1           = generic.NewName("F1")
	nameSubtype      = generic.NewName("Subtype")
	nameType1        = generic.NewName("Type1")
	nameBaseFont     = generic.NewName("BaseFont")
	nameHelvetica    = generic.NewName("Helvetica")
	nameTitle        = generic.NewName("Title")
	nameAuthor       = generic.NewName("Author")
	nameFlateDecode  = generic.NewName("FlateDecode")
)

// CreateOptions contains options for the create command.
type CreateOptions struct {
	Title         string
	Author        string
	Producer      string
	Text          string
	Version       string
	UserPassword  string
	OwnerPassword string
}

// CreateCommand implements the 'create' command.
func CreateCommand(args []string) {
	createFlags := flag.NewFlagSet("create", flag.ExitOnError)

	var opts CreateOptions
	createFlags.StringVar(&opts.Title, "title", "", "Document title")
	createFlags.StringVar(&opts.Author, "author", "", "Document author")
	createFlags.StringVar(&opts.Producer, "producer", "pdfcos", "Producer string")
	createFlags.StringVar(&opts.Text, "text", "Hello, world", "Page text")
	createFlags.StringVar(&opts.Version, "pdf-version", writer.DefaultVersion, "PDF version for the header")
	createFlags.StringVar(&opts.UserPassword, "user-password", "", "Encrypt the file with this user password (AES-128)")
	createFlags.StringVar(&opts.OwnerPassword, "owner-password", "", "Owner password; defaults to the user password")

	createFlags.Usage = func() {
		fmt.Printf("Usage: %s create [options] <output.pdf>\n\n", os.Args[0])
		fmt.Println("Write a minimal single-page PDF file from scratch.")
		fmt.Println("")
		fmt.Println("Options:")
		createFlags.PrintDefaults()
	}

	if err := createFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}
	if createFlags.NArg() != 1 {
		createFlags.Usage()
		osExit(1)
	}

	outputPath := createFlags.Arg(0)
	if err := createPDF(outputPath, &opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
	fmt.Printf("Wrote %s\n", outputPath)
}

// createPDF builds a minimal document and writes it to outputPath.
func createPDF(outputPath string, opts *CreateOptions) error {
	doc, err := BuildMinimalDocument(opts, time.Now())
	if err != nil {
		return err
	}

	if opts.UserPassword != "" || opts.OwnerPassword != "" {
		if err := encryptDocument(doc, opts); err != nil {
			return err
		}
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	return writer.NewWriter(out).Write(doc)
}

// encryptDocument attaches a standard security handler. The /ID is fixed
// up front because its first element feeds the key derivation.
func encryptDocument(doc *writer.Document, opts *CreateOptions) error {
	id := make([]byte, 16)
	if _, err := rand.Read(id); err != nil {
		return fmt.Errorf("failed to generate file ID: %w", err)
	}
	doc.Trailer.Set(generic.NameID, generic.NewArray(
		generic.NewHexString(id),
		generic.NewHexString(id),
	))

	handler := crypt.NewStandardSecurityHandler(crypt.MethodAESV2)
	if err := handler.GenerateKeys([]byte(opts.UserPassword), []byte(opts.OwnerPassword), id); err != nil {
		return err
	}
	encryptDict, err := handler.EncryptionDictionary()
	if err != nil {
		return err
	}
	doc.Trailer.Set(generic.NameEncrypt, generic.NewIndirectObject(encryptDict))
	doc.SecurityHandler = handler
	return nil
}

// BuildMinimalDocument builds a single-page document with the given
// metadata. The page shows opts.Text in Helvetica.
func BuildMinimalDocument(opts *CreateOptions, now time.Time) (*writer.Document, error) {
	content := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", escapeContentText(opts.Text))
	compressed, err := filters.Flate{}.Encode([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("failed to compress content stream: %w", err)
	}
	streamDict := generic.NewDictionary()
	streamDict.Set(generic.NameFilter, nameFlateDecode)
	contentStream := generic.NewStream(streamDict, compressed)

	font := generic.NewDictionary()
	font.Set(generic.NameType, nameFont)
	font.Set(nameSubtype, nameType1)
	font.Set(nameBaseFont, nameHelvetica)

	fonts := generic.NewDictionary()
	fonts.Set(nameF1, font)

	resources := generic.NewDictionary()
	resources.Set(nameFont, fonts)

	pages := generic.NewDictionary()
	pagesRef := generic.NewIndirectObject(pages)

	page := generic.NewDictionary()
	page.Set(generic.NameType, namePage)
	page.Set(nameParent, pagesRef)
	page.Set(nameMediaBox, generic.NewArray(
		generic.IntegerObject(0), generic.IntegerObject(0),
		generic.IntegerObject(612), generic.IntegerObject(792),
	))
	page.Set(generic.NameResources, resources)
	page.Set(namePageContents, generic.NewIndirectObject(contentStream))
	pageRef := generic.NewIndirectObject(page)

	pages.Set(generic.NameType, namePages)
	pages.Set(nameKids, generic.NewArray(pageRef))
	pages.Set(nameCount, generic.IntegerObject(1))

	catalog := generic.NewDictionary()
	catalog.Set(generic.NameType, generic.NameCatalog)
	catalog.Set(namePages, pagesRef)

	info := generic.NewDictionary()
	if opts.Title != "" {
		info.Set(nameTitle, generic.NewTextString(opts.Title))
	}
	if opts.Author != "" {
		info.Set(nameAuthor, generic.NewTextString(opts.Author))
	}
	if opts.Producer != "" {
		info.Set(generic.NameProducer, generic.NewTextString(opts.Producer))
	}
	info.Set(generic.NameCreationDate, generic.NewTextString(writer.FormatPdfDate(now)))

	doc := writer.NewDocument()
	if opts.Version != "" {
		doc.Version = opts.Version
	}
	doc.Trailer.Set(generic.NameRoot, generic.NewIndirectObject(catalog))
	doc.Trailer.Set(generic.NameInfo, generic.NewIndirectObject(info))
	return doc, nil
}

// escapeContentText escapes the characters that delimit literal strings
// inside a content stream.
func escapeContentText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', ')', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
