package cli

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/georgepadayatti/pdfcos/config"
	"github.com/georgepadayatti/pdfcos/keys"
	"github.com/georgepadayatti/pdfcos/pdf/generic"
	"github.com/georgepadayatti/pdfcos/pdf/writer"
	"github.com/georgepadayatti/pdfcos/sign/signers"
)

// Form and annotation names used when wiring a signature field.
var (
	nameAcroForm = generic.NewName("AcroForm")
	nameFields   = generic.NewName("Fields")
	nameSigFlags = generic.NewName("SigFlags")
	nameFT       = generic.NewName("FT")
	nameT        = generic.NewName("T")
	nameValue    = generic.NewName("V")
	nameAnnot    = generic.NewName("Annot")
	nameWidget   = generic.NewName("Widget")
	nameRect     = generic.NewName("Rect")
	nameF        = generic.NewName("F")
	nameP        = generic.NewName("P")
	nameAnnots   = generic.NewName("Annots")
)

// SignOptions contains options for the sign command.
type SignOptions struct {
	ConfigFile string
	KeySet     string
	Profile    string
	CertFile   string
	KeyFile    string
	PFXFile    string
	Passphrase string
	FieldName  string
	Name       string
	Location   string
	Reason     string
	Contact    string
	Reserve    int
	Title      string
	Text       string
}

// SignCommand implements the 'sign' command.
func SignCommand(args []string) {
	signFlags := flag.NewFlagSet("sign", flag.ExitOnError)

	var opts SignOptions
	signFlags.StringVar(&opts.ConfigFile, "config", "", "YAML configuration file")
	signFlags.StringVar(&opts.KeySet, "key-set", "", "Key set name from the configuration")
	signFlags.StringVar(&opts.Profile, "profile", "", "Signature profile name from the configuration")
	signFlags.StringVar(&opts.CertFile, "cert", "", "Signing certificate (PEM or DER)")
	signFlags.StringVar(&opts.KeyFile, "key", "", "Private key (PEM or DER)")
	signFlags.StringVar(&opts.PFXFile, "p12", "", "PKCS#12 file with certificate and key")
	signFlags.StringVar(&opts.Passphrase, "passphrase", "", "Key or PKCS#12 passphrase")
	signFlags.StringVar(&opts.FieldName, "field", "Signature1", "Name of the signature field")
	signFlags.StringVar(&opts.Name, "name", "", "Name of the signatory")
	signFlags.StringVar(&opts.Location, "location", "", "Location of signing")
	signFlags.StringVar(&opts.Reason, "reason", "", "Reason for signing")
	signFlags.StringVar(&opts.Contact, "contact", "", "Contact information for signatory")
	signFlags.IntVar(&opts.Reserve, "reserve", 0, "Bytes reserved for the signature payload")
	signFlags.StringVar(&opts.Title, "title", "", "Document title")
	signFlags.StringVar(&opts.Text, "text", "Signed document", "Page text")

	signFlags.Usage = func() {
		fmt.Printf("Usage: %s sign [options] <output.pdf>\n\n", os.Args[0])
		fmt.Println("Write a single-page PDF carrying a digital signature. The")
		fmt.Println("signature covers every byte outside the reserved /Contents")
		fmt.Println("placeholder, as described by the /ByteRange array.")
		fmt.Println("")
		fmt.Println("Credentials come from -cert/-key, from -p12, or from a key")
		fmt.Println("set in the -config file.")
		fmt.Println("")
		fmt.Println("Options:")
		signFlags.PrintDefaults()
	}

	if err := signFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}
	if signFlags.NArg() != 1 {
		signFlags.Usage()
		osExit(1)
	}

	if err := signPDF(signFlags.Arg(0), &opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
	fmt.Printf("Wrote signed PDF: %s\n", signFlags.Arg(0))
}

// signPDF builds a minimal signed document and writes it to outputPath.
func signPDF(outputPath string, opts *SignOptions) error {
	key, sigOpts, err := resolveCredentials(opts)
	if err != nil {
		return err
	}

	doc, err := BuildMinimalDocument(&CreateOptions{Title: opts.Title, Text: opts.Text}, time.Now())
	if err != nil {
		return err
	}
	attachSignatureField(doc, opts.FieldName, signers.NewSignatureDictionary(sigOpts))

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	return writer.NewWriter(out).WriteSigned(doc, signers.NewCryptoSigner(key))
}

// resolveCredentials loads the private key and assembles signature
// options from flags and, when given, the configuration file.
func resolveCredentials(opts *SignOptions) (keys.PrivateKey, *signers.SignatureOptions, error) {
	now := time.Now()
	sigOpts := signers.DefaultSignatureOptions()
	sigOpts.Timestamp = &now

	var key keys.PrivateKey

	switch {
	case opts.ConfigFile != "":
		cfg, err := config.LoadConfig(opts.ConfigFile)
		if err != nil {
			return nil, nil, err
		}
		ks, err := cfg.KeySet(opts.KeySet)
		if err != nil {
			return nil, nil, err
		}
		_, key, err = ks.Load()
		if err != nil {
			return nil, nil, err
		}
		profile, err := cfg.Profile(opts.Profile)
		if err != nil {
			return nil, nil, err
		}
		sigOpts, err = profile.Options(now)
		if err != nil {
			return nil, nil, err
		}

	case opts.PFXFile != "":
		cred, err := keys.LoadPKCS12(opts.PFXFile, opts.Passphrase)
		if err != nil {
			return nil, nil, err
		}
		key = cred.PrivateKey

	case opts.CertFile != "" && opts.KeyFile != "":
		var passphrase []byte
		if opts.Passphrase != "" {
			passphrase = []byte(opts.Passphrase)
		}
		_, k, err := keys.LoadCertAndKeyFromPemDer(opts.CertFile, opts.KeyFile, passphrase)
		if err != nil {
			return nil, nil, err
		}
		key = k

	default:
		return nil, nil, fmt.Errorf("no signing credentials: use -cert/-key, -p12 or -config")
	}

	// Flags override profile values.
	if opts.Name != "" {
		sigOpts.Name = opts.Name
	}
	if opts.Location != "" {
		sigOpts.Location = opts.Location
	}
	if opts.Reason != "" {
		sigOpts.Reason = opts.Reason
	}
	if opts.Contact != "" {
		sigOpts.ContactInfo = opts.Contact
	}
	if opts.Reserve > 0 {
		sigOpts.BytesReserved = opts.Reserve
	}
	return key, sigOpts, nil
}

// attachSignatureField wires a signature dictionary into the document
// through an AcroForm field and a widget annotation on the first page.
func attachSignatureField(doc *writer.Document, fieldName string, sigDict *generic.DictionaryObject) {
	catalog := resolveCatalog(doc)
	if catalog == nil {
		return
	}

	sigRef := generic.NewIndirectObject(sigDict)

	field := generic.NewDictionary()
	field.Set(generic.NameType, nameAnnot)
	field.Set(nameSubtype, nameWidget)
	field.Set(nameFT, generic.NameSig)
	field.Set(nameT, generic.NewTextString(fieldName))
	field.Set(nameValue, sigRef)
	field.Set(nameRect, generic.NewArray(
		generic.IntegerObject(0), generic.IntegerObject(0),
		generic.IntegerObject(0), generic.IntegerObject(0),
	))
	field.Set(nameF, generic.IntegerObject(132))
	fieldRef := generic.NewIndirectObject(field)

	acroForm := generic.NewDictionary()
	acroForm.Set(nameFields, generic.NewArray(fieldRef))
	acroForm.Set(nameSigFlags, generic.IntegerObject(3))
	catalog.Set(nameAcroForm, acroForm)

	if page := firstPage(catalog); page != nil {
		page.Set(nameAnnots, generic.NewArray(fieldRef))
		field.Set(nameP, generic.NewIndirectObject(page))
	}
}

// resolveCatalog returns the catalog dictionary behind the trailer's
// /Root entry.
func resolveCatalog(doc *writer.Document) *generic.DictionaryObject {
	root := doc.Root()
	if ref, ok := root.(*generic.IndirectObject); ok {
		root = ref.Object
	}
	catalog, _ := root.(*generic.DictionaryObject)
	return catalog
}

// firstPage walks /Pages /Kids to the first page dictionary.
func firstPage(catalog *generic.DictionaryObject) *generic.DictionaryObject {
	node := catalog.Get(namePages)
	if ref, ok := node.(*generic.IndirectObject); ok {
		node = ref.Object
	}
	pages, ok := node.(*generic.DictionaryObject)
	if !ok {
		return nil
	}
	kids, ok := pages.Get(nameKids).(*generic.ArrayObject)
	if !ok || kids.Len() == 0 {
		return nil
	}
	kid := kids.Get(0)
	if ref, ok := kid.(*generic.IndirectObject); ok {
		kid = ref.Object
	}
	page, _ := kid.(*generic.DictionaryObject)
	return page
}
