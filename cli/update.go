package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/georgepadayatti/pdfcos/pdf/generic"
	"github.com/georgepadayatti/pdfcos/pdf/reader"
	"github.com/georgepadayatti/pdfcos/pdf/writer"
)

// UpdateOptions contains options for the update command.
type UpdateOptions struct {
	Title    string
	Author   string
	Producer string
}

// UpdateCommand implements the 'update' command.
func UpdateCommand(args []string) {
	updateFlags := flag.NewFlagSet("update", flag.ExitOnError)

	var opts UpdateOptions
	updateFlags.StringVar(&opts.Title, "title", "", "New document title")
	updateFlags.StringVar(&opts.Author, "author", "", "New document author")
	updateFlags.StringVar(&opts.Producer, "producer", "pdfcos", "Producer string")

	updateFlags.Usage = func() {
		fmt.Printf("Usage: %s update [options] <input.pdf> <output.pdf>\n\n", os.Args[0])
		fmt.Println("Append an incremental update that replaces the document")
		fmt.Println("information dictionary. The original bytes are preserved.")
		fmt.Println("")
		fmt.Println("Options:")
		updateFlags.PrintDefaults()
	}

	if err := updateFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}
	if updateFlags.NArg() != 2 {
		updateFlags.Usage()
		osExit(1)
	}

	if err := updatePDF(updateFlags.Arg(0), updateFlags.Arg(1), &opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
	fmt.Printf("Wrote %s\n", updateFlags.Arg(1))
}

// updatePDF appends an incremental update with a fresh /Info dictionary.
func updatePDF(inputPath, outputPath string, opts *UpdateOptions) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer in.Close()

	source, err := fileSource(in)
	if err != nil {
		return err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	w, err := writer.NewIncrementalWriter(out, source)
	if err != nil {
		return fmt.Errorf("failed to read original file: %w", err)
	}

	doc, err := incrementalDocument(source)
	if err != nil {
		return err
	}
	doc.Trailer.Set(generic.NameInfo, generic.NewIndirectObject(newInfoDict(opts, time.Now())))

	return w.Write(doc)
}

// incrementalDocument builds a document whose trailer carries over the
// original file's catalog reference and /ID first element.
func incrementalDocument(source writer.SourceFile) (*writer.Document, error) {
	prev, err := reader.ScanPrevious(source)
	if err != nil {
		return nil, err
	}
	if prev.Root == nil {
		return nil, fmt.Errorf("original trailer has no /Root entry")
	}

	doc := writer.NewDocument()
	doc.Trailer.Set(generic.NameRoot, generic.NewReference(*prev.Root))
	if prev.ID != nil {
		// The writer refreshes the second element and keeps the first.
		doc.Trailer.Set(generic.NameID, generic.NewArray(
			generic.NewHexString(prev.ID),
			generic.NewHexString(prev.ID),
		))
	}
	return doc, nil
}

// newInfoDict builds a replacement information dictionary.
func newInfoDict(opts *UpdateOptions, now time.Time) *generic.DictionaryObject {
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
	info.Set(generic.NameModDate, generic.NewTextString(writer.FormatPdfDate(now)))
	return info
}

// fileSource adapts an open file to the random-access source interface.
func fileSource(f *os.File) (writer.SourceFile, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat input file: %w", err)
	}
	return &sizedReaderAt{ReaderAt: f, size: st.Size()}, nil
}

type sizedReaderAt struct {
	io.ReaderAt
	size int64
}

func (s *sizedReaderAt) Size() int64 { return s.size }
