package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/georgepadayatti/pdfcos/pdf/reader"
)

// InspectCommand implements the 'inspect' command.
func InspectCommand(args []string) {
	inspectFlags := flag.NewFlagSet("inspect", flag.ExitOnError)

	inspectFlags.Usage = func() {
		fmt.Printf("Usage: %s inspect <input.pdf>\n\n", os.Args[0])
		fmt.Println("Show the cross-reference chain of a PDF file: the offset of")
		fmt.Println("the last xref section, the highest object number in use and")
		fmt.Println("the trailer's catalog reference.")
	}

	if err := inspectFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}
	if inspectFlags.NArg() != 1 {
		inspectFlags.Usage()
		osExit(1)
	}

	if err := inspectPDF(inspectFlags.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
}

// inspectPDF scans the xref chain and prints what an incremental update
// would see.
func inspectPDF(inputPath string) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer in.Close()

	source, err := fileSource(in)
	if err != nil {
		return err
	}

	prev, err := reader.ScanPrevious(source)
	if err != nil {
		return err
	}

	fmt.Printf("File size:          %d bytes\n", source.Size())
	fmt.Printf("Last xref section:  offset %d\n", prev.StartXRef)
	fmt.Printf("Highest object:     %d\n", prev.MaxObjectNumber)
	if prev.Root != nil {
		fmt.Printf("Catalog:            %d %d R\n", prev.Root.Number, prev.Root.Generation)
	} else {
		fmt.Println("Catalog:            not found")
	}
	if prev.Info != nil {
		fmt.Printf("Info:               %d %d R\n", prev.Info.Number, prev.Info.Generation)
	}
	return nil
}
