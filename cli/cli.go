// Package cli provides the command-line interface for writing, updating
// and signing PDF files.
package cli

import (
	"fmt"
	"os"
)

// Version information
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// osExit is a variable for os.Exit to allow testing
var osExit = os.Exit

// Run executes the CLI with the given arguments.
// This is the main entry point for the CLI.
func Run(args []string) {
	if len(args) < 2 {
		Usage()
		return
	}

	command := args[1]

	switch command {
	case "create":
		CreateCommand(args)
	case "update":
		UpdateCommand(args)
	case "sign":
		SignCommand(args)
	case "inspect":
		InspectCommand(args)
	case "version":
		VersionCommand()
	case "help", "-h", "--help":
		Usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		Usage()
	}
}

// Usage prints the CLI usage information.
func Usage() {
	fmt.Printf("pdfcos - PDF object graph writer\n\n")
	fmt.Printf("Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Println("Commands:")
	fmt.Println("  create   Write a minimal PDF file from scratch")
	fmt.Println("  update   Append an incremental update to an existing PDF")
	fmt.Println("  sign     Write a digitally signed PDF")
	fmt.Println("  inspect  Show the cross-reference chain of a PDF file")
	fmt.Println("  version  Show version information")
	fmt.Println("  help     Show this help message")
	fmt.Println("")
	fmt.Printf("Use '%s <command> -h' for command-specific help\n", os.Args[0])
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Printf("  %s create -title \"Report\" out.pdf\n", os.Args[0])
	fmt.Printf("  %s update -producer \"pdfcos\" in.pdf out.pdf\n", os.Args[0])
	fmt.Printf("  %s sign -cert cert.pem -key key.pem out.pdf\n", os.Args[0])
	fmt.Printf("  %s inspect document.pdf\n", os.Args[0])
}

// VersionCommand prints version information.
func VersionCommand() {
	fmt.Printf("pdfcos version %s\n", Version)
	fmt.Printf("Build time: %s\n", BuildTime)
}
