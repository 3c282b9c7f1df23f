// Command pdfcos is a CLI tool for writing, updating and signing PDF
// files.
//
// Usage:
//
//	pdfcos <command> [options] <args>
//
// Commands:
//
//	create   Write a minimal PDF file from scratch
//	update   Append an incremental update to an existing PDF
//	sign     Write a digitally signed PDF
//	inspect  Show the cross-reference chain of a PDF file
//	version  Show version information
//	help     Show help message
//
// Examples:
//
//	# Create a PDF
//	pdfcos create -title "Report" out.pdf
//
//	# Append a metadata update
//	pdfcos update -producer "pdfcos" in.pdf out.pdf
//
//	# Write a signed PDF
//	pdfcos sign -cert cert.pem -key key.pem out.pdf
package main

import (
	"os"

	"github.com/georgepadayatti/pdfcos/cli"
)

// These variables are set at build time using ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/pdfcos
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Set version info
	cli.Version = version
	cli.BuildTime = buildTime

	// Run the CLI
	cli.Run(os.Args)
}
