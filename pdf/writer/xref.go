package writer

import (
	"fmt"
	"sort"

	"github.com/georgepadayatti/pdfcos/pdf/generic"
)

// XRefEntry records where one object was written. Each entry is created
// exactly once, during body emission, and consumed once when the xref
// section is emitted.
type XRefEntry struct {
	Offset uint64
	Key    generic.ObjectKey
	Free   bool
}

// xrefSubsection is a run of consecutive object numbers.
type xrefSubsection struct {
	first   int
	entries []XRefEntry
}

// sortXRefEntries orders entries by ascending object number.
func sortXRefEntries(entries []XRefEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key.Number < entries[j].Key.Number
	})
}

// groupXRefEntries splits sorted entries into subsections of consecutive
// object numbers.
func groupXRefEntries(entries []XRefEntry) []xrefSubsection {
	var subsections []xrefSubsection
	for _, entry := range entries {
		n := len(subsections)
		if n > 0 && entry.Key.Number == subsections[n-1].first+len(subsections[n-1].entries) {
			subsections[n-1].entries = append(subsections[n-1].entries, entry)
			continue
		}
		subsections = append(subsections, xrefSubsection{
			first:   entry.Key.Number,
			entries: []XRefEntry{entry},
		})
	}
	return subsections
}

// writeXRefTable emits the classic cross-reference table: the "xref"
// keyword, then per subsection a "first count" line followed by fixed
// 20-byte entries (10-digit offset, space, 5-digit generation, space,
// n or f, CRLF).
func writeXRefTable(w *CountingWriter, entries []XRefEntry) error {
	sortXRefEntries(entries)

	if err := w.WriteString("xref"); err != nil {
		return err
	}
	if err := w.WriteLF(); err != nil {
		return err
	}

	for _, sub := range groupXRefEntries(entries) {
		if err := w.WriteString(fmt.Sprintf("%d %d", sub.first, len(sub.entries))); err != nil {
			return err
		}
		if err := w.WriteLF(); err != nil {
			return err
		}
		for _, entry := range sub.entries {
			kind := byte('n')
			if entry.Free {
				kind = 'f'
			}
			line := fmt.Sprintf("%010d %05d %c", entry.Offset, entry.Key.Generation, kind)
			if err := w.WriteString(line); err != nil {
				return err
			}
			if err := w.WriteCRLF(); err != nil {
				return err
			}
		}
	}
	return nil
}
