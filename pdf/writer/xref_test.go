package writer

import (
	"bytes"
	"testing"

	"github.com/georgepadayatti/pdfcos/pdf/generic"
)

func entry(num int, offset uint64) XRefEntry {
	return XRefEntry{Offset: offset, Key: generic.ObjectKey{Number: num}}
}

func TestGroupXRefEntries(t *testing.T) {
	tests := []struct {
		name    string
		numbers []int
		want    [][2]int // first, count
	}{
		{"consecutive", []int{0, 1, 2, 3}, [][2]int{{0, 4}}},
		{"single gap", []int{0, 1, 5, 6}, [][2]int{{0, 2}, {5, 2}}},
		{"all isolated", []int{2, 4, 8}, [][2]int{{2, 1}, {4, 1}, {8, 1}}},
		{"single entry", []int{0}, [][2]int{{0, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := make([]XRefEntry, len(tt.numbers))
			for i, n := range tt.numbers {
				entries[i] = entry(n, uint64(n*100))
			}
			subs := groupXRefEntries(entries)
			if len(subs) != len(tt.want) {
				t.Fatalf("got %d subsections, want %d", len(subs), len(tt.want))
			}
			for i, sub := range subs {
				if sub.first != tt.want[i][0] || len(sub.entries) != tt.want[i][1] {
					t.Errorf("subsection %d = (%d, %d), want (%d, %d)",
						i, sub.first, len(sub.entries), tt.want[i][0], tt.want[i][1])
				}
			}
		})
	}
}

func TestWriteXRefTable(t *testing.T) {
	var buf bytes.Buffer
	w := NewCountingWriter(&buf, 0)

	entries := []XRefEntry{
		entry(2, 100),
		entry(1, 15),
		{Key: generic.FreeObjectKey, Free: true},
		entry(7, 200),
	}
	if err := writeXRefTable(w, entries); err != nil {
		t.Fatalf("writeXRefTable() error = %v", err)
	}

	want := "xref\n" +
		"0 3\n" +
		"0000000000 65535 f\r\n" +
		"0000000015 00000 n\r\n" +
		"0000000100 00000 n\r\n" +
		"7 1\n" +
		"0000000200 00000 n\r\n"
	if got := buf.String(); got != want {
		t.Errorf("xref table = %q, want %q", got, want)
	}
}

func TestXRefEntriesAreTwentyBytes(t *testing.T) {
	var buf bytes.Buffer
	w := NewCountingWriter(&buf, 0)

	if err := writeXRefTable(w, []XRefEntry{entry(1, 42)}); err != nil {
		t.Fatalf("writeXRefTable() error = %v", err)
	}
	lines := bytes.SplitAfter(buf.Bytes(), []byte("\n"))
	// "xref\n", "1 1\n", the entry line.
	if len(lines) < 3 {
		t.Fatalf("unexpected table layout: %q", buf.String())
	}
	if len(lines[2]) != 20 {
		t.Errorf("entry line is %d bytes, want 20: %q", len(lines[2]), lines[2])
	}
}
