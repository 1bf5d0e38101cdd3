package main

import (
	"strings"
	"testing"
)

func TestRenderTableWrapsLongColumns(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("destination already exists ", 6))
	out := renderTable([]column{{title: "Key"}, {title: "Value", wrap: true}}, [][]string{
		{"message", long},
		{"short"},
	})

	for _, line := range strings.Split(out, "\n") {
		if width := len([]rune(line)); width > wrapWidth+20 {
			t.Fatalf("line wider than wrapped column allows (%d): %q", width, line)
		}
	}
	if !strings.Contains(out, "short") {
		t.Fatalf("row with missing cells not rendered:\n%s", out)
	}
	if renderTable(nil, nil) != "" {
		t.Fatal("expected empty output without columns")
	}
}
