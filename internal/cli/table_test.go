package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		input string
		max   int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly-10", 10, "exactly-10"},
		{"this is a long string", 10, "this is..."},
		{"abc", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.input, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
		}
	}
}

func TestTableAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "NAME", "COUNT")
	tbl.Row("Bash", "120")
	tbl.Row("Read", "7")
	if err := tbl.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	// A buffer is not a TTY, so headers must be plain text.
	if strings.Contains(lines[0], "\033") {
		t.Errorf("header contains ANSI escapes for non-TTY output: %q", lines[0])
	}
	if !strings.HasPrefix(lines[0], "NAME") {
		t.Errorf("header = %q, want NAME first", lines[0])
	}
	// Columns line up: COUNT starts where the counts do.
	col := strings.Index(lines[0], "COUNT")
	if col < 0 || lines[1][col:col+3] != "120" {
		t.Errorf("columns misaligned:\n%s", buf.String())
	}
}

func TestBoldOnlyWhenColor(t *testing.T) {
	if got := bold("x", false); got != "x" {
		t.Errorf("bold without color = %q, want %q", got, "x")
	}
	if got := bold("x", true); got != "\033[1mx\033[0m" {
		t.Errorf("bold with color = %q", got)
	}
}
