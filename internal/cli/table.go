package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const defaultTermWidth = 80

// getTermWidth returns the current terminal width, defaulting to 80.
func getTermWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return defaultTermWidth
}

// isTTY reports whether w is connected to a terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// bold wraps s in ANSI bold escape codes.
func bold(s string, color bool) string {
	if !color {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

// truncate shortens a string to max characters, appending "..." if truncated.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max < 4 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// Table accumulates rows and renders them on Flush with each column
// padded to its widest cell. The header row is bold when the writer is
// a terminal. Padding is computed on plain text, so bold is applied
// only at render time.
type Table struct {
	w       io.Writer
	color   bool
	width   int
	headers []string
	rows    [][]string
}

// NewTable creates a Table that writes to w with an optional header row.
func NewTable(w io.Writer, headers ...string) *Table {
	color := isTTY(w)
	width := defaultTermWidth
	if color {
		width = getTermWidth()
	}
	return &Table{w: w, color: color, width: width, headers: headers}
}

// Row buffers a data row for the next Flush.
func (t *Table) Row(vals ...string) {
	t.rows = append(t.rows, vals)
}

// Flush renders all buffered rows and clears the buffer.
func (t *Table) Flush() error {
	var widths []int
	grow := func(cells []string) {
		for i, c := range cells {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}
	grow(t.headers)
	for _, r := range t.rows {
		grow(r)
	}

	if len(t.headers) > 0 {
		if err := t.writeRow(t.headers, widths, true); err != nil {
			return err
		}
	}
	for _, r := range t.rows {
		if err := t.writeRow(r, widths, false); err != nil {
			return err
		}
	}
	t.rows = nil
	return nil
}

func (t *Table) writeRow(cells []string, widths []int, header bool) error {
	var b strings.Builder
	for i, c := range cells {
		pad := widths[i] - len(c)
		if header {
			c = bold(c, t.color)
		}
		b.WriteString(c)
		if i < len(cells)-1 {
			b.WriteString(strings.Repeat(" ", pad+2))
		}
	}
	_, err := fmt.Fprintln(t.w, b.String())
	return err
}

// Bold wraps text in ANSI bold if color is enabled for this table.
func (t *Table) Bold(s string) string {
	return bold(s, t.color)
}

// Width returns the detected terminal width.
// Returns defaultTermWidth (80) when output is not a TTY.
func (t *Table) Width() int {
	return t.width
}
