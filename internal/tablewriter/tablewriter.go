// Package tablewriter renders bordered text tables for terminal output.
package tablewriter

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// Writer collects a header and rows and renders them as a table.
type Writer struct {
	out        io.Writer
	headers    []string
	rows       [][]string
	widths     []int
	maxWidths  map[int]int
	maxColumns int
}

func stripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// displayWidth is the number of terminal cells s occupies, ignoring ANSI
// escapes and counting wide runes as two.
func displayWidth(s string) int {
	return runewidth.StringWidth(stripANSI(s))
}

// NewWriter creates a table writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		out:       w,
		rows:      make([][]string, 0),
		widths:    make([]int, 0),
		maxWidths: map[int]int{},
	}
}

// SetHeader sets the header row. It also fixes the column count.
func (t *Writer) SetHeader(headers []string) {
	t.headers = headers
	t.maxColumns = len(headers)
	t.updateWidths(headers)
}

// Header is an alias for SetHeader.
func (t *Writer) Header(headers []string) {
	t.SetHeader(headers)
}

// SetMaxWidth truncates cells of column col to width cells. Set it before
// appending rows. Cells carrying ANSI escapes are never truncated.
func (t *Writer) SetMaxWidth(col, width int) {
	t.maxWidths[col] = width
}

// Append adds a row.
func (t *Writer) Append(row []string) {
	row = append([]string(nil), row...)
	for i, cell := range row {
		cell = strings.ReplaceAll(cell, "\n", " ")
		if max, ok := t.maxWidths[i]; ok && max > 0 && cell == stripANSI(cell) {
			cell = runewidth.Truncate(cell, max, "...")
		}
		row[i] = cell
	}
	t.rows = append(t.rows, row)
	t.updateWidths(row)
}

func (t *Writer) updateWidths(row []string) {
	limit := len(row)
	if t.maxColumns > 0 && limit > t.maxColumns {
		limit = t.maxColumns
	}
	for i := 0; i < limit; i++ {
		if i >= len(t.widths) {
			t.widths = append(t.widths, 0)
		}
		if width := displayWidth(row[i]); width > t.widths[i] {
			t.widths[i] = width
		}
	}
	if t.maxColumns == 0 && len(t.widths) > t.maxColumns {
		t.maxColumns = len(t.widths)
	}
}

// Render writes the table. An empty table renders nothing.
func (t *Writer) Render() {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return
	}
	t.printBorder()
	if len(t.headers) > 0 {
		t.printRow(t.headers)
		t.printBorder()
	}
	for _, row := range t.rows {
		t.printRow(row)
	}
	t.printBorder()
}

func (t *Writer) printBorder() {
	fmt.Fprint(t.out, "+")
	for _, width := range t.widths {
		fmt.Fprint(t.out, strings.Repeat("-", width+2))
		fmt.Fprint(t.out, "+")
	}
	fmt.Fprintln(t.out)
}

func (t *Writer) printRow(row []string) {
	fmt.Fprint(t.out, "|")
	for i := range t.widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		padding := t.widths[i] - displayWidth(cell)
		fmt.Fprintf(t.out, " %s%s |", cell, strings.Repeat(" ", padding))
	}
	fmt.Fprintln(t.out)
}
