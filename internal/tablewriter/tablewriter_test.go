package tablewriter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func render(fn func(w *Writer)) string {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	fn(w)
	w.Render()
	return buf.String()
}

func TestEmptyTable(t *testing.T) {
	require.Empty(t, render(func(w *Writer) {}))
}

func TestHeaderAndRows(t *testing.T) {
	out := render(func(w *Writer) {
		w.Header([]string{"Skill", "Runs", "Role"})
		w.Append([]string{"square_root", "12", "mathematics"})
		w.Append([]string{"fear", "0", "emotional_response"})
	})
	expected := `+-------------+------+--------------------+
| Skill       | Runs | Role               |
+-------------+------+--------------------+
| square_root | 12   | mathematics        |
| fear        | 0    | emotional_response |
+-------------+------+--------------------+
`
	require.Equal(t, expected, out)
}

func TestRowsWithoutHeader(t *testing.T) {
	out := render(func(w *Writer) {
		w.Append([]string{"getTime", "6/6"})
		w.Append([]string{"calculate", "5/6"})
	})
	expected := `+-----------+-----+
| getTime   | 6/6 |
| calculate | 5/6 |
+-----------+-----+
`
	require.Equal(t, expected, out)
}

func TestVaryingColumnCounts(t *testing.T) {
	out := render(func(w *Writer) {
		w.SetHeader([]string{"A", "B", "C"})
		w.Append([]string{"1"})
		w.Append([]string{"1", "2", "3", "4"})
	})
	expected := `+---+---+---+
| A | B | C |
+---+---+---+
| 1 |   |   |
| 1 | 2 | 3 |
+---+---+---+
`
	require.Equal(t, expected, out)
}

func TestWideRunes(t *testing.T) {
	out := render(func(w *Writer) {
		w.Header([]string{"Phrase", "Hits"})
		w.Append([]string{"√81 = ?", "3"})
		w.Append([]string{"日本語", "1"})
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	for _, line := range lines[1:] {
		require.Equal(t, displayWidth(lines[0]), displayWidth(line), line)
	}
}

func TestANSICells(t *testing.T) {
	out := render(func(w *Writer) {
		w.Header([]string{"Status", "Skill"})
		w.Append([]string{"\033[32mPASS\033[0m", "getTime"})
		w.Append([]string{"\033[31mFAIL\033[0m", "square_root"})
	})
	require.Contains(t, out, "\033[32mPASS\033[0m")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for _, line := range lines {
		require.Equal(t, displayWidth(lines[0]), displayWidth(line))
	}
}

func TestSetMaxWidth(t *testing.T) {
	out := render(func(w *Writer) {
		w.Header([]string{"Name", "Description"})
		w.SetMaxWidth(1, 12)
		w.Append([]string{"getWeather", "Use when the user asks about weather conditions"})
		w.Append([]string{"fear", "\033[31mcolored cells are left alone\033[0m"})
	})
	require.Contains(t, out, "| Use when ... ")
	require.NotContains(t, out, "weather")
	require.Contains(t, out, "colored cells are left alone")
}

func TestNewlinesFlattened(t *testing.T) {
	out := render(func(w *Writer) {
		w.Append([]string{"line one\nline two"})
	})
	require.Contains(t, out, "| line one line two |")
}
