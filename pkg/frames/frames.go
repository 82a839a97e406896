// Package frames provides the tabular and numeric-array values available
// inside notebook cells: a small column-oriented Frame that renders itself
// as HTML, and a float64 Array with shape metadata.
package frames

import (
	"fmt"
	"html"
	"strings"
)

// Frame is a fixed-column table built row by row.
type Frame struct {
	columns []string
	rows    [][]any
}

// New creates a frame with the given column names.
func New(columns ...string) *Frame {
	return &Frame{columns: columns}
}

// Append adds one row. The number of values must match the column count.
func (f *Frame) Append(values ...any) *Frame {
	if len(values) != len(f.columns) {
		panic(fmt.Sprintf("frames: row has %d values, frame has %d columns", len(values), len(f.columns)))
	}
	row := make([]any, len(values))
	copy(row, values)
	f.rows = append(f.rows, row)
	return f
}

// Shape returns (rows, columns).
func (f *Frame) Shape() (int, int) {
	return len(f.rows), len(f.columns)
}

// Columns returns the column names.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

// Head returns a new frame with at most n leading rows.
func (f *Frame) Head(n int) *Frame {
	if n > len(f.rows) {
		n = len(f.rows)
	}
	out := New(f.columns...)
	for _, row := range f.rows[:n] {
		out.Append(row...)
	}
	return out
}

// Column returns the values of the named column, or nil if unknown.
func (f *Frame) Column(name string) []any {
	idx := -1
	for i, c := range f.columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]any, len(f.rows))
	for i, row := range f.rows {
		out[i] = row[idx]
	}
	return out
}

// RenderHTML renders the frame as an HTML table.
func (f *Frame) RenderHTML() string {
	var b strings.Builder
	b.WriteString(`<table class="frame"><thead><tr>`)
	for _, c := range f.columns {
		b.WriteString("<th>")
		b.WriteString(html.EscapeString(c))
		b.WriteString("</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	for _, row := range f.rows {
		b.WriteString("<tr>")
		for _, v := range row {
			b.WriteString("<td>")
			b.WriteString(html.EscapeString(fmt.Sprintf("%v", v)))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

// String renders a plain-text table.
func (f *Frame) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(f.columns, "\t"))
	b.WriteByte('\n')
	for _, row := range f.rows {
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = fmt.Sprintf("%v", v)
		}
		b.WriteString(strings.Join(parts, "\t"))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
