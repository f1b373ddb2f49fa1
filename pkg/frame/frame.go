// Package frame holds the untyped tabular input of the normalization engine
// and the loaders that build it from raw exports.
package frame

import "strings"

// RawFrame is an arbitrary table: named columns and string cells. Rows are
// padded or truncated to the column count on construction.
type RawFrame struct {
	Columns []string
	Rows    [][]string
}

// New builds a frame, trimming column names and squaring ragged rows
func New(columns []string, rows [][]string) *RawFrame {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = strings.TrimSpace(c)
	}

	squared := make([][]string, 0, len(rows))
	for _, row := range rows {
		r := make([]string, len(cols))
		copy(r, row)
		squared = append(squared, r)
	}
	return &RawFrame{Columns: cols, Rows: squared}
}

// Len returns the row count
func (f *RawFrame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Empty reports whether the frame has no rows
func (f *RawFrame) Empty() bool {
	return f.Len() == 0
}

// Index returns the position of the exactly named column, or -1
func (f *RawFrame) Index(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// IndexFold returns the position of the column whose name matches name
// ignoring case and surrounding blanks, or -1
func (f *RawFrame) IndexFold(name string) int {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, c := range f.Columns {
		if strings.ToLower(c) == want {
			return i
		}
	}
	return -1
}

// Cell returns the trimmed cell at row r and column c, or "" when out of range
func (f *RawFrame) Cell(r, c int) string {
	if c < 0 || r < 0 || r >= len(f.Rows) || c >= len(f.Rows[r]) {
		return ""
	}
	return strings.TrimSpace(f.Rows[r][c])
}

// Column returns a copy of column c
func (f *RawFrame) Column(c int) []string {
	out := make([]string, len(f.Rows))
	for r := range f.Rows {
		out[r] = f.Cell(r, c)
	}
	return out
}
