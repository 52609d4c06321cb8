package sheet

import (
	"fmt"
	"strconv"
	"strings"
)

// MalformedRowError reports a row that does not fit its table's schema.
type MalformedRowError struct {
	Table  string
	Row    int
	Column string
	Reason string
}

func (e *MalformedRowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s row %d: %s", e.Table, e.Row, e.Reason)
	}
	return fmt.Sprintf("%s row %d, column %s: %s", e.Table, e.Row, e.Column, e.Reason)
}

type Column struct {
	Name     string
	Required bool
	Integer  bool
}

// Schema describes the columns of one table, in sheet order.
type Schema struct {
	Table   string
	Columns []Column
}

// Record is a row that passed schema validation. Cells always has exactly one
// entry per schema column.
type Record struct {
	Row   int
	Cells []string
	Raw   []string
}

func (s Schema) Header() []string {
	h := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		h[i] = c.Name
	}
	return h
}

func (s Schema) index(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	panic("sheet: unknown column " + name + " in " + s.Table)
}

// Parse validates a single row. Short rows are padded with empty cells.
func (s Schema) Parse(row Row) (Record, error) {
	if used := len(trimTrailing(row.Cells)); used > len(s.Columns) {
		return Record{}, &MalformedRowError{
			Table:  s.Table,
			Row:    row.Num,
			Reason: fmt.Sprintf("expected at most %d columns, got %d", len(s.Columns), used),
		}
	}
	cells := make([]string, len(s.Columns))
	for i := range s.Columns {
		if i < len(row.Cells) {
			cells[i] = strings.TrimSpace(row.Cells[i])
		}
	}
	for i, c := range s.Columns {
		if c.Required && cells[i] == "" {
			return Record{}, &MalformedRowError{Table: s.Table, Row: row.Num, Column: c.Name, Reason: "empty"}
		}
		if c.Integer && cells[i] != "" {
			n, err := strconv.Atoi(cells[i])
			if err != nil {
				return Record{}, &MalformedRowError{Table: s.Table, Row: row.Num, Column: c.Name, Reason: fmt.Sprintf("%q is not an integer", cells[i])}
			}
			if n < 0 {
				return Record{}, &MalformedRowError{Table: s.Table, Row: row.Num, Column: c.Name, Reason: "negative"}
			}
		}
	}
	return Record{Row: row.Num, Cells: cells, Raw: row.Cells}, nil
}

// Records parses every data row of a table, skipping the header and blank
// rows. It stops at the first malformed row.
func (s Schema) Records(rows []Row) ([]Record, error) {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		if row.Num <= 1 || len(trimTrailing(row.Cells)) == 0 {
			continue
		}
		rec, err := s.Parse(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Get returns the cell for the named column.
func (s Schema) Get(r Record, column string) string {
	return r.Cells[s.index(column)]
}

// Int returns an integer column. Parse has already checked the value, so an
// empty cell reads as zero.
func (s Schema) Int(r Record, column string) int {
	n, _ := strconv.Atoi(r.Cells[s.index(column)])
	return n
}

// Row builds the cells for a new row from column values.
func (s Schema) Row(values map[string]string) []string {
	cells := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		cells[i] = values[c.Name]
	}
	return cells
}

// With returns a copy of cells with column set to value.
func (s Schema) With(cells []string, column, value string) []string {
	out := make([]string, len(s.Columns))
	copy(out, cells)
	out[s.index(column)] = value
	return out
}
