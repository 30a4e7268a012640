// Package table loads tabular point-of-sale exports into a string-typed
// gota DataFrame. Typing and validation happen downstream.
package table

import (
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/dvloznov/sales-analyst/internal/domain"
)

// missingValues are cell spellings read as absent.
var missingValues = []string{"", "NA", "NaN", "<nil>", "null", "NULL"}

// Table is a raw input table: a header plus string cells.
type Table struct {
	name   string
	header []string
	frame  dataframe.DataFrame
	rows   int
}

// FromRecords builds a Table from a header row followed by data rows.
// Fully blank rows are skipped and short rows are padded. A row with more
// non-blank cells than the header is a ParseError.
func FromRecords(name string, records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, &domain.ParseError{Err: fmt.Errorf("%s: no header row", name)}
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	width := len(header)

	data := make([][]string, 0, len(records)-1)
	for i, rec := range records[1:] {
		if blankRow(rec) {
			continue
		}
		if len(rec) > width {
			if !blankRow(rec[width:]) {
				return nil, &domain.ParseError{
					Row: i + 1,
					Err: fmt.Errorf("expected %d fields, found %d", width, len(rec)),
				}
			}
			rec = rec[:width]
		}
		row := make([]string, width)
		copy(row, rec)
		data = append(data, row)
	}

	t := &Table{name: name, header: header, rows: len(data)}
	if len(data) == 0 {
		return t, nil
	}

	frame := dataframe.LoadRecords(
		append([][]string{header}, data...),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(missingValues),
	)
	if frame.Err != nil {
		return nil, &domain.ParseError{Err: fmt.Errorf("%s: load records: %w", name, frame.Err)}
	}
	t.frame = frame
	return t, nil
}

// Name returns the source name the table was read from.
func (t *Table) Name() string {
	return t.name
}

// Columns returns the header in file order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.header))
	copy(out, t.header)
	return out
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return t.rows
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	return t.index(name) >= 0
}

// Column returns the cells of the named column with missing values as "".
// When a name appears more than once the first column wins.
func (t *Table) Column(name string) ([]string, bool) {
	idx := t.index(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]string, t.rows)
	if t.rows == 0 {
		return out, true
	}

	col := t.frame.Col(t.frame.Names()[idx])
	for i := 0; i < col.Len(); i++ {
		elem := col.Elem(i)
		if elem.IsNA() {
			continue
		}
		out[i] = elem.String()
	}
	return out, true
}

// Frame exposes the underlying DataFrame. It has no columns when the table
// has no data rows.
func (t *Table) Frame() dataframe.DataFrame {
	return t.frame
}

func (t *Table) index(name string) int {
	for i, h := range t.header {
		if h == name {
			return i
		}
	}
	return -1
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
