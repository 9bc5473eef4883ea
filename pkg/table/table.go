package table

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"

	"github.com/synaptica-ai/prelude-parser/pkg/flatfile"
	"github.com/synaptica-ai/prelude-parser/pkg/naming"
	"github.com/synaptica-ai/prelude-parser/pkg/value"
)

// Table is a column-oriented view of records. Missing cells are Null.
type Table struct {
	Columns []string
	rows    [][]value.Value
}

type Options struct {
	Convention naming.Convention
	// SortColumns orders columns by name instead of first appearance.
	SortColumns bool
}

// FromRecords builds a table from records, possibly of different forms.
// Column names are the field names spelled with opts.Convention.
func FromRecords(records []flatfile.Record, opts Options) *Table {
	t := &Table{}
	index := make(map[string]int)
	for _, rec := range records {
		for name := range rec.Fields.All() {
			col := opts.Convention.Apply(name)
			if _, ok := index[col]; !ok {
				index[col] = len(t.Columns)
				t.Columns = append(t.Columns, col)
			}
		}
	}
	if opts.SortColumns {
		sort.Strings(t.Columns)
		for i, col := range t.Columns {
			index[col] = i
		}
	}

	t.rows = make([][]value.Value, 0, len(records))
	for _, rec := range records {
		row := make([]value.Value, len(t.Columns))
		for name, v := range rec.Fields.All() {
			row[index[opts.Convention.Apply(name)]] = v
		}
		t.rows = append(t.rows, row)
	}
	return t
}

func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []value.Value {
	return append([]value.Value(nil), t.rows[i]...)
}

// Rows returns a copy of every row in table order.
func (t *Table) Rows() [][]value.Value {
	out := make([][]value.Value, len(t.rows))
	for i := range t.rows {
		out[i] = t.Row(i)
	}
	return out
}

// Column returns the values of a column, or nil when it does not exist.
func (t *Table) Column(name string) []value.Value {
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]value.Value, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[idx]
	}
	return out
}

// WriteCSV writes a header and one line per row. Null cells are empty and
// dates use value.DateLayout.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	line := make([]string, len(t.Columns))
	for _, row := range t.rows {
		for i, v := range row {
			line[i] = v.String()
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalJSON writes {"column": [values...]} with columns in table order.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range t.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		values, err := json.Marshal(t.Column(col))
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(values)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
