package domain

// Table is a parsed tabular section: one header row plus zero or more data
// rows, all fields as raw strings in source column order.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// ColumnIndex returns the position of the named column, matching the header
// text exactly.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, h := range t.Headers {
		if h == name {
			return i, true
		}
	}
	return 0, false
}

// HasColumns reports whether every named column is present.
func (t *Table) HasColumns(names ...string) bool {
	for _, name := range names {
		if _, ok := t.ColumnIndex(name); !ok {
			return false
		}
	}
	return true
}

// RowCount reports the number of data rows.
func (t *Table) RowCount() int {
	return len(t.Rows)
}
