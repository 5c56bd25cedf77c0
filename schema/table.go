package schema

// Cell is a single table value. A cell with Valid == false is null.
type Cell struct {
	Value string
	Valid bool
}

// Null is the sentinel used for missing values and unresolved columns.
var Null = Cell{}

// Value returns a non-null cell holding s.
func Value(s string) Cell {
	return Cell{Value: s, Valid: true}
}

// IsNull reports whether the cell carries no value.
func (c Cell) IsNull() bool {
	return !c.Valid
}

// Table is an in-memory tabular view: named columns plus rows accessed by
// position. Every row has len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]Cell
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the column with exactly this name, or
// -1. A repeated header resolves to its last occurrence.
func (t *Table) ColumnIndex(name string) int {
	for i := len(t.Columns) - 1; i >= 0; i-- {
		if t.Columns[i] == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column's cells, or false if absent.
func (t *Table) Column(name string) ([]Cell, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]Cell, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// Mapping maps a required column name to an uploaded column name. An empty
// value means the required column is unresolved.
//
// A nil Mapping and an empty non-nil Mapping are different: nil means the
// caller supplied no explicit mapping at all.
type Mapping map[string]string
