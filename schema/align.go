package schema

// AlignmentResult is an uploaded table reshaped to the required schema.
type AlignmentResult struct {
	// Table has exactly the required columns, in required order. Unresolved
	// columns are filled with Null.
	Table Table
	// Unresolved lists required columns that matched nothing, in required order.
	Unresolved []string
	// Mapping is the effective required -> uploaded mapping; unresolved
	// columns map to "".
	Mapping Mapping
}

// Align builds a table shaped exactly like required from an arbitrary
// uploaded table. Each required column resolves, in order of priority, to:
//
//  1. the explicit mapping entry, when non-empty and naming an existing column
//  2. an uploaded column whose normalized name equals the required one
//  3. nothing: the column is null-filled and reported as unresolved
//
// Step 2 never uses fuzzy matching, so approximate guesses cannot reach
// inference without the caller confirming them through explicit.
func Align(table *Table, required []string, explicit Mapping) AlignmentResult {
	idx := newNormalizedIndex(table.Columns)
	n := table.NumRows()

	result := AlignmentResult{
		Table: Table{
			Columns: append([]string(nil), required...),
			Rows:    make([][]Cell, n),
		},
		Mapping: make(Mapping, len(required)),
	}
	for i := range result.Table.Rows {
		result.Table.Rows[i] = make([]Cell, len(required))
	}

	for j, req := range required {
		source, col := resolve(table, idx, req, explicit)
		result.Mapping[req] = source
		if col < 0 {
			result.Unresolved = append(result.Unresolved, req)
			for i := 0; i < n; i++ {
				result.Table.Rows[i][j] = Null
			}
			continue
		}

		for i, row := range table.Rows {
			result.Table.Rows[i][j] = row[col]
		}
	}

	return result
}

// resolve returns the uploaded column feeding req and its position, or
// ("", -1) when nothing matches.
func resolve(table *Table, idx normalizedIndex, req string, explicit Mapping) (string, int) {
	if mapped := explicit[req]; mapped != "" {
		if col := table.ColumnIndex(mapped); col >= 0 {
			return mapped, col
		}
	}
	if raw, col, ok := idx.lookup(req); ok {
		return raw, col
	}
	return "", -1
}
