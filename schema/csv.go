package schema

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoHeader is returned by ReadCSV when the input has no header row.
var ErrNoHeader = errors.New("csv has no header row")

// nullTokens are the cell spellings read as missing values.
var nullTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
}

// ReadCSV parses a CSV document with a header row into a Table. Every record
// must have as many fields as the header.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		columns[i] = strings.TrimSpace(h)
	}

	table := &Table{Columns: columns}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}

		row := make([]Cell, len(record))
		for i, v := range record {
			if nullTokens[strings.TrimSpace(v)] {
				row[i] = Null
			} else {
				row[i] = Value(v)
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}
