package inference

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	maxFeatureColumns   = 1000
	maxColumnNameLength = 200
)

// ValidateFeatureColumns checks the feature metadata of a model bundle.
// Returns an error if validation fails, nil if the columns are usable.
func ValidateFeatureColumns(columns []string) error {
	if len(columns) == 0 {
		return fmt.Errorf("feature columns cannot be empty, the model must declare at least one column")
	}

	if len(columns) > maxFeatureColumns {
		return fmt.Errorf("model declares %d feature columns, maximum allowed is %d", len(columns), maxFeatureColumns)
	}

	seen := make(map[string]int, len(columns))
	for i, name := range columns {
		if err := validateColumnName(name); err != nil {
			return fmt.Errorf("invalid feature column %d (%q): %w", i, name, err)
		}

		key := strings.TrimSpace(name)
		if first, dup := seen[key]; dup {
			return fmt.Errorf("feature column %q at position %d duplicates position %d", name, i, first)
		}
		seen[key] = i
	}

	return nil
}

// validateColumnName rejects names that cannot be matched against an upload.
func validateColumnName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if n := utf8.RuneCountInString(name); n > maxColumnNameLength {
		return fmt.Errorf("column name length %d exceeds maximum of %d characters", n, maxColumnNameLength)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("column name is not valid UTF-8")
	}
	return nil
}

func validateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return fmt.Errorf("threshold %v must be within [0,1]", threshold)
	}
	return nil
}

// paramReferences lists the columns named by one classifier parameter table.
type paramReferences struct {
	table string
	names []string
}

// validateReferences ensures every column named by a classifier parameter
// table is one of the feature columns. Tables are checked in order.
func validateReferences(columns []string, refs []paramReferences) error {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}

	for _, ref := range refs {
		for _, name := range ref.names {
			if !known[name] {
				return fmt.Errorf("%s references unknown feature column %q", ref.table, name)
			}
		}
	}
	return nil
}
