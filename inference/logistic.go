package inference

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/liamcoop/churn/schema"
)

// LogisticParams are the fitted parameters of a logistic regression over
// the feature columns.
type LogisticParams struct {
	Intercept float64 `json:"intercept"`
	// Weights holds one coefficient per numeric feature.
	Weights map[string]float64 `json:"weights"`
	// Categories holds one-hot coefficients per categorical feature. Unknown
	// or missing categories contribute nothing.
	Categories map[string]map[string]float64 `json:"categories"`
	// Impute supplies a value for null numeric cells.
	Impute map[string]float64 `json:"impute"`
}

// LogisticClassifier scores rows with sigmoid(intercept + Σ features).
// It holds no mutable state.
type LogisticClassifier struct {
	columns []string
	params  LogisticParams
}

// NewLogisticClassifier validates that every parameter names a feature
// column and that no feature is both numeric and categorical.
func NewLogisticClassifier(columns []string, params LogisticParams) (*LogisticClassifier, error) {
	refs := []paramReferences{
		{table: "weights", names: sortedKeys(params.Weights)},
		{table: "categories", names: sortedKeys(params.Categories)},
		{table: "impute", names: sortedKeys(params.Impute)},
	}
	if err := validateReferences(columns, refs); err != nil {
		return nil, err
	}
	for _, name := range sortedKeys(params.Categories) {
		if _, ok := params.Weights[name]; ok {
			return nil, fmt.Errorf("feature column %q has both a numeric weight and a category table", name)
		}
	}

	return &LogisticClassifier{
		columns: append([]string(nil), columns...),
		params:  params,
	}, nil
}

func (c *LogisticClassifier) RequiredColumns() []string {
	return append([]string(nil), c.columns...)
}

func (c *LogisticClassifier) ConcurrencySafe() bool { return true }

func (c *LogisticClassifier) PredictProbability(rows [][]schema.Cell) ([]float64, error) {
	probs := make([]float64, len(rows))
	for i, row := range rows {
		z, err := c.linear(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		probs[i] = sigmoid(z)
	}
	return probs, nil
}

func (c *LogisticClassifier) linear(row []schema.Cell) (float64, error) {
	z := c.params.Intercept
	for j, name := range c.columns {
		cell := row[j]

		if table, ok := c.params.Categories[name]; ok {
			if !cell.IsNull() {
				z += table[strings.TrimSpace(cell.Value)]
			}
			continue
		}

		weight, ok := c.params.Weights[name]
		if !ok {
			continue
		}

		x, err := c.numeric(name, cell)
		if err != nil {
			return 0, err
		}
		z += weight * x
	}
	return z, nil
}

func (c *LogisticClassifier) numeric(name string, cell schema.Cell) (float64, error) {
	if cell.IsNull() {
		if v, ok := c.params.Impute[name]; ok {
			return v, nil
		}
		return 0, fmt.Errorf("column %q is missing and has no imputation value", name)
	}

	x, err := strconv.ParseFloat(strings.TrimSpace(cell.Value), 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: value %q is not numeric", name, cell.Value)
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("column %q: value %q is not finite", name, cell.Value)
	}
	return x, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
