package inference

import "github.com/liamcoop/churn/schema"

// Model is a loaded classifier bundle: the required feature schema, the
// classifier, and the decision threshold. It is immutable after construction
// and safe to share between goroutines.
type Model struct {
	kind    string
	columns []string
	runner  *Runner
}

// NewModel wraps a classifier. The classifier's required columns are
// validated and threshold must lie in [0,1].
func NewModel(kind string, c Classifier, threshold float64) (*Model, error) {
	columns := c.RequiredColumns()
	if err := ValidateFeatureColumns(columns); err != nil {
		return nil, &ConfigurationFault{Reason: "invalid feature columns", Cause: err}
	}
	if err := validateThreshold(threshold); err != nil {
		return nil, &ConfigurationFault{Reason: "invalid threshold", Cause: err}
	}

	return &Model{
		kind:    kind,
		columns: append([]string(nil), columns...),
		runner:  NewRunner(c, threshold),
	}, nil
}

// Kind names the classifier family, e.g. "logistic" or "cel".
func (m *Model) Kind() string {
	return m.kind
}

// RequiredColumns returns a copy of the feature columns in model order.
func (m *Model) RequiredColumns() []string {
	return append([]string(nil), m.columns...)
}

// Threshold returns the decision threshold.
func (m *Model) Threshold() float64 {
	return m.runner.Threshold()
}

// Run scores an aligned table. See Runner.Run.
func (m *Model) Run(table schema.Table) ([]Result, error) {
	return m.runner.Run(table)
}
