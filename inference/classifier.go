// Package inference runs a pre-trained churn classifier over tables that are
// already aligned to its feature schema.
package inference

import "github.com/liamcoop/churn/schema"

// Classifier scores aligned rows. Each row holds one cell per required
// column, in RequiredColumns order. PredictProbability returns one churn
// probability per row.
type Classifier interface {
	RequiredColumns() []string
	PredictProbability(rows [][]schema.Cell) ([]float64, error)
}

// ConcurrencySafe is implemented by classifiers that may be invoked from
// several goroutines at once. Classifiers that do not implement it, or
// report false, are serialized by the Runner.
type ConcurrencySafe interface {
	ConcurrencySafe() bool
}

func isConcurrencySafe(c Classifier) bool {
	cs, ok := c.(ConcurrencySafe)
	return ok && cs.ConcurrencySafe()
}
