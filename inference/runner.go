package inference

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/liamcoop/churn/internal/metrics"
	"github.com/liamcoop/churn/schema"
)

// DefaultThreshold is the decision threshold used when a bundle omits one.
const DefaultThreshold = 0.6

// Result is the outcome for one aligned row.
type Result struct {
	Probability float64
	Label       int
}

// Runner invokes a classifier once per batch and applies the decision
// threshold.
type Runner struct {
	classifier Classifier
	threshold  float64
	serialize  bool
	mu         sync.Mutex
}

// NewRunner creates a runner for c. Calls into c are serialized unless c
// implements ConcurrencySafe and reports true.
func NewRunner(c Classifier, threshold float64) *Runner {
	return &Runner{
		classifier: c,
		threshold:  threshold,
		serialize:  !isConcurrencySafe(c),
	}
}

// Threshold returns the decision threshold.
func (r *Runner) Threshold() float64 {
	return r.threshold
}

// Run scores every row of an aligned table. The table must have exactly the
// classifier's required columns. Any classifier error, a probability count
// that differs from the row count, or a probability that is NaN or outside
// [0,1] yields *InferenceFailure. An empty table yields an empty result
// without invoking the classifier.
func (r *Runner) Run(table schema.Table) ([]Result, error) {
	n := table.NumRows()
	if n == 0 {
		return []Result{}, nil
	}

	width := len(r.classifier.RequiredColumns())
	for i, row := range table.Rows {
		if len(row) != width {
			return nil, r.fail(fmt.Errorf("row %d has %d cells, classifier expects %d", i, len(row), width))
		}
	}

	probs, err := r.predict(table.Rows)
	if err != nil {
		return nil, r.fail(err)
	}
	if len(probs) != n {
		return nil, r.fail(fmt.Errorf("classifier returned %d probabilities for %d rows", len(probs), n))
	}

	results := make([]Result, n)
	for i, p := range probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, r.fail(fmt.Errorf("row %d: probability %v is outside [0,1]", i, p))
		}
		label := 0
		if p >= r.threshold {
			label = 1
		}
		results[i] = Result{Probability: p, Label: label}
	}

	return results, nil
}

func (r *Runner) predict(rows [][]schema.Cell) ([]float64, error) {
	if r.serialize {
		r.mu.Lock()
		defer r.mu.Unlock()
	}

	start := time.Now()
	defer func() {
		metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	}()

	return r.classifier.PredictProbability(rows)
}

func (r *Runner) fail(cause error) error {
	metrics.InferenceFailuresTotal.Inc()
	return &InferenceFailure{Cause: cause}
}
