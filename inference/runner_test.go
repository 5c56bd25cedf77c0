package inference

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/churn/schema"
)

type stubClassifier struct {
	columns []string
	probs   []float64
	err     error
	calls   int
}

func (s *stubClassifier) RequiredColumns() []string { return s.columns }

func (s *stubClassifier) PredictProbability(rows [][]schema.Cell) ([]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.probs, nil
}

// trackingClassifier records how many calls overlap.
type trackingClassifier struct {
	safe    bool
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (c *trackingClassifier) RequiredColumns() []string { return []string{"x"} }
func (c *trackingClassifier) ConcurrencySafe() bool { return c.safe }

func (c *trackingClassifier) PredictProbability(rows [][]schema.Cell) ([]float64, error) {
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		seen := c.maxSeen.Load()
		if n <= seen || c.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	return make([]float64, len(rows)), nil
}

func tableOf(columns []string, rows int) schema.Table {
	t := schema.Table{Columns: columns}
	for i := 0; i < rows; i++ {
		row := make([]schema.Cell, len(columns))
		for j := range row {
			row[j] = schema.Value("1")
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func TestRunner_AppliesThreshold(t *testing.T) {
	stub := &stubClassifier{columns: []string{"tenure"}, probs: []float64{0.2, 0.75, 0.59}}
	runner := NewRunner(stub, DefaultThreshold)

	results, err := runner.Run(tableOf(stub.columns, 3))
	require.NoError(t, err)

	assert.Equal(t, []Result{
		{Probability: 0.2, Label: 0},
		{Probability: 0.75, Label: 1},
		{Probability: 0.59, Label: 0},
	}, results)
	assert.Equal(t, 1, stub.calls)
}

func TestRunner_ThresholdIsInclusive(t *testing.T) {
	stub := &stubClassifier{columns: []string{"a"}, probs: []float64{0.6, 0.0, 1.0}}

	results, err := NewRunner(stub, 0.6).Run(tableOf(stub.columns, 3))
	require.NoError(t, err)

	assert.Equal(t, 1, results[0].Label)
	assert.Equal(t, 0, results[1].Label)
	assert.Equal(t, 1, results[2].Label)
}

func TestRunner_EmptyTableSkipsClassifier(t *testing.T) {
	stub := &stubClassifier{columns: []string{"a"}}

	results, err := NewRunner(stub, 0.5).Run(tableOf(stub.columns, 0))
	require.NoError(t, err)

	assert.Empty(t, results)
	assert.Equal(t, 0, stub.calls)
}

func TestRunner_Failures(t *testing.T) {
	cause := errors.New("could not convert string to float")

	tests := []struct {
		name  string
		stub  *stubClassifier
		table schema.Table
	}{
		{
			name:  "classifier error",
			stub:  &stubClassifier{columns: []string{"a"}, err: cause},
			table: tableOf([]string{"a"}, 2),
		},
		{
			name:  "count mismatch",
			stub:  &stubClassifier{columns: []string{"a"}, probs: []float64{0.1}},
			table: tableOf([]string{"a"}, 2),
		},
		{
			name:  "probability above one",
			stub:  &stubClassifier{columns: []string{"a"}, probs: []float64{0.1, 1.2}},
			table: tableOf([]string{"a"}, 2),
		},
		{
			name:  "negative probability",
			stub:  &stubClassifier{columns: []string{"a"}, probs: []float64{-0.01}},
			table: tableOf([]string{"a"}, 1),
		},
		{
			name:  "NaN probability",
			stub:  &stubClassifier{columns: []string{"a"}, probs: []float64{math.NaN()}},
			table: tableOf([]string{"a"}, 1),
		},
		{
			name:  "row width mismatch",
			stub:  &stubClassifier{columns: []string{"a", "b"}, probs: []float64{0.5}},
			table: tableOf([]string{"a"}, 1),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			results, err := NewRunner(tc.stub, DefaultThreshold).Run(tc.table)
			require.Error(t, err)
			assert.Nil(t, results)

			var failure *InferenceFailure
			require.True(t, errors.As(err, &failure))
			assert.NotNil(t, failure.Cause)
		})
	}
}

func TestRunner_PreservesCause(t *testing.T) {
	cause := errors.New("shape mismatch")
	stub := &stubClassifier{columns: []string{"a"}, err: cause}

	_, err := NewRunner(stub, DefaultThreshold).Run(tableOf(stub.columns, 1))

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "shape mismatch")
}

func TestRunner_SerializesUnsafeClassifier(t *testing.T) {
	classifier := &trackingClassifier{safe: false}
	runner := NewRunner(classifier, DefaultThreshold)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := runner.Run(tableOf([]string{"x"}, 2))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), classifier.maxSeen.Load())
}

func TestNewModel(t *testing.T) {
	stub := &stubClassifier{columns: []string{"tenure", "Contract"}, probs: []float64{0.9}}

	model, err := NewModel("stub", stub, 0.5)
	require.NoError(t, err)

	cols := model.RequiredColumns()
	cols[0] = "changed"
	assert.Equal(t, []string{"tenure", "Contract"}, model.RequiredColumns())
	assert.Equal(t, 0.5, model.Threshold())
	assert.Equal(t, "stub", model.Kind())

	results, err := model.Run(tableOf(stub.columns, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, results[0].Label)
}

func TestNewModel_RejectsBadMetadata(t *testing.T) {
	_, err := NewModel("stub", &stubClassifier{}, 0.5)
	var fault *ConfigurationFault
	require.ErrorAs(t, err, &fault)

	_, err = NewModel("stub", &stubClassifier{columns: []string{"a"}}, 1.5)
	require.ErrorAs(t, err, &fault)
	assert.Contains(t, fault.Error(), "threshold")
}
