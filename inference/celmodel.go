package inference

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/liamcoop/churn/schema"
)

// celCostLimit bounds the evaluation cost of one row.
const celCostLimit = 1000000

// CELClassifier scores rows with a CEL expression over a `features` map.
// Numeric cells are bound as doubles, other cells as strings, and missing
// cells as null. The expression must evaluate to a number.
type CELClassifier struct {
	columns    []string
	expression string
	program    cel.Program
}

// NewCELClassifier compiles expression once. Compilation and type-check
// errors are returned to the caller.
func NewCELClassifier(columns []string, expression string) (*CELClassifier, error) {
	env, err := cel.NewEnv(
		cel.Variable("features", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}

	out := ast.OutputType()
	if !out.IsExactType(cel.DoubleType) && !out.IsExactType(cel.IntType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return a number, got %s", out)
	}

	prog, err := env.Program(ast, cel.CostLimit(celCostLimit))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}

	return &CELClassifier{
		columns:    append([]string(nil), columns...),
		expression: expression,
		program:    prog,
	}, nil
}

func (c *CELClassifier) RequiredColumns() []string {
	return append([]string(nil), c.columns...)
}

// ConcurrencySafe reports true: compiled CEL programs are stateless.
func (c *CELClassifier) ConcurrencySafe() bool { return true }

func (c *CELClassifier) PredictProbability(rows [][]schema.Cell) ([]float64, error) {
	probs := make([]float64, len(rows))
	for i, row := range rows {
		p, err := c.eval(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		probs[i] = p
	}
	return probs, nil
}

func (c *CELClassifier) eval(row []schema.Cell) (float64, error) {
	features := make(map[string]any, len(c.columns))
	for j, name := range c.columns {
		features[name] = celValue(row[j])
	}

	out, _, err := c.program.Eval(map[string]any{"features": features})
	if err != nil {
		return 0, fmt.Errorf("evaluation error: %w", err)
	}

	switch v := out.Value().(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expression returned %T, want a number", out.Value())
	}
}

// celValue converts a cell into the value bound in the features map.
func celValue(cell schema.Cell) any {
	if cell.IsNull() {
		return nil
	}
	trimmed := strings.TrimSpace(cell.Value)
	if x, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsInf(x, 0) && !math.IsNaN(x) {
		return x
	}
	return cell.Value
}
