package prediction

import (
	"github.com/liamcoop/churn/inference"
	"github.com/liamcoop/churn/internal/logger"
	"github.com/liamcoop/churn/internal/metrics"
	"github.com/liamcoop/churn/schema"
)

// Service reconciles uploaded tables with the model schema and scores them.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	model *inference.Model
	log   logger.Logger
}

// NewService creates a service around a loaded model.
func NewService(model *inference.Model, log logger.Logger) *Service {
	return &Service{model: model, log: log}
}

// Model returns the model the service scores with.
func (s *Service) Model() *inference.Model {
	return s.model
}

// Predict aligns table to the model's required columns and scores every
// row. Rows come back in input order.
//
// explicit == nil means the caller supplied no mapping: any unresolved
// required column then yields *SchemaMismatch and the model is not invoked.
// With a non-nil mapping, unresolved columns are passed to the model as
// nulls and any resulting failure surfaces as *inference.InferenceFailure.
func (s *Service) Predict(table *schema.Table, explicit schema.Mapping) ([]Row, error) {
	required := s.model.RequiredColumns()
	ids := rowIdentifiers(table)
	suggested := schema.Suggest(required, table.Columns)
	aligned := schema.Align(table, required, explicit)

	if len(aligned.Unresolved) > 0 {
		if explicit == nil {
			metrics.SchemaMismatchesTotal.Inc()
			s.log.Info("schema mismatch", map[string]interface{}{
				"missing_columns": aligned.Unresolved,
				"rows":            table.NumRows(),
			})
			return nil, &SchemaMismatch{
				Required:  required,
				Detected:  append([]string(nil), table.Columns...),
				Missing:   aligned.Unresolved,
				Suggested: suggested,
			}
		}
		s.log.Warn("scoring with unresolved columns", map[string]interface{}{
			"unresolved_columns": aligned.Unresolved,
		})
	}

	results, err := s.model.Run(aligned.Table)
	if err != nil {
		s.log.WithError(err).Warn("inference failed", map[string]interface{}{
			"rows": table.NumRows(),
		})
		return nil, err
	}

	rows := make([]Row, len(results))
	for i, r := range results {
		rows[i] = Row{RowID: ids[i], Probability: r.Probability, Label: r.Label}
	}

	metrics.PredictionsTotal.Add(float64(len(rows)))
	s.log.Debug("scored table", map[string]interface{}{
		"rows":    len(rows),
		"mapping": aligned.Mapping,
	})

	return rows, nil
}
