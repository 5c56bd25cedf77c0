// Package prediction turns uploaded customer tables into persisted churn
// predictions.
package prediction

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/liamcoop/churn/internal/apperr"
	"github.com/liamcoop/churn/schema"
)

// SchemaMismatchMessage is the user-facing message of a SchemaMismatch.
const SchemaMismatchMessage = "Please map the required model columns to your uploaded CSV columns."

// Row is the prediction for one input row.
type Row struct {
	RowID       string  `json:"customer_id"`
	Probability float64 `json:"churn_probability"`
	Label       int     `json:"churn_label"`
}

// SchemaMismatch reports that required columns could not be resolved and no
// explicit mapping was supplied. It carries everything a client needs to
// build a mapping and retry.
type SchemaMismatch struct {
	Required  []string
	Detected  []string
	Missing   []string
	Suggested schema.Mapping
}

func (e *SchemaMismatch) Error() string {
	return fmt.Sprintf("schema mismatch: missing required columns %v", e.Missing)
}

// Code identifies the mismatch for transport layers.
func (e *SchemaMismatch) Code() apperr.ErrorCode {
	return apperr.ErrCodeSchemaMismatch
}

// mismatchPayload is the wire form of SchemaMismatch.
type mismatchPayload struct {
	Code      apperr.ErrorCode  `json:"code"`
	Message   string            `json:"message"`
	Required  []string          `json:"required_columns"`
	Detected  []string          `json:"detected_columns"`
	Missing   []string          `json:"missing_columns"`
	Suggested map[string]string `json:"suggested_mapping"`
}

func (e *SchemaMismatch) MarshalJSON() ([]byte, error) {
	return json.Marshal(mismatchPayload{
		Code:      e.Code(),
		Message:   SchemaMismatchMessage,
		Required:  nonNil(e.Required),
		Detected:  nonNil(e.Detected),
		Missing:   nonNil(e.Missing),
		Suggested: nonNilMap(e.Suggested),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m schema.Mapping) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// User is an uploader identified by email.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Upload records one accepted CSV file.
type Upload struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// StoredPrediction is a persisted Row.
type StoredPrediction struct {
	ID               int64     `json:"id"`
	UploadID         int64     `json:"upload_id"`
	CustomerID       string    `json:"customer_id"`
	ChurnProbability float64   `json:"churn_probability"`
	ChurnLabel       int       `json:"churn_label"`
	CreatedAt        time.Time `json:"created_at"`
}

// Results are the predictions of one upload, ordered by id.
type Results struct {
	UploadID    int64              `json:"upload_id"`
	Predictions []StoredPrediction `json:"predictions"`
}
