package main

// API Response Models

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	UploadID int64 `json:"upload_id" example:"1"`
} // @name UploadResponse

// ModelResponse describes the loaded model so clients can build a mapping form.
type ModelResponse struct {
	Kind            string   `json:"kind" example:"logistic"`
	RequiredColumns []string `json:"required_columns" example:"tenure,MonthlyCharges,Contract"`
	Threshold       float64  `json:"threshold" example:"0.6"`
} // @name ModelResponse

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string           `json:"status" example:"ok"`
	Error    string           `json:"error,omitempty"`
	Counters map[string]int64 `json:"counters,omitempty"`
} // @name HealthResponse

// ErrorResponse represents an error response. Detail is a message string,
// or the schema mismatch diagnostic for unresolved columns.
type ErrorResponse struct {
	Detail any `json:"detail"`
} // @name ErrorResponse
