package inference

import (
	"fmt"

	"github.com/liamcoop/churn/internal/apperr"
)

// InferenceFailure is returned when the classifier rejects the aligned input
// or produces an unusable result. The underlying cause is preserved.
type InferenceFailure struct {
	Cause error
}

func (e *InferenceFailure) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Cause)
}

func (e *InferenceFailure) Unwrap() error {
	return e.Cause
}

// Code identifies the failure for transport layers.
func (e *InferenceFailure) Code() apperr.ErrorCode {
	return apperr.ErrCodeInferenceFailed
}

// ConfigurationFault is returned when a model bundle cannot be loaded: the
// file is unreadable, malformed, or its feature metadata is unusable.
type ConfigurationFault struct {
	Path   string
	Reason string
	Cause  error
}

func (e *ConfigurationFault) Error() string {
	msg := "model configuration fault"
	if e.Path != "" {
		msg += " in " + e.Path
	}
	msg += ": " + e.Reason
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConfigurationFault) Unwrap() error {
	return e.Cause
}

// Code identifies the fault for transport layers.
func (e *ConfigurationFault) Code() apperr.ErrorCode {
	return apperr.ErrCodeConfigurationFault
}
