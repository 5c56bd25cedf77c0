package inference

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed bundle.schema.json
var bundleSchema []byte

// Classifier families understood by LoadBundle.
const (
	KindLogistic = "logistic"
	KindCEL      = "cel"
)

// Bundle is the on-disk form of a trained model.
type Bundle struct {
	Name           string      `json:"name,omitempty"`
	Version        string      `json:"version,omitempty"`
	FeatureColumns []string    `json:"feature_columns"`
	Threshold      *float64    `json:"threshold,omitempty"`
	Model          ModelParams `json:"model"`
}

// ModelParams describes the classifier. Type selects which of the remaining
// fields apply.
type ModelParams struct {
	Type string `json:"type"`
	LogisticParams
	Expression string `json:"expression,omitempty"`
}

// LoadBundle reads and validates a model bundle from path. Any problem is
// reported as *ConfigurationFault.
func LoadBundle(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationFault{Path: path, Reason: "model artifact not readable", Cause: err}
	}

	model, err := ParseBundle(data)
	if err != nil {
		if fault, ok := err.(*ConfigurationFault); ok {
			fault.Path = path
			return nil, fault
		}
		return nil, err
	}
	return model, nil
}

// ParseBundle builds a Model from bundle JSON.
func ParseBundle(data []byte) (*Model, error) {
	if err := validateBundleDocument(data); err != nil {
		return nil, err
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, &ConfigurationFault{Reason: "malformed bundle", Cause: err}
	}

	return b.Build()
}

// Build compiles the classifier described by b.
func (b *Bundle) Build() (*Model, error) {
	if err := ValidateFeatureColumns(b.FeatureColumns); err != nil {
		return nil, &ConfigurationFault{Reason: "invalid feature columns", Cause: err}
	}

	threshold := DefaultThreshold
	if b.Threshold != nil {
		threshold = *b.Threshold
	}

	var (
		c   Classifier
		err error
	)
	switch b.Model.Type {
	case KindLogistic:
		c, err = NewLogisticClassifier(b.FeatureColumns, b.Model.LogisticParams)
	case KindCEL:
		c, err = NewCELClassifier(b.FeatureColumns, b.Model.Expression)
	default:
		err = fmt.Errorf("unknown model type %q", b.Model.Type)
	}
	if err != nil {
		return nil, &ConfigurationFault{Reason: "invalid classifier", Cause: err}
	}

	return NewModel(b.Model.Type, c, threshold)
}

func validateBundleDocument(data []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(bundleSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &ConfigurationFault{Reason: "malformed bundle", Cause: err}
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return &ConfigurationFault{Reason: "bundle validation failed", Cause: fmt.Errorf("%s", strings.Join(errs, "; "))}
	}

	return nil
}
