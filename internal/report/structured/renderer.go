// Package structured renders reports as machine readable documents.
package structured

import (
	"encoding/json"
	"fmt"

	"sigs.k8s.io/yaml"

	"github.com/kubev2v/vminfo/internal/report/types"
)

type JSONRenderer struct{}

func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

func (r *JSONRenderer) SupportedFormat() types.ReportFormat {
	return types.ReportFormatJSON
}

func (r *JSONRenderer) Render(report *types.Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// YAMLRenderer goes through the json tags, so both documents share a shape.
type YAMLRenderer struct{}

func NewYAMLRenderer() *YAMLRenderer {
	return &YAMLRenderer{}
}

func (r *YAMLRenderer) SupportedFormat() types.ReportFormat {
	return types.ReportFormatYAML
}

func (r *YAMLRenderer) Render(report *types.Report) ([]byte, error) {
	data, err := yaml.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}
