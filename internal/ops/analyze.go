package ops

import (
	"github.com/hpungsan/sift/internal/analysis"
)

// AnalyzeOutput contains the result of the Analyze operation.
type AnalyzeOutput struct {
	Value      string              `json:"value"`
	Properties analysis.Properties `json:"properties"`
}

// Analyze computes properties for a value without storing it.
func Analyze(input ValueInput) *AnalyzeOutput {
	return &AnalyzeOutput{
		Value:      input.Value,
		Properties: analysis.Analyze(input.Value),
	}
}
