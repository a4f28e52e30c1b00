package llm

import (
	"context"
	"errors"
)

// Client abstracts LLM providers for financial document analysis.
type Client interface {
	// Analyze runs the analysis prompt and returns the report text.
	Analyze(ctx context.Context, input AnalyzeInput) (string, error)
	// Model identifies the underlying model for result metadata.
	Model() string
}

// AnalyzeInput captures the inputs needed for one analysis.
type AnalyzeInput struct {
	Query        string
	DocumentText string
}

// ErrEmptyResponse is returned when the provider answers without content.
var ErrEmptyResponse = errors.New("llm returned empty response")
