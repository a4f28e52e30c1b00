package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"findoc-backend/internal/llm"
	"findoc-backend/internal/shared/telemetry"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Client implements llm.Client on the Gemini API.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

// New builds a Gemini client. The API key is required; the model name falls
// back to DefaultModel.
func New(ctx context.Context, apiKey, modelName string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	// Low temperature keeps metric extraction grounded in the document.
	model.SetTemperature(0.2)

	return &Client{client: client, model: model, name: modelName}, nil
}

// Analyze sends the analysis prompt and collects the text response.
func (c *Client) Analyze(ctx context.Context, input llm.AnalyzeInput) (string, error) {
	prompt := llm.BuildAnalysisPrompt(input)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		telemetry.Error("gemini.generate_failed", map[string]any{
			"model": c.name,
			"error": err.Error(),
		})
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", llm.ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", llm.ErrEmptyResponse
	}
	return sb.String(), nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.name
}

// Close releases the underlying API client.
func (c *Client) Close() error {
	return c.client.Close()
}

var _ llm.Client = (*Client)(nil)
