package llm

import (
	"context"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	// DefaultModel is the Gemini model used for KB synthesis.
	DefaultModel = "gemini-2.5-flash"
	// callTimeout is the upper ceiling for a single generative call.
	callTimeout = 60 * time.Second
)

// GeminiGateway implements Gateway for Google Gemini.
type GeminiGateway struct {
	client *genai.Client
	model  string
}

// NewGeminiGateway creates a Gemini-backed gateway.
func NewGeminiGateway(ctx context.Context, apiKey, model string) (*GeminiGateway, error) {
	if apiKey == "" {
		return nil, &GenerationError{Provider: "gemini", Message: "API key is required"}
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, &GenerationError{Provider: "gemini", Message: "failed to create client", Cause: err}
	}

	return &GeminiGateway{client: client, model: model}, nil
}

// Generate produces text for the prompt pair, bounded by the call timeout
// and the output token cap. Provider errors come back as GenerationError;
// this layer never streams and never partially returns.
func (g *GeminiGateway) Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error) {
	if err := validatePrompts("gemini", systemPrompt, userPrompt); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(MaxOutputTokens)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", &GenerationError{Provider: "gemini", Message: "generate content failed", Cause: err}
	}

	return extractText(resp)
}

// Close releases resources held by the underlying client.
func (g *GeminiGateway) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// extractText flattens the text parts of a Gemini response.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", &GenerationError{Provider: "gemini", Message: "no candidates in response"}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", &GenerationError{Provider: "gemini", Message: "no content in response"}
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", &GenerationError{Provider: "gemini", Message: "no text parts in response"}
	}

	return strings.Join(parts, ""), nil
}
