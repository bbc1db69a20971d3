// Package llm provides the single choke point for all generative calls.
// Higher layers never reach a provider directly; they depend on the Gateway
// interface so provider variants stay interchangeable and tests can stub
// generation deterministically.
package llm

import (
	"context"
	"fmt"
	"strings"
)

const (
	// MaxOutputTokens caps the size of a single generated response.
	MaxOutputTokens = 4096
	// ErrorMarker prefixes responses that callers must treat as failed
	// generations rather than content.
	ErrorMarker = "[Error"
)

// Gateway produces text from (system prompt, user prompt, temperature) or
// fails with a typed error. Implementations must reject empty prompts and
// must never partially return.
type Gateway interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error)
	Close() error
}

// GenerationError represents a provider or transport failure during a
// generative call.
type GenerationError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("llm generation error (%s): %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("llm generation error (%s): %s", e.Provider, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// IsFailure reports whether a returned response must be treated as a failed
// generation: empty output or an error-marker prefix.
func IsFailure(response string) bool {
	trimmed := strings.TrimSpace(response)
	return trimmed == "" || strings.HasPrefix(trimmed, ErrorMarker)
}

// validatePrompts rejects empty prompt pairs before any provider call.
func validatePrompts(provider, systemPrompt, userPrompt string) error {
	if strings.TrimSpace(systemPrompt) == "" {
		return &GenerationError{Provider: provider, Message: "system prompt is empty"}
	}
	if strings.TrimSpace(userPrompt) == "" {
		return &GenerationError{Provider: provider, Message: "user prompt is empty"}
	}
	return nil
}
