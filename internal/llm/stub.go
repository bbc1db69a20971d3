package llm

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// StubGateway is a deterministic Gateway for tests and offline runs. Each
// call returns the response registered for the first matching substring of
// the user prompt (substrings checked in sorted order), or Fallback when
// nothing matches.
type StubGateway struct {
	mu sync.Mutex

	// Responses maps a user-prompt substring to a canned response.
	Responses map[string]string
	// Fallback is returned when no substring matches. Empty means the
	// caller sees a failed generation.
	Fallback string
	// Err, when set, is returned from every call.
	Err error

	// Calls records every user prompt seen, in order.
	Calls []string
}

// Generate returns the canned response for the prompt, deterministically.
func (s *StubGateway) Generate(_ context.Context, systemPrompt, userPrompt string, _ float32) (string, error) {
	if err := validatePrompts("stub", systemPrompt, userPrompt); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.Calls = append(s.Calls, userPrompt)
	s.mu.Unlock()

	if s.Err != nil {
		return "", s.Err
	}

	needles := make([]string, 0, len(s.Responses))
	for needle := range s.Responses {
		needles = append(needles, needle)
	}
	sort.Strings(needles)

	for _, needle := range needles {
		if needle != "" && strings.Contains(userPrompt, needle) {
			return s.Responses[needle], nil
		}
	}
	return s.Fallback, nil
}

// Close is a no-op.
func (s *StubGateway) Close() error { return nil }
