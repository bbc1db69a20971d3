// Package sanitize neutralizes prompt-injection patterns and normalizes
// untrusted text before it reaches prompts or KB files.
package sanitize

import (
	"regexp"
	"strings"
)

// RedactionToken replaces every matched injection pattern.
const RedactionToken = "[REDACTED_INJECTION_ATTEMPT]"

// injectionPatterns is the versioned set of known prompt-injection phrases.
// Matching is case-insensitive. Scraped text containing these is treated as
// hostile data and neutralized silently.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+all\s+previous\s+instructions`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)\s+instructions`),
	regexp.MustCompile(`(?i)forget\s+everything`),
	regexp.MustCompile(`(?i)new\s+rule:`),
	regexp.MustCompile(`(?i)system\s+prompt`),
	regexp.MustCompile(`(?i)you\s+are\s+a\s+large\s+language\s+model`),
	regexp.MustCompile(`(?i)execute\s+the\s+following`),
}

var (
	horizontalWS = regexp.MustCompile(`[ \t]+`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
	fenceOpen    = regexp.MustCompile("^```[a-zA-Z0-9_-]*\n")
)

// Clean applies the full sanitization pipeline: injection neutralization,
// outer code-fence removal, horizontal whitespace collapse, and blank-line
// collapse. It is pure and idempotent.
func Clean(text string) string {
	cleaned, _ := Scrub(text)
	return cleaned
}

// Scrub is Clean plus a count of neutralized injection patterns. The count
// is informational only; neutralization never affects build status.
func Scrub(text string) (string, int) {
	if text == "" {
		return "", 0
	}

	redactions := 0
	for _, pattern := range injectionPatterns {
		text = pattern.ReplaceAllStringFunc(text, func(string) string {
			redactions++
			return RedactionToken
		})
	}

	text = stripOuterFence(text)
	text = horizontalWS.ReplaceAllString(text, " ")
	text = blankRuns.ReplaceAllString(text, "\n\n")

	return text, redactions
}

// stripOuterFence removes a single outermost Markdown code fence, with or
// without a language tag. Texts containing interior fences are left alone so
// nested structure is preserved for the truthiness gate to reject.
func stripOuterFence(text string) string {
	trimmed := strings.TrimSpace(text)
	loc := fenceOpen.FindStringIndex(trimmed)
	if loc == nil || !strings.HasSuffix(trimmed, "```") {
		return text
	}

	inner := trimmed[loc[1] : len(trimmed)-len("```")]
	if strings.Contains(inner, "```") {
		return text
	}
	return strings.TrimRight(inner, "\n")
}
