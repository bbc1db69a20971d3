// Package chunking splits long documents into overlapping, token-bounded
// chunks with source metadata attached.
package chunking

import "regexp"

// The reference tokenization is a reversible word-boundary encoding: each
// token is a run of non-whitespace with its trailing whitespace attached, so
// decoding is plain concatenation. Chunker and consumers must share it.
var tokenPattern = regexp.MustCompile(`\S+\s*|\s+`)

// Encode splits text into the reference token sequence.
func Encode(text string) []string {
	if text == "" {
		return nil
	}
	return tokenPattern.FindAllString(text, -1)
}

// Decode reassembles a token sequence into the exact original text.
func Decode(tokens []string) string {
	total := 0
	for _, tok := range tokens {
		total += len(tok)
	}
	buf := make([]byte, 0, total)
	for _, tok := range tokens {
		buf = append(buf, tok...)
	}
	return string(buf)
}

// CountTokens returns the token count of text under the reference encoding.
func CountTokens(text string) int {
	return len(Encode(text))
}
