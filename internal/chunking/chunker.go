package chunking

import (
	"github.com/jonathan/kb-factory/internal/sanitize"
)

const (
	// DefaultMaxTokens is the per-chunk token budget.
	DefaultMaxTokens = 650
	// DefaultOverlap is the number of tokens shared between successive chunks.
	DefaultOverlap = 80
	// Strategy names the chunking approach recorded in chunk metadata.
	Strategy = "token_overlap"
)

// Chunk is one token-bounded slice of a source document.
type Chunk struct {
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
	Source     string `json:"source"`
	Title      string `json:"title"`
}

// Chunker splits documents under a fixed token budget with overlap.
type Chunker struct {
	MaxTokens int
	Overlap   int
}

// NewChunker returns a Chunker with the default budget.
func NewChunker() *Chunker {
	return &Chunker{MaxTokens: DefaultMaxTokens, Overlap: DefaultOverlap}
}

// Split divides text into contiguous chunks of at most MaxTokens tokens,
// each overlapping the previous by Overlap tokens. Chunk text is passed
// through the sanitizer before being emitted. A document within budget
// yields a single chunk.
func (c *Chunker) Split(text, sourceURL, title string) []Chunk {
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	overlap := c.Overlap
	if overlap < 0 || overlap >= maxTokens {
		overlap = DefaultOverlap
	}

	tokens := Encode(text)
	total := len(tokens)

	if total <= maxTokens {
		return []Chunk{{
			Text:       sanitize.Clean(text),
			TokenCount: total,
			Source:     sourceURL,
			Title:      title,
		}}
	}

	step := maxTokens - overlap
	chunks := make([]Chunk, 0, total/step+1)

	for start := 0; start < total; start += step {
		end := start + maxTokens
		if end > total {
			end = total
		}

		window := tokens[start:end]
		chunks = append(chunks, Chunk{
			Text:       sanitize.Clean(Decode(window)),
			TokenCount: len(window),
			Source:     sourceURL,
			Title:      title,
		})

		if end == total {
			break
		}
	}

	return chunks
}
