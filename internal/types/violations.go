package types

// Violation kinds reported by the truthiness gate.
const (
	ViolationLowCrawl        = "low_crawl"
	ViolationSourceDiversity = "source_diversity"
	ViolationNestedMarkdown  = "nested_markdown"
	ViolationPlaceholder     = "placeholder"
	ViolationEntityGrounding = "entity_grounding"
)

// Violation represents a single quality-gate failure.
type Violation struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	File     string `json:"file,omitempty"`
	Details  string `json:"details"`
}

// Violations represents a collection of quality-gate failures.
type Violations struct {
	Violations []Violation `json:"violations"`
}
