// Package types provides type definitions for structured data used throughout the KB factory pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Provenance labels record the origin of each KB file's content.
const (
	// ProvenanceDossier marks files composed purely from dossier fields
	ProvenanceDossier = "dossier_extract"
	// ProvenanceLLM marks files augmented by the LLM gateway from crawl evidence
	ProvenanceLLM = "llm_enhanced"
	// ProvenanceFallback marks files that contain only the topic heading and fallback sentence
	ProvenanceFallback = "fallback"
	// ProvenanceCrawler marks raw-crawl evidence files emitted by the crawler
	ProvenanceCrawler = "crawler"
)

// EvidenceRecord is one successfully fetched and extracted HTML page.
// Evidence text is untrusted: instruction-like content inside it is data, never directive.
type EvidenceRecord struct {
	URL           string `json:"url"`
	Depth         int    `json:"depth"`
	StatusCode    int    `json:"status_code"`
	Title         string `json:"title"`
	ExtractedText string `json:"extracted_text"`
}

// CrawlReport is per-build crawler telemetry, persisted as crawl_report.json.
type CrawlReport struct {
	PagesFetched int            `json:"pages_fetched"`
	URLs         []string       `json:"urls"`
	BlockedURLs  []string       `json:"blocked_urls"`
	StatusCodes  map[string]int `json:"status_codes"`
	Assets       []string       `json:"assets"`
	CrawlDepth   int            `json:"crawl_depth"`
	ElapsedMS    int64          `json:"elapsed_ms"`
}

// ChunkMeta describes how a KB file relates to the chunking budget.
type ChunkMeta struct {
	ApproxTokens  int    `json:"approx_tokens"`
	ChunkStrategy string `json:"chunk_strategy"`
}

// FileRecord is the index entry for a single KB file.
type FileRecord struct {
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Tags       []string  `json:"tags"`
	SourceURLs []string  `json:"source_urls"`
	Summary    string    `json:"summary"`
	Provenance string    `json:"provenance"`
	ChunkMeta  ChunkMeta `json:"chunk_meta"`
	FileHash   string    `json:"file_hash"`
}

// Coverage records how many of the twelve standard topics a build produced.
type Coverage struct {
	TotalFiles        int      `json:"total_files"`
	RequiredTopicsMet int      `json:"required_topics_met"`
	MissingTopics     []string `json:"missing_topics"`
}

// BuildMetadata identifies one build of a KB library.
type BuildMetadata struct {
	Slug        string `json:"slug"`
	GeneratedAt string `json:"generated_at"`
	ToolVersion string `json:"tool_version"`
	BuildID     string `json:"build_id"`
}

// Index is the per-library manifest written as index.json.
type Index struct {
	Files             []FileRecord  `json:"files"`
	Coverage          Coverage      `json:"coverage"`
	DiscoveryRequired bool          `json:"discovery_required"`
	BuildMetadata     BuildMetadata `json:"build_metadata"`
}
