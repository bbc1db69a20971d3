// Package composer orchestrates a KB build: load the dossier, crawl the
// prospect site, synthesize one Markdown file per standard topic, and
// persist the index, crawl report, and pack manifest.
package composer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/jonathan/kb-factory/internal/chunking"
	"github.com/jonathan/kb-factory/internal/crawling"
	"github.com/jonathan/kb-factory/internal/dossier"
	"github.com/jonathan/kb-factory/internal/library"
	"github.com/jonathan/kb-factory/internal/llm"
	"github.com/jonathan/kb-factory/internal/observability"
	"github.com/jonathan/kb-factory/internal/prompts"
	"github.com/jonathan/kb-factory/internal/sanitize"
	"github.com/jonathan/kb-factory/internal/types"
)

const (
	// ToolVersion identifies the builder in build metadata.
	ToolVersion = "kb-factory/1.1.0"

	// maxEvidenceChars caps the evidence corpus handed to the LLM.
	maxEvidenceChars = 25000

	// minDossierContent is the extract length below which a topic is
	// eligible for LLM enhancement from crawl evidence.
	minDossierContent = 200

	// synthesisTemperature keeps topic synthesis close to the evidence.
	synthesisTemperature = 0.4
)

// citationPattern matches inline [Source](URL) citations in synthesized text.
var citationPattern = regexp.MustCompile(`\[Source\]\((https?://[^)\s]+)\)`)

// Options configures one KB build.
type Options struct {
	Slug        string
	DossierPath string
	AgentsDir   string
	IngestedDir string
	MaxDepth    int
	MaxPages    int
	UseBrowser  bool
	Verbose     bool
	// SkipCrawl builds from the dossier alone, ignoring the target URL.
	SkipCrawl bool
	// Gateway performs topic synthesis. Nil means dossier-only composition.
	Gateway llm.Gateway
	// Fetcher overrides the crawler's transport when non-nil.
	Fetcher crawling.Fetcher
	// Now overrides the build clock. Defaults to time.Now.
	Now func() time.Time
}

// Result summarizes a completed build.
type Result struct {
	AgentDir string
	Index    *types.Index
	Report   *types.CrawlReport
}

// IndexHas reports whether any indexed file carries the given provenance.
func (r *Result) IndexHas(provenance string) bool {
	for _, file := range r.Index.Files {
		if file.Provenance == provenance {
			return true
		}
	}
	return false
}

// ComposeError represents a build that could not complete.
type ComposeError struct {
	Stage   string
	Message string
	Cause   error
}

func (e *ComposeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("compose error (%s): %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("compose error (%s): %s", e.Stage, e.Message)
}

func (e *ComposeError) Unwrap() error {
	return e.Cause
}

// Build runs the full composition for one prospect. The kb/ directory is
// cleared before any file is written, so a build never mixes output from
// two runs. Crawl failures degrade the build to dossier-only; dossier
// failures abort it before any write.
func Build(ctx context.Context, opts Options) (*Result, error) {
	if opts.Slug == "" {
		return nil, &ComposeError{Stage: "setup", Message: "slug is required"}
	}

	printer := observability.NewPrinter(os.Stdout)

	dossierPath := opts.DossierPath
	if dossierPath == "" {
		dossierPath = filepath.Join(opts.IngestedDir, opts.Slug, "dossier.json")
	}
	d, err := dossier.Load(dossierPath)
	if err != nil {
		return nil, &ComposeError{Stage: "dossier", Message: "failed to load dossier", Cause: err}
	}

	agentDir := filepath.Join(opts.AgentsDir, opts.Slug)
	kbDir := library.KBDir(agentDir)
	if err := os.RemoveAll(kbDir); err != nil {
		return nil, &ComposeError{Stage: "setup", Message: "failed to clear KB directory", Cause: err}
	}
	if err := os.MkdirAll(kbDir, 0o755); err != nil {
		return nil, &ComposeError{Stage: "setup", Message: "failed to create KB directory", Cause: err}
	}

	records, report := crawlEvidence(ctx, d, &opts)
	if opts.Verbose {
		printer.PrintCrawlReport(report)
	}

	rawRecords, err := crawling.WriteRawFiles(kbDir, records)
	if err != nil {
		return nil, &ComposeError{Stage: "crawl", Message: "failed to persist raw-crawl files", Cause: err}
	}

	corpus := truncateEvidence(crawling.BuildCorpus(records), maxEvidenceChars)

	files := make([]types.FileRecord, 0, len(dossier.Topics())+len(rawRecords))
	for _, topic := range dossier.Topics() {
		record, err := composeTopic(ctx, d, topic, corpus, len(records) > 0, opts.Gateway, kbDir)
		if err != nil {
			return nil, err
		}
		files = append(files, record)
	}
	for _, topic := range dossier.OptionalTopics() {
		extract := dossier.Extract(d, topic)
		if extract == "" {
			continue
		}
		record, err := writeTopicFile(kbDir, topic, extract, types.ProvenanceDossier, d.TargetURL())
		if err != nil {
			return nil, err
		}
		files = append(files, record)
	}
	files = append(files, rawRecords...)

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	generatedAt := now().UTC().Format(time.RFC3339)

	index := &types.Index{
		Files:             files,
		Coverage:          library.BuildCoverage(files, dossier.RequiredStems()),
		DiscoveryRequired: report.PagesFetched < crawling.DiscoveryThreshold,
		BuildMetadata: types.BuildMetadata{
			Slug:        opts.Slug,
			GeneratedAt: generatedAt,
			ToolVersion: ToolVersion,
			BuildID:     buildID(opts.Slug, generatedAt),
		},
	}

	if err := library.WriteIndex(agentDir, index); err != nil {
		return nil, &ComposeError{Stage: "persist", Message: "failed to write index", Cause: err}
	}
	if err := library.WriteCrawlReport(agentDir, report); err != nil {
		return nil, &ComposeError{Stage: "persist", Message: "failed to write crawl report", Cause: err}
	}
	if err := library.WriteManifest(agentDir); err != nil {
		return nil, &ComposeError{Stage: "persist", Message: "failed to write manifest", Cause: err}
	}

	if opts.Verbose {
		printer.PrintIndexSummary(index)
	}

	return &Result{AgentDir: agentDir, Index: index, Report: report}, nil
}

// crawlEvidence runs the bounded crawl for the dossier's target URL. Any
// crawl-level failure degrades to an empty evidence set rather than
// aborting the build.
func crawlEvidence(ctx context.Context, d *dossier.Dossier, opts *Options) ([]types.EvidenceRecord, *types.CrawlReport) {
	emptyReport := &types.CrawlReport{
		URLs:        []string{},
		BlockedURLs: []string{},
		StatusCodes: map[string]int{},
		Assets:      []string{},
	}

	targetURL := d.TargetURL()
	if opts.SkipCrawl || targetURL == "" {
		return nil, emptyReport
	}

	crawlOpts := crawling.DefaultOptions()
	if opts.MaxDepth > 0 {
		crawlOpts.MaxDepth = opts.MaxDepth
	}
	if opts.MaxPages > 0 {
		crawlOpts.MaxFiles = opts.MaxPages
	}
	crawlOpts.UseBrowser = opts.UseBrowser
	crawlOpts.Verbose = opts.Verbose
	crawlOpts.Fetcher = opts.Fetcher

	records, report, err := crawling.Crawl(ctx, targetURL, crawlOpts)
	if err != nil {
		fmt.Printf("Warning: crawl of %s failed: %v\n", targetURL, err)
		fmt.Printf("Continuing with dossier-only composition...\n")
		return nil, emptyReport
	}
	return records, report
}

// composeTopic produces one standard-topic KB file. Topics with thin
// dossier coverage are synthesized from crawl evidence when a gateway is
// available; otherwise the dossier extract or the topic fallback is used.
func composeTopic(ctx context.Context, d *dossier.Dossier, topic dossier.Topic, corpus string, hasEvidence bool, gateway llm.Gateway, kbDir string) (types.FileRecord, error) {
	extract := dossier.Extract(d, topic)

	if gateway != nil && hasEvidence && len(extract) < minDossierContent {
		body, err := synthesize(ctx, gateway, d, topic, extract, corpus)
		if err == nil && !llm.IsFailure(body) {
			return writeTopicFile(kbDir, topic, body, types.ProvenanceLLM, d.TargetURL())
		}
		if err != nil {
			fmt.Printf("Warning: synthesis of %s failed: %v\n", topic.Stem, err)
		}
	}

	if extract != "" {
		return writeTopicFile(kbDir, topic, extract, types.ProvenanceDossier, d.TargetURL())
	}
	return writeTopicFile(kbDir, topic, topic.Fallback, types.ProvenanceFallback, "")
}

// synthesize asks the gateway for a topic body grounded in the dossier
// extract and the evidence corpus. The output passes through the sanitizer
// before it is trusted.
func synthesize(ctx context.Context, gateway llm.Gateway, d *dossier.Dossier, topic dossier.Topic, extract, corpus string) (string, error) {
	dossierContent := extract
	if dossierContent == "" {
		dossierContent = "(no dossier fields map to this topic)"
	}

	system := prompts.MustGet("kb.json", "synthesize-topic-system")
	user := prompts.Format(prompts.MustGet("kb.json", "synthesize-topic"), map[string]string{
		"Title":          topic.Title,
		"CompanyName":    d.ClientProfile.Name,
		"DossierContent": dossierContent,
		"Evidence":       corpus,
	})

	raw, err := gateway.Generate(ctx, system, user, synthesisTemperature)
	if err != nil {
		return "", err
	}

	cleaned, redactions := sanitize.Scrub(raw)
	if redactions > 0 {
		log.Printf("neutralized %d injection pattern(s) in %s output", redactions, topic.Stem)
	}
	return strings.TrimSpace(cleaned), nil
}

// writeTopicFile writes one topic's Markdown file and returns its index
// record. Source URLs are the dossier's target URL plus every inline
// citation found in the body, deduplicated in order of appearance.
func writeTopicFile(kbDir string, topic dossier.Topic, body, provenance, targetURL string) (types.FileRecord, error) {
	content := fmt.Sprintf("# %s\n\n%s\n", topic.Title, strings.TrimSpace(body))

	path := filepath.Join(kbDir, topic.Filename())
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return types.FileRecord{}, &ComposeError{Stage: "persist", Message: "failed to write " + topic.Filename(), Cause: err}
	}

	return types.FileRecord{
		Path:       "kb/" + topic.Filename(),
		Title:      topic.Title,
		Tags:       topic.Tags,
		SourceURLs: sourceURLs(body, provenance, targetURL),
		Summary:    summarize(body),
		Provenance: provenance,
		ChunkMeta: types.ChunkMeta{
			ApproxTokens:  chunking.CountTokens(content),
			ChunkStrategy: chunking.Strategy,
		},
		FileHash: hashContent(content),
	}, nil
}

func sourceURLs(body, provenance, targetURL string) []string {
	urls := []string{}
	seen := make(map[string]bool)

	if provenance != types.ProvenanceFallback && targetURL != "" {
		urls = append(urls, targetURL)
		seen[targetURL] = true
	}
	for _, match := range citationPattern.FindAllStringSubmatch(body, -1) {
		if !seen[match[1]] {
			urls = append(urls, match[1])
			seen[match[1]] = true
		}
	}
	return urls
}

// summarize returns the first content line of a body, truncated for the
// index. Heading lines are skipped.
func summarize(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimLeft(line, "*- ")
		if len(line) > 160 {
			return line[:157] + "..."
		}
		return line
	}
	return ""
}

// truncateEvidence bounds the corpus without splitting a UTF-8 sequence.
func truncateEvidence(corpus string, limit int) string {
	if len(corpus) <= limit {
		return corpus
	}
	cut := corpus[:limit]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}

// buildID derives a deterministic build identifier from the slug and the
// generation timestamp, so identical inputs reproduce identical metadata.
func buildID(slug, generatedAt string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(slug+"|"+generatedAt)).String()
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
