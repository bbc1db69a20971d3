// Package truthiness implements the post-build quality gate. It rereads a
// built KB library and flags content that is unsupported by the build's own
// evidence: placeholder boilerplate, nested Markdown fences, and contact
// details, metrics, or superlatives that appear nowhere in the crawl
// evidence.
package truthiness

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jonathan/kb-factory/internal/crawling"
	"github.com/jonathan/kb-factory/internal/library"
	"github.com/jonathan/kb-factory/internal/types"
)

// DefaultMinPages is the crawl size below which a build is flagged as
// evidence-starved.
const DefaultMinPages = crawling.DiscoveryThreshold

// UnknownEscape is the canonical admission phrase the composer writes when
// a value could not be established.
const UnknownEscape = "Unknown / Confirm on discovery call"

// UnknownToken exempts a file from entity grounding: a file that admits
// unknowns is not inventing. Any honest "Unknown" qualifies, not just the
// canonical phrase.
const UnknownToken = "Unknown"

// Severity levels for gate violations. A build releases only when no
// error-severity violation remains.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// placeholderPatterns is the denylist of template boilerplate that must
// never survive into a released KB.
var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`1-800-123-4567`),
	regexp.MustCompile(`555-0199`),
	regexp.MustCompile(`\bexample\.com\b`),
	regexp.MustCompile(`\[Insert [^\]]*\]`),
	regexp.MustCompile(`(?i)lorem ipsum`),
	regexp.MustCompile(`(?i)as an AI language model`),
}

var (
	nestedFencePattern = regexp.MustCompile("```markdown")
	emailPattern       = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern       = regexp.MustCompile(`(?:\+?1[-.\s])?\(?\d{3}\)?[-.\s]\d{3}[-.\s]\d{4}`)
	metricPattern      = regexp.MustCompile(`(?i)\b\d{1,3}(?:\.\d+)?%|\b(?:hundreds|thousands|millions|billions)\b`)
	superlativePattern = regexp.MustCompile(`(?i)\b(?:number one|#1|industry standard|best in class|trusted by)\b`)
	digitsOnly         = regexp.MustCompile(`\D`)
)

// Options configures one gate run.
type Options struct {
	AgentDir string
	// MinPages is the minimum crawl size; zero means DefaultMinPages.
	MinPages int
}

// GateError represents a library that could not be checked at all.
type GateError struct {
	Message string
	Cause   error
}

func (e *GateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("truthiness gate error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("truthiness gate error: %s", e.Message)
}

func (e *GateError) Unwrap() error {
	return e.Cause
}

// Check runs every gate check over a built library and returns the
// violations found. A missing index or crawl report is an error; a failing
// check is a violation, never an error.
func Check(opts Options) (*types.Violations, error) {
	minPages := opts.MinPages
	if minPages <= 0 {
		minPages = DefaultMinPages
	}

	index, err := library.ReadIndex(opts.AgentDir)
	if err != nil {
		return nil, &GateError{Message: "failed to load index", Cause: err}
	}
	report, err := library.ReadCrawlReport(opts.AgentDir)
	if err != nil {
		return nil, &GateError{Message: "failed to load crawl report", Cause: err}
	}

	contents := make(map[string]string, len(index.Files))
	for _, file := range index.Files {
		data, err := os.ReadFile(filepath.Join(opts.AgentDir, filepath.FromSlash(file.Path)))
		if err != nil {
			return nil, &GateError{Message: "failed to read " + file.Path, Cause: err}
		}
		contents[file.Path] = string(data)
	}

	violations := &types.Violations{Violations: []types.Violation{}}

	checkCrawlSize(index, report, minPages, violations)
	checkSourceDiversity(index, report, minPages, violations)

	grounding := groundingCorpus(index, contents)
	for _, file := range index.Files {
		if file.Provenance == types.ProvenanceCrawler {
			continue
		}
		content := contents[file.Path]
		checkNestedFences(file, content, violations)
		checkPlaceholders(file, content, violations)
		checkEntityGrounding(file, content, grounding, violations)
	}

	return violations, nil
}

// Passes reports whether a violation set permits release. Warnings are
// advisory; any error-severity violation blocks.
func Passes(violations *types.Violations) bool {
	if violations == nil {
		return true
	}
	for _, v := range violations.Violations {
		if v.Severity == SeverityError {
			return false
		}
	}
	return true
}

// checkCrawlSize flags a thin crawl. A build that declared itself
// discovery_required gets a warning; one that did not is treated as a full
// build missing its evidence and blocks release.
func checkCrawlSize(index *types.Index, report *types.CrawlReport, minPages int, violations *types.Violations) {
	if report.PagesFetched >= minPages {
		return
	}
	if index.DiscoveryRequired {
		violations.Violations = append(violations.Violations, types.Violation{
			Type:     types.ViolationLowCrawl,
			Severity: SeverityWarning,
			Details:  fmt.Sprintf("only %d pages fetched (minimum %d); build is in discovery mode", report.PagesFetched, minPages),
		})
		return
	}
	violations.Violations = append(violations.Violations, types.Violation{
		Type:     types.ViolationLowCrawl,
		Severity: SeverityError,
		Details:  fmt.Sprintf("only %d pages fetched (minimum %d) but discovery_required is not set", report.PagesFetched, minPages),
	})
}

// checkSourceDiversity requires a well-crawled build to cite more than one
// distinct page. It never fires on evidence-starved builds, which the
// low-crawl check already covers.
func checkSourceDiversity(index *types.Index, report *types.CrawlReport, minPages int, violations *types.Violations) {
	if report.PagesFetched < minPages {
		return
	}

	unique := make(map[string]bool)
	for _, file := range index.Files {
		if file.Provenance == types.ProvenanceCrawler {
			continue
		}
		for _, url := range file.SourceURLs {
			unique[url] = true
		}
	}

	if len(unique) < 2 {
		violations.Violations = append(violations.Violations, types.Violation{
			Type:     types.ViolationSourceDiversity,
			Severity: SeverityError,
			Details:  fmt.Sprintf("%d pages crawled but only %d unique source URLs cited across topic files", report.PagesFetched, len(unique)),
		})
	}
}

func checkNestedFences(file types.FileRecord, content string, violations *types.Violations) {
	if !nestedFencePattern.MatchString(content) {
		return
	}
	violations.Violations = append(violations.Violations, types.Violation{
		Type:     types.ViolationNestedMarkdown,
		Severity: SeverityError,
		File:     file.Path,
		Details:  "contains a nested ```markdown fence; generator output was not unwrapped",
	})
}

func checkPlaceholders(file types.FileRecord, content string, violations *types.Violations) {
	for _, pattern := range placeholderPatterns {
		if match := pattern.FindString(content); match != "" {
			violations.Violations = append(violations.Violations, types.Violation{
				Type:     types.ViolationPlaceholder,
				Severity: SeverityError,
				File:     file.Path,
				Details:  fmt.Sprintf("placeholder content %q", match),
			})
		}
	}
}

// checkEntityGrounding verifies that contact details, metrics, and
// superlative claims in generated files appear somewhere in the crawl
// evidence. Files that admit unknowns are exempt.
func checkEntityGrounding(file types.FileRecord, content string, grounding string, violations *types.Violations) {
	if strings.Contains(content, UnknownToken) {
		return
	}

	loweredGrounding := strings.ToLower(grounding)
	groundingDigits := digitsOnly.ReplaceAllString(grounding, "")

	flag := func(kind, entity string) {
		violations.Violations = append(violations.Violations, types.Violation{
			Type:     types.ViolationEntityGrounding,
			Severity: SeverityError,
			File:     file.Path,
			Details:  fmt.Sprintf("%s %q not found in crawl evidence", kind, entity),
		})
	}

	for _, email := range dedupe(emailPattern.FindAllString(content, -1)) {
		if !strings.Contains(loweredGrounding, strings.ToLower(email)) {
			flag("email", email)
		}
	}
	for _, phone := range dedupe(phonePattern.FindAllString(content, -1)) {
		if !strings.Contains(groundingDigits, digitsOnly.ReplaceAllString(phone, "")) {
			flag("phone", phone)
		}
	}
	for _, metric := range dedupe(metricPattern.FindAllString(content, -1)) {
		if !strings.Contains(loweredGrounding, strings.ToLower(metric)) {
			flag("metric", metric)
		}
	}
	for _, claim := range dedupe(superlativePattern.FindAllString(content, -1)) {
		if !strings.Contains(loweredGrounding, strings.ToLower(claim)) {
			flag("superlative", claim)
		}
	}
}

// groundingCorpus concatenates the raw-crawl evidence, the only content a
// generated claim can legitimately be grounded in.
func groundingCorpus(index *types.Index, contents map[string]string) string {
	var sb strings.Builder
	for _, file := range index.Files {
		if file.Provenance == types.ProvenanceCrawler {
			sb.WriteString(contents[file.Path])
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func dedupe(matches []string) []string {
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
