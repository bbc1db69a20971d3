package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/kb-factory/internal/types"
)

func TestPrintCrawlReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	report := &types.CrawlReport{
		PagesFetched: 3,
		URLs:         []string{"https://acme.example", "https://acme.example/services", "https://acme.example/about"},
		BlockedURLs:  []string{"https://acme.example/pricing"},
		Assets:       []string{"https://acme.example/brochure.pdf"},
		CrawlDepth:   2,
		ElapsedMS:    412,
	}

	p.PrintCrawlReport(report)
	output := buf.String()

	assert.Contains(t, output, "CRAWL REPORT")
	assert.Contains(t, output, "Pages fetched:  3")
	assert.Contains(t, output, "Blocked URLs:   1")
	assert.Contains(t, output, "https://acme.example/services")
}

func TestPrintCrawlReport_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintCrawlReport(nil)

	assert.Empty(t, buf.String())
}

func TestPrintIndexSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	index := &types.Index{
		Files: []types.FileRecord{
			{Path: "kb/00_overview.md", Provenance: types.ProvenanceDossier},
			{Path: "kb/20_FAQ.md", Provenance: types.ProvenanceLLM},
			{Path: "kb/60_crawled_home.md", Provenance: types.ProvenanceCrawler},
		},
		Coverage: types.Coverage{
			TotalFiles:        3,
			RequiredTopicsMet: 2,
			MissingTopics:     []string{"15_pricing_and_packages"},
		},
		DiscoveryRequired: true,
		BuildMetadata:     types.BuildMetadata{Slug: "acme-hvac", BuildID: "b1"},
	}

	p.PrintIndexSummary(index)
	output := buf.String()

	assert.Contains(t, output, "KB BUILD SUMMARY")
	assert.Contains(t, output, "acme-hvac")
	assert.Contains(t, output, "Topics met: 2/12")
	assert.Contains(t, output, "REQUIRED")
	assert.Contains(t, output, "dossier_extract")
	assert.Contains(t, output, "15_pricing_and_packages")
}

func TestPrintViolations_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintViolations(&types.Violations{})

	assert.Contains(t, buf.String(), "NO VIOLATIONS FOUND")
}

func TestPrintViolations(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	violations := &types.Violations{
		Violations: []types.Violation{
			{Type: types.ViolationPlaceholder, Severity: "error", File: "kb/20_FAQ.md", Details: "placeholder phone number 1-800-123-4567"},
			{Type: types.ViolationLowCrawl, Severity: "warning", Details: "only 2 pages fetched"},
		},
	}

	p.PrintViolations(violations)
	output := buf.String()

	assert.Contains(t, output, "TRUTHINESS VIOLATIONS")
	assert.Contains(t, output, "placeholder")
	assert.Contains(t, output, "kb/20_FAQ.md")
	assert.Contains(t, output, "low_crawl")
}
