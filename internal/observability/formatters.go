// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/kb-factory/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintCrawlReport outputs a human-readable summary of a completed crawl.
func (p *Printer) PrintCrawlReport(report *types.CrawlReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Pages fetched:  %d\n", report.PagesFetched))
	sb.WriteString(fmt.Sprintf("Blocked URLs:   %d\n", len(report.BlockedURLs)))
	sb.WriteString(fmt.Sprintf("Assets skipped: %d\n", len(report.Assets)))
	sb.WriteString(fmt.Sprintf("Crawl depth:    %d\n", report.CrawlDepth))
	sb.WriteString(fmt.Sprintf("Elapsed:        %dms\n", report.ElapsedMS))

	if len(report.URLs) > 0 {
		sb.WriteString("\nFetched:\n")
		count := min(len(report.URLs), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", report.URLs[i]))
		}
		if len(report.URLs) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(report.URLs)-maxItemsToShow))
		}
	}

	p.printBox("CRAWL REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintIndexSummary outputs coverage and provenance totals for a built index.
func (p *Printer) PrintIndexSummary(index *types.Index) {
	if index == nil {
		return
	}

	provenance := make(map[string]int)
	for _, file := range index.Files {
		provenance[file.Provenance]++
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Slug:       %s\n", index.BuildMetadata.Slug))
	sb.WriteString(fmt.Sprintf("Build ID:   %s\n", index.BuildMetadata.BuildID))
	sb.WriteString(fmt.Sprintf("Files:      %d\n", index.Coverage.TotalFiles))
	sb.WriteString(fmt.Sprintf("Topics met: %d/12\n", index.Coverage.RequiredTopicsMet))
	if index.DiscoveryRequired {
		sb.WriteString("Discovery:  REQUIRED (scarce evidence)\n")
	}

	sb.WriteString("\nProvenance:\n")
	for _, label := range []string{types.ProvenanceDossier, types.ProvenanceLLM, types.ProvenanceFallback, types.ProvenanceCrawler} {
		if provenance[label] > 0 {
			sb.WriteString(fmt.Sprintf("  • %-16s %d\n", label, provenance[label]))
		}
	}

	if len(index.Coverage.MissingTopics) > 0 {
		sb.WriteString("\nMissing topics:\n")
		count := min(len(index.Coverage.MissingTopics), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", index.Coverage.MissingTopics[i]))
		}
		if len(index.Coverage.MissingTopics) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(index.Coverage.MissingTopics)-maxItemsToShow))
		}
	}

	p.printBox("KB BUILD SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintViolations outputs any truthiness violations found.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintViolations(violations *types.Violations) {
	if violations == nil || len(violations.Violations) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NO VIOLATIONS FOUND")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d violations:\n\n", len(violations.Violations)))

	for i, v := range violations.Violations {
		details := v.Details
		if len(details) > 45 {
			details = details[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("⚠ %s (%s)\n", v.Type, v.Severity))
		if v.File != "" {
			sb.WriteString(fmt.Sprintf("  %s\n", v.File))
		}
		sb.WriteString(fmt.Sprintf("  %s\n", details))
		if i < len(violations.Violations)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("TRUTHINESS VIOLATIONS", sb.String())
}
