package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/kb-factory/internal/crawling"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl a prospect website and dump the evidence corpus",
	Long:  "Runs the bounded same-site crawl without composing a KB: writes the concatenated evidence corpus and the crawl report to the output directory. Useful for inspecting what a build would see.",
	RunE:  runCrawl,
}

var (
	crawlURL        string
	crawlOutputDir  string
	crawlMaxDepth   int
	crawlMaxPages   int
	crawlUseBrowser bool
	crawlVerbose    bool
)

func init() {
	crawlCmd.Flags().StringVarP(&crawlURL, "url", "u", "", "Prospect homepage URL (required)")
	crawlCmd.Flags().StringVarP(&crawlOutputDir, "out", "o", "", "Output directory (required)")
	crawlCmd.Flags().IntVar(&crawlMaxDepth, "max-depth", crawling.DefaultMaxDepth, "Maximum crawl depth")
	crawlCmd.Flags().IntVar(&crawlMaxPages, "max-pages", crawling.DefaultMaxFiles, "Maximum pages to crawl")
	crawlCmd.Flags().BoolVar(&crawlUseBrowser, "use-browser", false, "Use headless browser for SPA sites")
	crawlCmd.Flags().BoolVarP(&crawlVerbose, "verbose", "v", false, "Print each fetched URL")

	if err := crawlCmd.MarkFlagRequired("url"); err != nil {
		panic(fmt.Sprintf("failed to mark url flag as required: %v", err))
	}
	if err := crawlCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}

	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(_ *cobra.Command, _ []string) error {
	if err := os.MkdirAll(crawlOutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", crawlOutputDir, err)
	}

	opts := crawling.DefaultOptions()
	opts.MaxDepth = crawlMaxDepth
	opts.MaxFiles = crawlMaxPages
	opts.UseBrowser = crawlUseBrowser
	opts.Verbose = crawlVerbose

	records, report, err := crawling.Crawl(context.Background(), crawlURL, opts)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	corpusPath := filepath.Join(crawlOutputDir, "evidence_corpus.md")
	if err := os.WriteFile(corpusPath, []byte(crawling.BuildCorpus(records)+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write corpus file %s: %w", corpusPath, err)
	}

	reportPath := filepath.Join(crawlOutputDir, "crawl_report.json")
	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal crawl report: %w", err)
	}
	if err := os.WriteFile(reportPath, append(reportJSON, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report file %s: %w", reportPath, err)
	}

	fmt.Printf("Successfully crawled %d pages (%d blocked, %d assets)\n",
		report.PagesFetched, len(report.BlockedURLs), len(report.Assets))
	fmt.Printf("Corpus: %s\n", corpusPath)
	fmt.Printf("Report: %s\n", reportPath)

	return nil
}
