package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/kb-factory/internal/composer"
	"github.com/jonathan/kb-factory/internal/llm"
	"github.com/jonathan/kb-factory/internal/truthiness"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Build KB libraries for several prospects",
	Long:  "Runs the full build for each slug, a bounded number at a time. A failing prospect does not stop the others; the command exits non-zero if any build or gate fails.",
	RunE:  runBatch,
}

var (
	batchSlugs       []string
	batchAgentsDir   string
	batchIngestedDir string
	batchAPIKey      string
	batchConcurrency int
	batchSkipCrawl   bool
	batchVerbose     bool
)

func init() {
	batchCmd.Flags().StringSliceVar(&batchSlugs, "slugs", nil, "Comma-separated prospect slugs (required)")
	batchCmd.Flags().StringVar(&batchAgentsDir, "agents-dir", "agents", "Root directory for agent libraries")
	batchCmd.Flags().StringVar(&batchIngestedDir, "ingested-dir", "ingested", "Root directory for intake dossiers")
	batchCmd.Flags().StringVar(&batchAPIKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 3, "Maximum builds running at once")
	batchCmd.Flags().BoolVar(&batchSkipCrawl, "skip-crawl", false, "Compose from dossiers only, without crawling")
	batchCmd.Flags().BoolVarP(&batchVerbose, "verbose", "v", false, "Print detailed build information")

	if err := batchCmd.MarkFlagRequired("slugs"); err != nil {
		panic(fmt.Sprintf("failed to mark slugs flag as required: %v", err))
	}

	rootCmd.AddCommand(batchCmd)
}

func runBatch(_ *cobra.Command, _ []string) error {
	if len(batchSlugs) == 0 {
		return fmt.Errorf("at least one slug is required")
	}
	if batchConcurrency < 1 {
		batchConcurrency = 1
	}

	ctx := context.Background()

	apiKey := batchAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}

	// One shared gateway; the underlying client is safe for concurrent use.
	var gateway llm.Gateway
	if apiKey != "" {
		gemini, err := llm.NewGeminiGateway(ctx, apiKey, llm.DefaultModel)
		if err != nil {
			return fmt.Errorf("failed to initialize LLM gateway: %w", err)
		}
		defer func() { _ = gemini.Close() }()
		gateway = gemini
	} else {
		fmt.Println("No API key set; composing from dossiers only.")
	}

	var mu sync.Mutex
	failures := make(map[string]error)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for _, slug := range batchSlugs {
		g.Go(func() error {
			if err := buildOne(gCtx, slug, gateway); err != nil {
				mu.Lock()
				failures[slug] = err
				mu.Unlock()
				fmt.Printf("[%s] FAILED: %v\n", slug, err)
			} else {
				fmt.Printf("[%s] built and verified\n", slug)
			}
			// Failures are collected, not propagated, so one bad
			// prospect never cancels the rest.
			return nil
		})
	}
	_ = g.Wait()

	fmt.Printf("Batch complete: %d/%d libraries built\n", len(batchSlugs)-len(failures), len(batchSlugs))
	if len(failures) > 0 {
		return fmt.Errorf("%d of %d builds failed", len(failures), len(batchSlugs))
	}
	return nil
}

func buildOne(ctx context.Context, slug string, gateway llm.Gateway) error {
	result, err := composer.Build(ctx, composer.Options{
		Slug:        slug,
		AgentsDir:   batchAgentsDir,
		IngestedDir: batchIngestedDir,
		SkipCrawl:   batchSkipCrawl,
		Verbose:     batchVerbose,
		Gateway:     gateway,
	})
	if err != nil {
		return err
	}

	violations, err := truthiness.Check(truthiness.Options{AgentDir: result.AgentDir})
	if err != nil {
		return err
	}
	if !truthiness.Passes(violations) {
		return fmt.Errorf("truthiness gate failed with %d violation(s)", len(violations.Violations))
	}
	return nil
}
