package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/kb-factory/internal/composer"
	"github.com/jonathan/kb-factory/internal/config"
	"github.com/jonathan/kb-factory/internal/crawling"
	"github.com/jonathan/kb-factory/internal/llm"
	"github.com/jonathan/kb-factory/internal/observability"
	"github.com/jonathan/kb-factory/internal/truthiness"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a KB library for one prospect",
	Long:  "Builds the full KB library for a prospect: loads the intake dossier, crawls the prospect website, synthesizes the standard topic files, writes the index, crawl report, and manifest, then runs the truthiness gate.",
	RunE:  runBuild,
}

var (
	buildSlug        string
	buildDossier     string
	buildAgentsDir   string
	buildIngestedDir string
	buildConfigPath  string
	buildAPIKey      string
	buildMinFiles    int
	buildMinPages    int
	buildMaxDepth    int
	buildMaxPages    int
	buildUseBrowser  bool
	buildSkipCrawl   bool
	buildVerbose     bool
)

func init() {
	buildCmd.Flags().StringVarP(&buildSlug, "slug", "s", "", "Prospect slug (required unless set in config)")
	buildCmd.Flags().StringVar(&buildDossier, "dossier", "", "Dossier path (default: <ingested-dir>/<slug>/dossier.json)")
	buildCmd.Flags().StringVar(&buildAgentsDir, "agents-dir", "", "Root directory for agent libraries (default: agents)")
	buildCmd.Flags().StringVar(&buildIngestedDir, "ingested-dir", "", "Root directory for intake dossiers (default: ingested)")
	buildCmd.Flags().StringVarP(&buildConfigPath, "config", "c", "", "Path to JSON config file")
	buildCmd.Flags().StringVar(&buildAPIKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")
	buildCmd.Flags().IntVar(&buildMinFiles, "min-files", 0, "Minimum KB files expected from a full build (default: 25)")
	buildCmd.Flags().IntVar(&buildMinPages, "min-pages", 0, "Minimum crawl pages before discovery mode (default: 5)")
	buildCmd.Flags().IntVar(&buildMaxDepth, "max-depth", 0, "Maximum crawl depth (default: 2)")
	buildCmd.Flags().IntVar(&buildMaxPages, "max-pages", 0, "Maximum pages per crawl (default: 60)")
	buildCmd.Flags().BoolVar(&buildUseBrowser, "use-browser", false, "Use headless browser for SPA sites")
	buildCmd.Flags().BoolVar(&buildSkipCrawl, "skip-crawl", false, "Compose from the dossier only, without crawling")
	buildCmd.Flags().BoolVarP(&buildVerbose, "verbose", "v", false, "Print detailed build information")

	rootCmd.AddCommand(buildCmd)
}

// resolveBuildConfig merges CLI flags, the optional config file, and the
// built-in defaults, in that precedence order.
func resolveBuildConfig() (config.Config, error) {
	cfg := config.Config{
		Slug:        buildSlug,
		Dossier:     buildDossier,
		AgentsDir:   buildAgentsDir,
		IngestedDir: buildIngestedDir,
		APIKey:      buildAPIKey,
		MinFiles:    buildMinFiles,
		MinPages:    buildMinPages,
		MaxDepth:    buildMaxDepth,
		MaxPages:    buildMaxPages,
		UseBrowser:  buildUseBrowser,
		Verbose:     buildVerbose,
	}

	if buildConfigPath != "" {
		fileCfg, err := config.LoadConfig(buildConfigPath)
		if err != nil {
			return cfg, err
		}
		cfg = cfg.MergeWithDefaults(*fileCfg)
	}

	cfg = cfg.MergeWithDefaults(config.Config{
		AgentsDir:   "agents",
		IngestedDir: "ingested",
		MinFiles:    25,
		MinPages:    truthiness.DefaultMinPages,
		MaxDepth:    crawling.DefaultMaxDepth,
		MaxPages:    crawling.DefaultMaxFiles,
		APIKey:      os.Getenv("GEMINI_API_KEY"),
	})

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if cfg.Slug == "" {
		return cfg, fmt.Errorf("slug is required: set --slug or the 'slug' config field")
	}
	return cfg, nil
}

func runBuild(_ *cobra.Command, _ []string) error {
	cfg, err := resolveBuildConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()

	var gateway llm.Gateway
	if cfg.APIKey != "" {
		gemini, err := llm.NewGeminiGateway(ctx, cfg.APIKey, llm.DefaultModel)
		if err != nil {
			return fmt.Errorf("failed to initialize LLM gateway: %w", err)
		}
		defer func() { _ = gemini.Close() }()
		gateway = gemini
	} else {
		fmt.Println("No API key set; composing from the dossier only.")
	}

	result, err := composer.Build(ctx, composer.Options{
		Slug:        cfg.Slug,
		DossierPath: cfg.Dossier,
		AgentsDir:   cfg.AgentsDir,
		IngestedDir: cfg.IngestedDir,
		MaxDepth:    cfg.MaxDepth,
		MaxPages:    cfg.MaxPages,
		UseBrowser:  cfg.UseBrowser,
		Verbose:     cfg.Verbose,
		SkipCrawl:   buildSkipCrawl,
		Gateway:     gateway,
		Fetcher:     nil,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Built %d KB files for %s (%d/12 required topics)\n",
		result.Index.Coverage.TotalFiles, cfg.Slug, result.Index.Coverage.RequiredTopicsMet)
	fmt.Printf("Library: %s\n", result.AgentDir)
	if result.Index.DiscoveryRequired {
		fmt.Println("Discovery required: crawl evidence was scarce; confirm unknowns on the discovery call.")
	}
	if result.Index.Coverage.TotalFiles < cfg.MinFiles {
		fmt.Printf("Warning: build produced %d files, below the expected minimum of %d\n",
			result.Index.Coverage.TotalFiles, cfg.MinFiles)
	}

	violations, err := truthiness.Check(truthiness.Options{AgentDir: result.AgentDir, MinPages: cfg.MinPages})
	if err != nil {
		return fmt.Errorf("truthiness gate could not run: %w", err)
	}
	observability.NewPrinter(os.Stdout).PrintViolations(violations)
	if !truthiness.Passes(violations) {
		return fmt.Errorf("truthiness gate failed: %d violation(s); library is not releasable", len(violations.Violations))
	}

	return nil
}
