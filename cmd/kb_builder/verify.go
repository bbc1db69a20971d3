package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/kb-factory/internal/library"
	"github.com/jonathan/kb-factory/internal/observability"
	"github.com/jonathan/kb-factory/internal/truthiness"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run the truthiness gate over a built KB library",
	Long:  "Rereads a previously built KB library, rechecks the pack manifest, and runs every truthiness check. Exits non-zero when the library is not releasable.",
	RunE:  runVerify,
}

var (
	verifySlug      string
	verifyAgentsDir string
	verifyMinPages  int
)

func init() {
	verifyCmd.Flags().StringVarP(&verifySlug, "slug", "s", "", "Prospect slug (required)")
	verifyCmd.Flags().StringVar(&verifyAgentsDir, "agents-dir", "agents", "Root directory for agent libraries")
	verifyCmd.Flags().IntVar(&verifyMinPages, "min-pages", truthiness.DefaultMinPages, "Minimum crawl pages before the low-crawl warning")

	if err := verifyCmd.MarkFlagRequired("slug"); err != nil {
		panic(fmt.Sprintf("failed to mark slug flag as required: %v", err))
	}

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(_ *cobra.Command, _ []string) error {
	agentDir := filepath.Join(verifyAgentsDir, verifySlug)

	stale, err := library.VerifyManifest(agentDir)
	if err != nil {
		return fmt.Errorf("failed to verify manifest: %w", err)
	}
	if len(stale) > 0 {
		for _, path := range stale {
			fmt.Printf("Manifest mismatch: %s\n", path)
		}
		return fmt.Errorf("manifest verification failed: %d file(s) changed since the build", len(stale))
	}

	violations, err := truthiness.Check(truthiness.Options{AgentDir: agentDir, MinPages: verifyMinPages})
	if err != nil {
		return err
	}

	observability.NewPrinter(os.Stdout).PrintViolations(violations)
	if !truthiness.Passes(violations) {
		return fmt.Errorf("verification failed: %d violation(s)", len(violations.Violations))
	}

	fmt.Printf("Library %s verified.\n", verifySlug)
	return nil
}
