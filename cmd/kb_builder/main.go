// Package main implements the kb_builder CLI for evidence-grounded KB
// library builds.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kb_builder",
	Short: "Evidence-grounded KB library builder",
	Long:  "kb_builder turns an intake dossier plus a bounded crawl of the prospect's website into a per-agent knowledge-base library: topic Markdown files, an index, a crawl report, and a content-hash manifest.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
