package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxlane/voxlane/internal/classify"
	"github.com/voxlane/voxlane/internal/crawling"
	"github.com/voxlane/voxlane/internal/extraction"
	"github.com/voxlane/voxlane/internal/knowledge"
	"github.com/voxlane/voxlane/internal/llm"
)

var previewCommand = &cobra.Command{
	Use:   "preview <business-url>",
	Short: "Classify a business and extract its knowledge snapshot without deploying",
	Long: `Runs classification and crawler extraction against a business URL and
prints the resulting knowledge snapshot as JSON. Useful for inspecting what an
agent would know before submitting a real workflow.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreviewCmd,
}

var (
	previewConfigPath string
	previewUseBrowser bool
	previewMaxPages   int
	previewTimeout    time.Duration
)

func init() {
	previewCommand.Flags().StringVar(&previewConfigPath, "config", "", "Path to config.json file")
	previewCommand.Flags().BoolVar(&previewUseBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")
	previewCommand.Flags().IntVar(&previewMaxPages, "max-pages", 0, "Maximum pages to crawl")
	previewCommand.Flags().DurationVar(&previewTimeout, "timeout", 5*time.Minute, "Overall preview timeout")

	rootCmd.AddCommand(previewCommand)
}

func runPreviewCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), previewTimeout)
	defer cancel()

	businessURL := args[0]

	cfg, err := loadConfig(previewConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = previewUseBrowser
	}
	if cmd.Flags().Changed("max-pages") {
		cfg.MaxPages = previewMaxPages
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or api_key in config)")
	}

	llmClient, err := llm.NewGeminiClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer llmClient.Close()

	classification, err := classify.New(llmClient).Classify(ctx, businessURL)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Industry: %s (confidence %.2f)\n", classification.Industry, classification.Confidence)

	source := extraction.NewCrawlerSource(llmClient, &crawling.Options{
		MaxPages:   cfg.MaxPages,
		UseBrowser: cfg.UseBrowser,
	})
	snapshot, err := source.Extract(ctx, businessURL, classification.Industry)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	populated := snapshot.PopulatedCategories()
	fmt.Fprintf(os.Stderr, "Extracted %d of %d categories\n", len(populated), len(knowledge.Categories))

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(snapshot)
}
