package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxlane/voxlane/internal/classify"
	"github.com/voxlane/voxlane/internal/config"
	"github.com/voxlane/voxlane/internal/crawling"
	"github.com/voxlane/voxlane/internal/db"
	"github.com/voxlane/voxlane/internal/directory"
	"github.com/voxlane/voxlane/internal/engine"
	"github.com/voxlane/voxlane/internal/extraction"
	"github.com/voxlane/voxlane/internal/llm"
	"github.com/voxlane/voxlane/internal/server"
	"github.com/voxlane/voxlane/internal/stages"
	"github.com/voxlane/voxlane/internal/telephony"
	"github.com/voxlane/voxlane/internal/voice"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the workflow engine and its REST API. Workflows submitted via the
API run classification, extraction and deployment in the background, parking
for human validation between extraction and deployment.

Configuration can be loaded from a JSON file using --config; environment
variables fill anything the file leaves out.`,
	RunE: runServeCmd,
}

var (
	serveConfigPath string
	servePort       int
	serveUseBrowser bool
)

func init() {
	serveCommand.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file (values can be overridden by env vars)")
	serveCommand.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCommand.Flags().BoolVar(&serveUseBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")

	rootCmd.AddCommand(serveCommand)
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(serveConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = serveUseBrowser
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or api_key in config)")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database URL is required (set DATABASE_URL or database_url in config)")
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}

	llmClient, err := llm.NewGeminiClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer llmClient.Close()

	coordinator := engine.New(
		database,
		stages.NewClassificationStage(classify.New(llmClient)),
		stages.NewExtractionStage(buildSources(llmClient, cfg)),
		stages.NewDeploymentStage(
			voice.NewClient(cfg.VoiceBaseURL, cfg.VoiceAPIKey),
			telephony.NewClient(cfg.TelephonyBaseURL, cfg.TelephonyAccountSID, cfg.TelephonyAuthToken),
		),
		nil,
	)

	srv, err := server.New(server.Config{Port: servePort}, coordinator, database)
	if err != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		_ = coordinator.Shutdown(shutdownCtx)
		return err
	}

	return srv.Start()
}

// buildSources assembles the extraction fan-out. The crawler is always on;
// the business directory joins when credentials are configured.
func buildSources(llmClient llm.Client, cfg config.Config) []extraction.Source {
	crawlOpts := &crawling.Options{
		MaxPages:   cfg.MaxPages,
		UseBrowser: cfg.UseBrowser,
	}
	sources := []extraction.Source{
		extraction.NewCrawlerSource(llmClient, crawlOpts),
	}
	if cfg.DirectoryBaseURL != "" && cfg.DirectoryAPIKey != "" {
		sources = append(sources, directory.NewClient(cfg.DirectoryBaseURL, cfg.DirectoryAPIKey))
	} else {
		log.Println("business directory not configured, extracting from crawler only")
	}
	return sources
}

// loadConfig merges an optional JSON config file over environment defaults.
func loadConfig(path string) (config.Config, error) {
	envCfg := config.FromEnv()
	if path == "" {
		return envCfg, envCfg.Validate()
	}

	fileCfg, err := config.LoadConfig(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	merged := fileCfg.MergeWithDefaults(envCfg)
	return merged, merged.Validate()
}
