package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/investlens/lenscore/config"
	"github.com/investlens/lenscore/internal/debate"
	"github.com/investlens/lenscore/internal/llm"
	"github.com/investlens/lenscore/internal/logger"
	"github.com/investlens/lenscore/internal/marketdata"
	"github.com/investlens/lenscore/internal/models"
	"github.com/investlens/lenscore/internal/newsfetch"
	"github.com/investlens/lenscore/internal/server"
	"github.com/investlens/lenscore/internal/watchlist"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "lenscore",
		Short: "InvestLens consensus kernel",
		Long: `lenscore runs the InvestLens Multi-Model Consensus Engine: it debates a
ticker through optimistic (Bull) and skeptical (Bear) model personas and
synthesizes a final verdict through an impartial judge.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.Init()
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cfg, "", nil, false)
		},
	}

	rootCmd.AddCommand(newServeCmd(cfg))
	rootCmd.AddCommand(newAnalyzeCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(cfg))

	return rootCmd
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the consensus kernel HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := watchlist.Open(cfg.WatchlistDB)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := server.New(cfg, newOrchestrator(cfg), marketdata.NewYahooProvider(cfg), store)
			logger.Info(context.Background(), "starting server", "addr", cfg.Addr())
			return srv.Run()
		},
	}
}

func newAnalyzeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [TICKER]",
		Short: "Run a consensus debate for a stock symbol",
		Long: `Run the full bull/bear/judge debate for a ticker symbol.
Example: lenscore analyze AAPL --focus Technical --focus Macro --quant`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker := ""
			if len(args) > 0 {
				ticker = args[0]
			}
			focus, _ := cmd.Flags().GetStringArray("focus")
			quant, _ := cmd.Flags().GetBool("quant")
			return runAnalyze(cfg, ticker, focus, quant)
		},
	}

	cmd.Flags().StringArray("focus", nil, "Focus area (repeatable)")
	cmd.Flags().Bool("quant", false, "Request a structured trading plan in the verdict")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("lenscore v0.1.0")
			fmt.Println("InvestLens Multi-Model Consensus Engine")
		},
	}
}

func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			// API key is excluded from the JSON view by the struct tags.
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	})

	return configCmd
}

func newOrchestrator(cfg *config.Config) *debate.Orchestrator {
	var news debate.NewsProvider
	if cfg.NewsEnabled {
		news = newsfetch.NewClient()
	}
	return debate.NewOrchestrator(cfg, marketdata.NewYahooProvider(cfg), news, llm.DefaultFactory())
}

func runAnalyze(cfg *config.Config, ticker string, focus []string, quant bool) error {
	var err error
	if strings.TrimSpace(ticker) == "" {
		ticker, err = PromptForTicker()
		if err != nil {
			return err
		}
	}
	if len(focus) == 0 {
		focus, err = PromptForFocusAreas()
		if err != nil {
			return err
		}
	}

	if cfg.LLMAPIKey == "" {
		fmt.Fprintln(os.Stderr, "warning: LLM_API_KEY is not set; provider calls will fail")
	}

	req := debate.Request{
		Ticker:     ticker,
		FocusAreas: focus,
		Quant:      quant,
		Configs: []models.ModelConfig{{
			ID:       "default",
			Name:     cfg.LLMModel,
			Provider: cfg.LLMProvider,
			BaseURL:  cfg.LLMBaseURL,
			APIKey:   cfg.LLMAPIKey,
			Model:    cfg.LLMModel,
			Enabled:  true,
		}},
	}

	var report *models.ConsensusReport
	for ev := range newOrchestrator(cfg).Run(context.Background(), req) {
		RenderEvent(ev)
		if ev.Stage == models.StageDone && ev.Result != nil {
			report = ev.Result
		}
		if ev.Stage == models.StageFailed {
			return fmt.Errorf("analysis failed: %s", ev.Message)
		}
	}

	if report != nil {
		RenderReport(report)
	}
	return nil
}
