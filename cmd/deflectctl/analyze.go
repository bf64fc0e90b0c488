package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"deflect.app/relay/common/llm"
	"deflect.app/relay/internal/brain"
	"deflect.app/relay/internal/model"
	"deflect.app/relay/internal/service"
)

var (
	analyzeAccount    int64
	analyzeWindowDays int
	analyzeFAQs       bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a pattern analysis for one account and print the insights",
	Long: `Cluster the account's recent tickets, rebuild its deflection insights and
print them ranked by potential savings. The run is recorded like one requested
through the API, but executes in this process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if analyzeAccount == 0 {
			return fmt.Errorf("--account is required")
		}

		deps := service.AnalysisDeps{
			Tickets:  stores.Tickets(),
			Runs:     stores.AnalysisRuns(),
			Insights: stores.Insights(),
			TxRunner: service.NewTxRunner(database),
		}

		dims := cfg.Embedding.Dimensions
		if cfg.Embedding.Enabled() {
			embedder, err := llm.NewEmbedder(llm.EmbeddingConfig{
				APIKey:     cfg.Embedding.APIKey,
				BaseURL:    cfg.Embedding.BaseURL,
				Model:      cfg.Embedding.Model,
				Dimensions: cfg.Embedding.Dimensions,
			})
			if err != nil {
				return fmt.Errorf("creating embedder: %w", err)
			}
			deps.Embedder = embedder
			dims = embedder.Dimensions()
		}

		if analyzeFAQs {
			if !cfg.LLM.Enabled() {
				return fmt.Errorf("--faqs needs LLM_API_KEY")
			}
			client, err := llm.New(llm.Config{
				Provider:  cfg.LLM.Provider,
				APIKey:    cfg.LLM.APIKey,
				BaseURL:   cfg.LLM.BaseURL,
				Model:     cfg.LLM.Model,
				MaxTokens: cfg.LLM.MaxTokens,
			})
			if err != nil {
				return fmt.Errorf("creating llm client: %w", err)
			}
			deps.FAQs = brain.NewFAQWriter(client, stores.FAQs(), stores.LLMEvals())
		}

		analysis := service.NewAnalysisService(deps, service.AnalysisConfig{
			SimilarityThreshold: cfg.Analysis.SimilarityThreshold,
			MinClusterSize:      cfg.Analysis.MinClusterSize,
			AgentHourlyCost:     cfg.Analysis.AgentHourlyCost,
			FAQProneCategories:  cfg.Analysis.FAQProneCategories,
			WindowDays:          cfg.Analysis.WindowDays,
			EmbeddingRPS:        cfg.Analysis.EmbeddingRPS,
			EmbeddingDimensions: dims,
			GenerateFAQs:        analyzeFAQs,
			RunLease:            cfg.Analysis.RunLease,
		})

		run, err := analysis.Request(ctx, analyzeAccount, analyzeWindowDays)
		if err != nil {
			return err
		}
		if _, err := analysis.Run(ctx, run.ID); err != nil {
			return fmt.Errorf("analysis run %d: %w", run.ID, err)
		}

		report, err := analysis.Report(ctx, analyzeAccount)
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Int64Var(&analyzeAccount, "account", 0, "account id to analyze")
	analyzeCmd.Flags().IntVar(&analyzeWindowDays, "window-days", 0, "days of ticket history to cluster (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeFAQs, "faqs", false, "draft knowledge-base articles for quick wins")
	rootCmd.AddCommand(analyzeCmd)
}

func printReport(report *service.InsightReport) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s\n\n", cyan("=== Deflection Insights ==="))

	if run := report.Run; run != nil {
		fmt.Printf("%s\n", yellow("Run:"))
		fmt.Printf("  ID:        %d (%s)\n", run.ID, run.Status)
		fmt.Printf("  Window:    %s → %s\n", run.WindowStart.Format("2006-01-02"), run.WindowEnd.Format("2006-01-02"))
		fmt.Printf("  Tickets:   %d in %d clusters\n", run.TicketCount, run.ClusterCount)
		fmt.Println()
	}

	s := report.Summary
	fmt.Printf("%s\n", yellow("Summary:"))
	fmt.Printf("  Insights:           %d (%d quick wins, %d big impact)\n", s.Insights, s.QuickWins, s.BigImpact)
	fmt.Printf("  Tickets covered:    %d\n", s.Tickets)
	fmt.Printf("  Annual cost:        $%.2f\n", s.AnnualCost)
	fmt.Printf("  Potential savings:  $%.2f / year\n", s.TotalPotentialSavings)
	fmt.Println()

	if len(report.Insights) == 0 {
		fmt.Println(gray("No clusters reached the minimum size."))
		return
	}

	for i, in := range report.Insights {
		fmt.Printf("%d. %s %s\n", i+1, priorityColor(in.Priority).Sprint(strings.ToUpper(string(in.Priority))), in.Category)
		fmt.Printf("   %d tickets, %.1f min avg, $%.2f/year, %d%% deflectable\n",
			in.TicketCount, in.AvgHandleTimeMinutes, in.AnnualCost, in.DeflectionPotential)
		if len(in.Keywords) > 0 {
			fmt.Printf("   %s %s\n", gray("keywords:"), strings.Join(in.Keywords, ", "))
		}
		for _, q := range in.ExampleQuestions {
			fmt.Printf("   %s %s\n", gray("•"), q)
		}
		fmt.Printf("   → %s\n\n", in.RecommendedAction)
	}
}

func priorityColor(p model.InsightPriority) *color.Color {
	switch p {
	case model.InsightPriorityHigh:
		return color.New(color.FgRed, color.Bold)
	case model.InsightPriorityMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}
