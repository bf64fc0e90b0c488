package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"deflect.app/relay/internal/cost"
)

var (
	costHandleMinutes float64
	costHourlyRate    float64
	costMonthly       int
	costPeers         []float64
	costTokens        int
)

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Estimate support cost per ticket and compare it with peers",
	Long: `Compute the human cost of one ticket from handle time and agent rate, the
annual cost at a given monthly volume, and the LLM cost of a response of the
given token size. With --peers, the per-ticket cost is ranked against them.`,
	Annotations: map[string]string{annotationOffline: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if costHandleMinutes < 0 || costHourlyRate < 0 {
			return fmt.Errorf("--minutes and --hourly must not be negative")
		}
		hourly := costHourlyRate
		if hourly == 0 {
			hourly = cfg.Analysis.AgentHourlyCost
		}

		perTicket := cost.PerTicketCost(costHandleMinutes, hourly)
		annual := cost.AnnualCost(costMonthly*12, costHandleMinutes, hourly)
		llmCost := cost.TokenCost(costTokens, cost.Rates{
			InputPer1K:  cfg.Deflection.InputRatePer1K,
			OutputPer1K: cfg.Deflection.OutputRatePer1K,
		})

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== Support Cost ==="))
		fmt.Printf("%s\n", yellow("Human handling:"))
		fmt.Printf("  Per ticket:   $%.2f (%.1f min at $%.2f/h)\n", perTicket, costHandleMinutes, hourly)
		fmt.Printf("  Annual:       $%.2f (%d tickets/month)\n", annual, costMonthly)
		fmt.Printf("  Monthly:      $%.2f\n", cost.MonthlyCost(annual))
		fmt.Println()
		fmt.Printf("%s\n", yellow("Automated response:"))
		fmt.Printf("  Per ticket:   $%.5f (%d tokens)\n", llmCost, costTokens)
		fmt.Println()

		if len(costPeers) == 0 {
			return nil
		}

		b := cost.Benchmark(perTicket, costPeers)
		rankColor := color.New(color.FgGreen)
		if b.Value > b.Median {
			rankColor = color.New(color.FgRed)
		}
		fmt.Printf("%s\n", yellow("Peer benchmark:"))
		fmt.Printf("  Rank:         %s of %d peers cost less\n", rankColor.Sprintf("%.0f%%", b.Rank), b.Peers)
		fmt.Printf("  P25 / Median / P75:  $%.2f / $%.2f / $%.2f\n", b.P25, b.Median, b.P75)
		fmt.Println()
		return nil
	},
}

func init() {
	costCmd.Flags().Float64Var(&costHandleMinutes, "minutes", 15, "average handle time in minutes")
	costCmd.Flags().Float64Var(&costHourlyRate, "hourly", 0, "agent hourly cost (default from config)")
	costCmd.Flags().IntVar(&costMonthly, "monthly", 100, "tickets per month")
	costCmd.Flags().Float64SliceVar(&costPeers, "peers", nil, "peer per-ticket costs to benchmark against")
	costCmd.Flags().IntVar(&costTokens, "tokens", 800, "tokens used by one automated response")
	rootCmd.AddCommand(costCmd)
}
