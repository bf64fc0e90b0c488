package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"deflect.app/relay/internal/deflection"
	"deflect.app/relay/internal/service"
	"deflect.app/relay/internal/store"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <ticket-id>",
	Short: "Check whether a ticket is eligible for an automated response",
	Long: `Run the account's deflection policy against a stored ticket and print the
eligibility verdict, plus the latest candidate response if one exists. Nothing
is generated, charged or sent.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ticketID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ticket id %q", args[0])
		}

		ticket, err := stores.Tickets().GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("ticket %d not found", ticketID)
			}
			return err
		}

		policy, err := service.NewPolicyResolver(stores.Policies()).PolicyFor(ctx, ticket.AccountID)
		if err != nil {
			return err
		}

		result := deflection.Evaluate(ticket, policy)

		yellow := color.New(color.FgYellow).SprintFunc()
		green := color.New(color.FgGreen, color.Bold).SprintFunc()
		red := color.New(color.FgRed, color.Bold).SprintFunc()

		fmt.Printf("%s\n", yellow("Ticket:"))
		fmt.Printf("  ID:        %d (account %d)\n", ticket.ID, ticket.AccountID)
		fmt.Printf("  Priority:  %s\n", ticket.Priority)
		fmt.Printf("  Category:  %s\n", ticket.CategoryValue())
		fmt.Printf("  Status:    %s\n", ticket.Status)
		fmt.Println()

		verdict := red("NOT ELIGIBLE")
		if result.Allowed {
			verdict = green("ELIGIBLE")
		}
		fmt.Printf("%s %s\n", verdict, result.Reason)
		fmt.Printf("  auto-respond at ≥ %.2f, escalate below %.2f\n",
			policy.ConfidenceThreshold, policy.EscalationThreshold)

		resp, err := stores.Responses().LatestByTicket(ctx, ticket.ID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Printf("%s\n", yellow("Latest response:"))
		fmt.Printf("  Confidence:  %.2f\n", resp.Confidence)
		fmt.Printf("  Type:        %s\n", resp.Type)
		fmt.Printf("  Tokens:      %d ($%.5f)\n", resp.TokensUsed, resp.Cost)
		fmt.Printf("  Sent:        %t\n", resp.Sent)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
}
