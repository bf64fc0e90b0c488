package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"deflect.app/relay/common/id"
	"deflect.app/relay/common/logger"
	"deflect.app/relay/core/config"
	"deflect.app/relay/core/db"
	"deflect.app/relay/internal/store"
)

// annotationOffline marks commands that never touch the database.
const annotationOffline = "offline"

var (
	cfg      config.Config
	database *db.DB
	stores   *store.Stores
)

var rootCmd = &cobra.Command{
	Use:   "deflectctl",
	Short: "Operate the ticket deflection engine from the command line",
	Long: `deflectctl runs pattern analysis and eligibility checks directly against
the deflection database, without going through the API server or the worker.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var err error
		cfg, err = config.Load(config.ServiceTypeCLI)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger.Setup(cfg)

		if cmd.Annotations[annotationOffline] == "true" {
			return nil
		}

		if err := id.Init(id.NodeCLI); err != nil {
			return fmt.Errorf("initializing id generator: %w", err)
		}

		database, err = db.New(ctx, cfg.DB)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		stores = store.NewStores(database.Querier())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if database != nil {
			database.Close()
		}
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
