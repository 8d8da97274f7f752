package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hotel-booking/config"
	"hotel-booking/logger"
)

var (
	cfg *config.Config
	log logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hotel-booking",
	Short: "Multi-tenant hotel booking backend",
	Long: `Backend for agency-managed hotel booking systems: hoteliers issue single-use booking
links, guests complete a multi-step wizard, and confirmations are mailed from a queued outbox.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		log = logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, createAgencyUserCmd, sweepLinksCmd, outboxWorkerCmd)
}
