package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var outboxWorkerCmd = &cobra.Command{
	Use:   "outbox-worker",
	Short: "Deliver queued emails until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		d, err := openDeps(ctx, cfg)
		if err != nil {
			return err
		}
		defer d.close()

		log.Info("outbox worker started", map[string]interface{}{"max_attempts": cfg.Outbox.MaxAttempts})
		if err := d.outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		log.Info("outbox worker stopped", nil)
		return nil
	},
}
