package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"hotel-booking/config"
	"hotel-booking/services"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := config.ConnectDatabase(cfg.Database.MySQL, log)
		if err != nil {
			return err
		}
		defer closeDB(db)

		if err := config.Migrate(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Info("migrations applied", nil)
		return nil
	},
}

var (
	agencyEmail    string
	agencyPassword string
)

var createAgencyUserCmd = &cobra.Command{
	Use:   "create-agency-user",
	Short: "Create an agency account that can manage every hotel",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := config.ConnectDatabase(cfg.Database.MySQL, log)
		if err != nil {
			return err
		}
		defer closeDB(db)

		svc := services.NewSessionService(db, nil)
		user, err := svc.CreateAgencyUser(context.Background(), agencyEmail, agencyPassword)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "agency user %s created (%s)\n", user.Email, user.ID)
		return nil
	},
}

var sweepLinksCmd = &cobra.Command{
	Use:   "sweep-links",
	Short: "Delete links whose booking is gone and expire stale active links",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := config.ConnectDatabase(cfg.Database.MySQL, log)
		if err != nil {
			return err
		}
		defer closeDB(db)

		svc := services.NewBookingService(db, nil, log, cfg.App.LinkTTL, cfg.App.FrontendURL)
		res, err := svc.SweepOrphanLinks(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "orphans deleted: %d, links expired: %d\n", res.OrphansDeleted, res.Expired)
		return nil
	},
}

func init() {
	createAgencyUserCmd.Flags().StringVar(&agencyEmail, "email", "", "login email")
	createAgencyUserCmd.Flags().StringVar(&agencyPassword, "password", "", "initial password")
	_ = createAgencyUserCmd.MarkFlagRequired("email")
	_ = createAgencyUserCmd.MarkFlagRequired("password")
}
