package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"hotel-booking/config"
	"hotel-booking/controllers"
	"hotel-booking/routes"
	"hotel-booking/services"
	"hotel-booking/storage"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.App.Environment == "production" {
			gin.SetMode(gin.ReleaseMode)
		}

		d, err := openDeps(ctx, cfg)
		if err != nil {
			return err
		}
		defer d.close()

		if autoMigrate {
			if err := config.Migrate(d.db); err != nil {
				return err
			}
		}

		jwt, verifier := newVerifier(cfg, d.rdb)

		resolver := services.NewLinkResolver(d.db)
		bookingSvc := services.NewBookingService(d.db, d.store, log, cfg.App.LinkTTL, cfg.App.FrontendURL)
		guestSvc := services.NewGuestService(d.db, resolver, services.NewDraftStore(d.rdb), d.store, d.outbox, log)
		hotelSvc := services.NewHotelService(d.db, d.store, d.outbox, d.text, log)
		sessionSvc := services.NewSessionService(d.db, jwt)

		handlers := routes.Handlers{
			Session:   controllers.NewSessionController(sessionSvc, verifier, cfg.Auth.SecureCookies, log),
			Agency:    controllers.NewAgencyController(hotelSvc, log),
			Dashboard: controllers.NewDashboardController(bookingSvc, log),
			Settings:  controllers.NewSettingsController(hotelSvc, log),
			Guest:     controllers.NewGuestController(resolver, guestSvc, log),
			Pages:     controllers.NewPagesController(hotelSvc, resolver, log),
		}

		var uploadsDir string
		if local, ok := d.store.(*storage.LocalStore); ok {
			uploadsDir = local.Root()
		}
		router := routes.SetupRouter(cfg.App, handlers, verifier, log, uploadsDir)

		workerDone := make(chan struct{})
		if cfg.Outbox.InProcess {
			go func() {
				defer close(workerDone)
				if err := d.outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("outbox worker stopped", map[string]interface{}{"error": err.Error()})
				}
			}()
		} else {
			close(workerDone)
		}

		srv := &http.Server{
			Addr:              ":" + cfg.App.Port,
			Handler:           router,
			ReadTimeout:       30 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			log.Info("server starting", map[string]interface{}{"addr": srv.Addr, "environment": cfg.App.Environment})
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()

		var runErr error
		select {
		case runErr = <-serveErr:
			log.Error("server failed", map[string]interface{}{"error": runErr.Error()})
		case <-ctx.Done():
			log.Info("shutdown signal received", nil)
		}
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server forced to shutdown", map[string]interface{}{"error": err.Error()})
		}
		guestSvc.Wait()
		<-workerDone

		log.Info("server stopped", nil)
		return runErr
	},
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply schema migrations before serving")
}
