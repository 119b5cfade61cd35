package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"trustcore/internal/app"
	"trustcore/internal/platform/config"
	"trustcore/internal/platform/httpserver"
	"trustcore/internal/platform/logger"
	"trustcore/internal/platform/metrics"
	"trustcore/internal/platform/postgres"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the notification dispatcher and the ops server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before starting")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, migrate bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.New(cfg.LogLevel)
	reg := metrics.NewRegistry()

	if migrate && cfg.Database.URL != "" {
		if err := postgres.MigrateUp(cfg.Database.URL); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	core, err := app.New(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := core.Close(); err != nil {
			log.Error("failed to release resources", "error", err)
		}
	}()

	srv := httpserver.New(cfg.OpsAddr, httpserver.OpsRouter(metrics.Handler(reg), core.Checks()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return core.Dispatcher.Run(gctx)
	})
	g.Go(func() error {
		log.Info("ops server listening", "addr", cfg.OpsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("shutdown complete")
	return err
}
