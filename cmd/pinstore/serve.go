package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abduss/pinstore/internal/auth"
	"github.com/abduss/pinstore/internal/metrics"
	"github.com/abduss/pinstore/internal/mirror"
	"github.com/abduss/pinstore/internal/server"
	"github.com/abduss/pinstore/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pinstore HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.ensureBucket(ctx); err != nil {
			a.log.Error("ensure bucket", zap.Error(err))
			return err
		}

		metrics.InitMetrics()

		deps := server.Dependencies{
			Config:      a.cfg,
			State:       a.store,
			AuthService: auth.NewService(a.cfg.Auth),
			Gateway:     a.gateway,
		}

		if a.cfg.Mirror.Enabled {
			minioClient, err := storage.OpenMirror(ctx, a.cfg.MinIO)
			if err != nil {
				a.log.Error("open mirror", zap.Error(err))
				return err
			}
			deps.ObjectStore = minioClient
			deps.Links = mirror.NewService(minioClient, a.cfg.MinIO.Bucket, a.cfg.Mirror.LinkTTL, a.log.Named("mirror"))
		}

		httpServer := &http.Server{
			Addr:         a.cfg.Server.Address(),
			Handler:      server.NewRouter(deps),
			ReadTimeout:  a.cfg.Server.ReadTimeout,
			WriteTimeout: a.cfg.Server.WriteTimeout,
			IdleTimeout:  a.cfg.Server.IdleTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			a.log.Info("pinstore API listening",
				zap.String("address", a.cfg.Server.Address()),
				zap.String("state_backend", a.cfg.State.Backend),
				zap.Bool("mirror", a.cfg.Mirror.Enabled),
			)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
		case err := <-errCh:
			if err != nil {
				a.log.Error("http server", zap.Error(err))
				return err
			}
		}
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		a.log.Info("shutting down gracefully")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			a.log.Error("shutdown error", zap.Error(err))
			return err
		}
		return nil
	},
}
