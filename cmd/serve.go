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

	"github.com/cristianadrielbraun/qrstudio/internal/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web editor and HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(cfg, log)
		if err != nil {
			return err
		}
		defer svc.close()

		gin.SetMode(gin.ReleaseMode)
		r := gin.New()
		r.Use(gin.Logger())
		r.Use(gin.Recovery())

		handlers.New(handlers.Deps{
			Pipeline:  svc.pipeline,
			Exporter:  svc.exporter,
			Optimizer: svc.optimizer,
			Metrics:   svc.metrics,
			Logger:    log,
			MaxUpload: cfg.MaxUploadBytes,
		}).Register(r)

		srv := &http.Server{
			Addr:              cfg.Addr(),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", srv.Addr).Msg("qrstudio listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
