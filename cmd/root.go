// Package cmd contains the qrstudio CLI commands.
package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cristianadrielbraun/qrstudio/internal/config"
	"github.com/cristianadrielbraun/qrstudio/internal/encoder"
	"github.com/cristianadrielbraun/qrstudio/internal/export"
	"github.com/cristianadrielbraun/qrstudio/internal/imageload"
	"github.com/cristianadrielbraun/qrstudio/internal/logger"
	"github.com/cristianadrielbraun/qrstudio/internal/metrics"
	"github.com/cristianadrielbraun/qrstudio/internal/optimizer"
	"github.com/cristianadrielbraun/qrstudio/internal/render"
)

var (
	envFile string
	cfg     config.Config
	log     zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "qrstudio",
	Short: "QR code studio with logo and background compositing",
	Long: `qrstudio renders QR codes with optional logo and background overlays.

Example usage:
  qrstudio serve                                  # Start the web editor on $PORT
  qrstudio render "https://example.com"           # Write qrcode.png to the current directory
  qrstudio render --size 1200 --format svg "WIFI:T:WPA;S:home;P:secret;;"
  tail -f edits.txt | qrstudio watch -o out/      # Re-render as lines arrive`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}
		var err error
		cfg, err = config.Load(files...)
		if err != nil {
			return err
		}
		log = logger.New(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", ".env file to load (default .env if present)")
	rootCmd.AddCommand(serveCmd, renderCmd, watchCmd)
}

// services are the core components wired from configuration.
type services struct {
	pipeline  *render.Pipeline
	exporter  *export.Service
	optimizer *optimizer.Optimizer
	metrics   *metrics.Metrics
}

func newServices(cfg config.Config, log zerolog.Logger) (*services, error) {
	enc, err := encoder.New(cfg.Encoder)
	if err != nil {
		return nil, err
	}
	m := metrics.New()
	loader := imageload.New(
		imageload.WithTimeout(cfg.ImageLoadTimeout),
		imageload.WithPrivateHosts(cfg.AllowPrivateImageHosts),
		imageload.WithLogger(log.With().Str("component", "imageload").Logger()),
	)

	pipeline, err := render.New(enc, loader,
		render.WithLogger(log.With().Str("component", "render").Logger()),
		render.WithCacheSize(cfg.RenderCacheSize),
		render.WithMetrics(m),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build render pipeline: %w", err)
	}
	exporter, err := export.New(
		export.WithLogger(log.With().Str("component", "export").Logger()),
		export.WithCacheSize(cfg.ResizeCacheSize),
		export.WithMetrics(m),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build export service: %w", err)
	}
	opt := optimizer.New(
		optimizer.WithMaxBytes(cfg.MaxUploadBytes),
		optimizer.WithLogger(log.With().Str("component", "optimizer").Logger()),
	)

	return &services{pipeline: pipeline, exporter: exporter, optimizer: opt, metrics: m}, nil
}

// close releases instance-scoped caches.
func (s *services) close() {
	s.pipeline.ClearCache()
	s.exporter.ClearCache()
}
