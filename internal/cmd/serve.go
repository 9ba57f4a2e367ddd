package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/manman/internal/config"
	"github.com/cameronsjo/manman/internal/server"
	"github.com/cameronsjo/manman/internal/ui"
)

var (
	servePort       int
	serveDrainDelay time.Duration
	serveMaxBody    int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the manman HTTP API.

Routes:
  POST /manifests/generate    Render manifests (metadata in X-* headers)
  POST /dockerfiles/generate  Render the Dockerfile
  POST /secrets/encrypt       Encrypt secret values
  GET  /liveness              Process is up
  GET  /ready                 Accepting traffic (503 while draining)
  GET  /metrics               Prometheus metrics

SIGTERM and SIGINT trigger a graceful shutdown: /ready turns 503 for the
drain delay, then in-flight requests are allowed to finish.

Examples:
  manman serve
  PORT=9000 MANMAN_TEMPLATES=s3://templates/manman?region=eu-west-1 manman serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (default from PORT or 8000)")
	serveCmd.Flags().DurationVar(&serveDrainDelay, "drain-delay", 0, "Time /ready reports 503 before shutdown")
	serveCmd.Flags().Int64Var(&serveMaxBody, "max-body-bytes", server.DefaultConfig().MaxBodyBytes, "Largest accepted request body")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	settings := loadSettings()
	if servePort != 0 {
		settings.Port = servePort
	}
	if err := config.Validate(settings); err != nil {
		return err
	}

	assembler, err := newAssembler(settings)
	if err != nil {
		return err
	}

	cfg := server.DefaultConfig()
	cfg.Port = settings.Port
	cfg.Environments = settings.Environments
	cfg.DrainDelay = serveDrainDelay
	cfg.MaxBodyBytes = serveMaxBody

	ui.Header("=== manman %s ===", version)
	ui.Info("Release: %s", settings.Release)
	ui.Info("Environments: %v", settings.Environments)
	if settings.VaultAddress != "" {
		ui.Info("Vault: %s", settings.VaultAddress)
	}

	return server.New(cfg, assembler).Run(cmd.Context())
}
