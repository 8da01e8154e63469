package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fieldforge/fieldforge/bootstrap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the schema engine API server",
	Long: `Start the FieldForge API server.

The server will:
  - Load configuration from fieldforge.yaml (or --config)
  - Or load configuration from FIELDFORGE_* environment variables
  - Open the database and apply migrations
  - Serve the module, field, and record APIs
  - Reload engine settings on config changes or SIGHUP

Environment variables (for Docker deployments):
  FIELDFORGE_DATABASE_DRIVER  - Storage driver: sqlite or memory
  FIELDFORGE_DATABASE_DSN     - Database path (default: fieldforge.db)
  FIELDFORGE_SERVER_PORT      - Server port (default: 8080)
  FIELDFORGE_AUTH_MODE        - Auth mode: jwt or none
  FIELDFORGE_AUTH_JWT_SECRET  - JWT signing secret (required for jwt mode)
  FIELDFORGE_LOG_LEVEL        - Log level: debug, info, warn, error

Examples:
  fieldforge serve
  fieldforge serve --config /etc/fieldforge/config.yaml

  # Docker (env vars only):
  FIELDFORGE_AUTH_MODE=none fieldforge serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(cfgFile); err != nil {
		fmt.Println("Running with environment variables (no config file)")
	}

	app, err := bootstrap.New(bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Blocks until shutdown.
	return app.Run(ctx)
}
