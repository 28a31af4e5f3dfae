package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/applyflow/applyflow/internal/core/config"
	"github.com/applyflow/applyflow/internal/infra/storage/postgres"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "applyctl",
	Short: "Admin tool for the application ingestion service",
	Long:  `applyctl inspects and updates applicant records managed by the ingestion pipeline.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
}

// openDB loads config and connects; CLI commands exit on failure.
func openDB(ctx context.Context) (*postgres.DB, *config.AppConfig) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	return db, cfg
}
