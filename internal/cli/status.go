package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	redisclient "github.com/applyflow/applyflow/internal/infra/redis"
	"github.com/applyflow/applyflow/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applicant counts and pipeline health",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	db, cfg := openDB(ctx)
	defer func() {
		_ = db.Close()
	}()

	stats, err := postgres.NewApplicantRepo(db).Stats(ctx)
	if err != nil {
		slog.Error("Failed to collect stats", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "METRIC\tVALUE")
	_, _ = fmt.Fprintf(w, "applicants\t%d\n", stats.TotalApplicants)
	_, _ = fmt.Fprintf(w, "communications\t%d\n", stats.TotalCommunications)
	_, _ = fmt.Fprintf(w, "active threads\t%d\n", stats.ActiveThreads)
	for status, count := range stats.StatusDistribution {
		_, _ = fmt.Fprintf(w, "status %s\t%d\n", status, count)
	}

	if cfg.Redis.URL != "" {
		if client, err := redisclient.NewClient(cfg.Redis); err == nil {
			defer client.Close()
			if count, err := redisclient.NewFailedMessageRepo(client).Count(ctx); err == nil {
				_, _ = fmt.Fprintf(w, "failed messages\t%d\n", count)
			}
		}
	}
	_ = w.Flush()
}
