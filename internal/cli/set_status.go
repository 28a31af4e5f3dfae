package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/applyflow/applyflow/internal/core/domain"
	"github.com/applyflow/applyflow/internal/infra/storage/postgres"
)

var validStatuses = map[string]domain.ApplicantStatus{
	"new":                 domain.StatusNew,
	"shortlisted":         domain.StatusShortlisted,
	"interview-scheduled": domain.StatusInterviewScheduled,
	"rejected":            domain.StatusRejected,
	"hired":               domain.StatusHired,
}

var setStatusCmd = &cobra.Command{
	Use:   "set-status [applicant_id...] [status]",
	Short: "Move one or more applicants to a new status",
	Long:  `Status is one of: new, shortlisted, interview-scheduled, rejected, hired.`,
	Args:  cobra.MinimumNArgs(2),
	Run:   runSetStatus,
}

func init() {
	rootCmd.AddCommand(setStatusCmd)
}

func runSetStatus(cmd *cobra.Command, args []string) {
	status, ok := validStatuses[strings.ToLower(args[len(args)-1])]
	if !ok {
		fmt.Printf("Invalid status: %s\n", args[len(args)-1])
		os.Exit(1)
	}

	ids := make([]int64, 0, len(args)-1)
	for _, arg := range args[:len(args)-1] {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			fmt.Printf("Invalid applicant id: %s\n", arg)
			os.Exit(1)
		}
		ids = append(ids, id)
	}

	ctx := context.Background()
	db, _ := openDB(ctx)
	defer func() {
		_ = db.Close()
	}()

	repo := postgres.NewApplicantRepo(db)
	if len(ids) == 1 {
		if err := repo.UpdateStatus(ctx, ids[0], status); err != nil {
			slog.Error("Failed to update status", "error", err)
			os.Exit(1)
		}
	} else {
		if err := repo.BulkUpdateStatus(ctx, ids, status); err != nil {
			slog.Error("Failed to update statuses", "error", err)
			os.Exit(1)
		}
	}
	fmt.Printf("Updated %d applicant(s) to %s\n", len(ids), status)
}
