package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/applyflow/applyflow/internal/infra/storage/postgres"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback [applicant_id] [text...]",
	Short: "Record reviewer feedback for an applicant",
	Args:  cobra.MinimumNArgs(2),
	Run:   runFeedback,
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
}

func runFeedback(cmd *cobra.Command, args []string) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Printf("Invalid applicant id: %s\n", args[0])
		os.Exit(1)
	}
	text := strings.Join(args[1:], " ")

	ctx := context.Background()
	db, _ := openDB(ctx)
	defer func() {
		_ = db.Close()
	}()

	if err := postgres.NewApplicantRepo(db).UpdateFeedback(ctx, id, text); err != nil {
		slog.Error("Failed to record feedback", "error", err)
		os.Exit(1)
	}
	fmt.Println("Feedback recorded")
}
