package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/caseloft/store-service/internal/database"
	"github.com/caseloft/store-service/internal/scheduler"
)

// schedulesCmd represents the schedules command
var schedulesCmd = &cobra.Command{
	Use:   "schedules",
	Short: "List persisted job schedules",
	Long: `List the schedule records persisted in the database. These are the jobs
the server restores into its registry on the next restart.`,
	RunE: runSchedules,
}

func init() {
	rootCmd.AddCommand(schedulesCmd)
}

func runSchedules(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store := scheduler.NewRecordStore(database.Pool(), *logger)
	records, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list schedules: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No schedule records found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCRON\tJOB ID\tKIND\tRUNNING")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n",
			rec.ID, rec.Name, rec.CronExpr, rec.JobID, rec.JobKind, rec.Running)
	}
	return w.Flush()
}
