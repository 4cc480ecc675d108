package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/partsight/inspect-cli/internal/model"
	"github.com/partsight/inspect-cli/internal/store"
)

var (
	jobsStatus string
	jobsLimit  int
	jobsJSON   bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect batch job history",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent batch jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		jobs, err := st.ListJobs(cmd.Context(), store.JobFilter{
			Status: model.JobStatus(jobsStatus),
			Limit:  jobsLimit,
		})
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Println("No jobs found.")
			return nil
		}

		fmt.Printf("%-38s %-12s %9s %9s %9s  %s\n", "ID", "STATUS", "TOTAL", "DONE", "FAILED", "CREATED")
		for _, j := range jobs {
			fmt.Printf("%-38s %-12s %9d %9d %9d  %s\n",
				j.ID, j.Status, j.TotalPairs(), j.CompletedPairs, j.FailedPairs,
				j.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var jobsGetCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Show one batch job in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		job, err := st.GetJob(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if jobsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(job)
		}

		printJob(job)
		for _, r := range job.Results {
			status := "ok"
			if !r.Succeeded() {
				status = "failed"
			}
			fmt.Printf("  %-38s %-8s attempts=%d", r.ItemID, status, r.Attempts)
			if r.Analysis != nil && r.Analysis.Confidence != nil {
				fmt.Printf(" confidence=%.2f", r.Analysis.Confidence.OverallConfidence)
			}
			if r.Error != "" {
				fmt.Printf(" error=%s", r.Error)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	jobsListCmd.Flags().StringVar(&jobsStatus, "status", "", "filter by status (pending|processing|completed|failed)")
	jobsListCmd.Flags().IntVar(&jobsLimit, "limit", 20, "maximum jobs to list")
	jobsGetCmd.Flags().BoolVar(&jobsJSON, "json", false, "print the raw job snapshot as JSON")
	jobsCmd.AddCommand(jobsListCmd, jobsGetCmd)
	rootCmd.AddCommand(jobsCmd)
}
