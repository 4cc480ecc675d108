package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/partsight/inspect-cli/internal/batch"
	"github.com/partsight/inspect-cli/internal/model"
)

var (
	batchManifest   string
	batchRetryJobID string
	batchSkipExport bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run a batch of photo-pair inspections from a manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		progress := func(u model.ProgressUpdate) {
			fmt.Printf("  [%d/%d] item %s done (%d failed)\n",
				u.CompletedPairs+u.FailedPairs, u.TotalPairs, u.ItemID, u.FailedPairs)
		}

		e, err := initEnv(ctx, progress)
		if err != nil {
			return err
		}
		defer e.Close()

		var job *model.BatchJob
		if batchRetryJobID != "" {
			job, err = e.Orchestrator.RetryFailed(ctx, batchRetryJobID)
		} else {
			if batchManifest == "" {
				return fmt.Errorf("either --manifest or --retry-failed is required")
			}
			var items []model.PairItem
			items, err = batch.LoadManifest(batchManifest)
			if err != nil {
				return err
			}
			fmt.Printf("Running batch of %d pairs (chunk size %d)\n", len(items), cfg.Batch.ChunkSize)
			job, err = e.Orchestrator.Run(ctx, items)
		}
		if err != nil {
			return err
		}

		printJob(job)

		if !batchSkipExport && job.Status == model.JobStatusCompleted {
			e.Exporter.Dispatch(ctx, job)
		}
		return nil
	},
}

func printJob(job *model.BatchJob) {
	fmt.Printf("\nJob %s: %s — %d completed, %d failed of %d\n",
		job.ID, job.Status, job.CompletedPairs, job.FailedPairs, job.TotalPairs())

	if o := job.Overall; o != nil {
		fmt.Printf("Batch verdict: %s (trend %s)\n", o.Status, o.Trend)
		s := o.Statistics
		fmt.Printf("  Avg confidence %.2f, weighted %.2f, avg quality %.2f\n",
			s.AvgConfidence, s.WeightedConfidence, s.AvgQualityScore)
		fmt.Printf("  Tokens: %d spent, %d saved — cost $%.4f\n",
			s.TokensSpent, s.TokensSaved, s.TotalCostUSD)
		for _, issue := range o.CriticalIssues {
			fmt.Printf("  ! %s\n", issue)
		}
		for _, p := range o.Patterns {
			fmt.Printf("  pattern: %s\n", p.Description)
		}
		for _, rec := range o.Recommendations {
			fmt.Printf("  [%s] %s\n", rec.Priority, rec.Title)
		}
	}

	for _, msg := range job.ErrorMessages {
		fmt.Printf("  error: %s\n", msg)
	}
}

func init() {
	batchCmd.Flags().StringVar(&batchManifest, "manifest", "", "path to YAML or CSV manifest of photo pairs")
	batchCmd.Flags().StringVar(&batchRetryJobID, "retry-failed", "", "re-run dead-lettered items from the given job id")
	batchCmd.Flags().BoolVar(&batchSkipExport, "skip-export", false, "skip report export sinks")
	rootCmd.AddCommand(batchCmd)
}
