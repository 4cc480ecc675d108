package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/partsight/inspect-cli/internal/monitoring"
)

var (
	metricsLookback int
	metricsJSON     bool
	metricsAlert    bool
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Collect health metrics over stored analyses, jobs, and feedback",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		collector := monitoring.NewCollector(st)
		snap, err := collector.Collect(cmd.Context(), metricsLookback)
		if err != nil {
			return err
		}

		if metricsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(snap); err != nil {
				return err
			}
		} else {
			printSnapshot(snap)
		}

		if !metricsAlert {
			return nil
		}
		alerter := monitoring.NewAlerter(cfg.Monitoring)
		alerts := alerter.Evaluate(snap)
		if len(alerts) == 0 {
			fmt.Println("\nNo thresholds breached.")
			return nil
		}
		fmt.Printf("\nAlerts (%d):\n", len(alerts))
		for _, alert := range alerts {
			fmt.Printf("  [%s] %s: %s\n", alert.Severity, alert.Type, alert.Message)
			if err := alerter.Send(cmd.Context(), alert); err != nil {
				return err
			}
		}
		return nil
	},
}

func printSnapshot(snap *monitoring.MetricsSnapshot) {
	fmt.Printf("Metrics for the last %dh (collected %s)\n\n",
		snap.LookbackHours, snap.CollectedAt.Format("2006-01-02 15:04:05"))

	fmt.Printf("Analyses: %d total (%d complete, %d rejected, %d failed)\n",
		snap.AnalysesTotal, snap.AnalysesComplete, snap.AnalysesRejected, snap.AnalysesFailed)
	fmt.Printf("  Fail rate:       %.1f%%\n", snap.FailRate*100)
	fmt.Printf("  Avg confidence:  %.2f\n", snap.AvgConfidence)
	fmt.Printf("  Avg quality:     %.2f\n", snap.AvgQualityScore)
	fmt.Printf("  Tokens:          %d spent, %d saved\n", snap.TokensSpent, snap.TokensSaved)
	fmt.Printf("  Cost:            $%.4f\n", snap.TotalCostUSD)

	fmt.Printf("\nJobs: %d total (%d completed, %d failed)\n",
		snap.JobsTotal, snap.JobsCompleted, snap.JobsFailed)

	fmt.Printf("\nCalibration drift: %.3f over %d feedback events\n",
		snap.CalibrationDrift, snap.FeedbackCount)
	fmt.Printf("Dead letter queue: %d entries\n", snap.DLQDepth)
}

func init() {
	metricsCmd.Flags().IntVar(&metricsLookback, "lookback", 24, "lookback window in hours")
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "print the snapshot as JSON")
	metricsCmd.Flags().BoolVar(&metricsAlert, "alerts", false, "evaluate alert thresholds and send breaches")
	rootCmd.AddCommand(metricsCmd)
}
