package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/partsight/inspect-cli/internal/feedback"
)

var (
	fbAnalysisID string
	fbSatisfy    int
	fbAccuracy   int
	fbReported   float64
	fbActual     float64
	fbComments   string
	fbIssues     []string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record user feedback on a completed analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx, nil)
		if err != nil {
			return err
		}
		defer e.Close()

		fb, err := e.Feedback.Collect(ctx, feedback.CollectParams{
			AnalysisID:         fbAnalysisID,
			Satisfaction:       fbSatisfy,
			AccuracyRating:     fbAccuracy,
			ReportedConfidence: fbReported,
			ActualConfidence:   fbActual,
			Comments:           fbComments,
			ReportedIssues:     fbIssues,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Feedback %s recorded for analysis %s\n", fb.ID, fb.AnalysisID)
		fmt.Printf("  Type:        %s\n", fb.Type)
		fmt.Printf("  Deviation:   %.3f (%s)\n", fb.Validation.Deviation, fb.Validation.Calibration)
		fmt.Printf("  Accurate:    %t\n", fb.Validation.IsAccurate)

		history, err := e.Feedback.History(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("\nModel history: %d analyses, success rate %.2f, recent accuracy %.2f\n",
			history.TotalAnalyses, history.SuccessRate(), history.RecentAccuracy)
		return nil
	},
}

func init() {
	feedbackCmd.Flags().StringVar(&fbAnalysisID, "analysis-id", "", "analysis to attach feedback to (required)")
	feedbackCmd.Flags().IntVar(&fbSatisfy, "satisfaction", 3, "satisfaction rating 1-5")
	feedbackCmd.Flags().IntVar(&fbAccuracy, "accuracy", 3, "accuracy rating 1-6, 6 = completely accurate")
	feedbackCmd.Flags().Float64Var(&fbReported, "reported-confidence", 0, "confidence the system reported")
	feedbackCmd.Flags().Float64Var(&fbActual, "actual-confidence", 0, "confidence the outcome deserved")
	feedbackCmd.Flags().StringVar(&fbComments, "comments", "", "free-form comments")
	feedbackCmd.Flags().StringSliceVar(&fbIssues, "issue", nil, "reported issue, repeatable")
	_ = feedbackCmd.MarkFlagRequired("analysis-id")
	rootCmd.AddCommand(feedbackCmd)
}
