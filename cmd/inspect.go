package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/partsight/inspect-cli/internal/model"
	"github.com/partsight/inspect-cli/internal/pipeline"
	"github.com/partsight/inspect-cli/internal/resilience"
)

var (
	inspectPartType   string
	inspectComplexity string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <reference> <part>",
	Short: "Inspect one part photo against its reference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx, nil)
		if err != nil {
			return err
		}
		defer e.Close()

		req := pipeline.Request{
			ReferencePath: args[0],
			PartPath:      args[1],
			PartType:      inspectPartType,
			Complexity:    model.Complexity(inspectComplexity),
		}

		retryCfg := resilience.DefaultRetryConfig()
		retryCfg.OnRetry = resilience.RetryLogger("cli", "inspect")

		analysis, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*model.Analysis, error) {
			return e.Pipeline.AnalyzePair(ctx, req)
		})
		if err != nil {
			return err
		}

		printAnalysis(analysis)
		return nil
	},
}

func printAnalysis(a *model.Analysis) {
	fmt.Printf("Analysis %s — %s\n", a.ID, a.Status)

	if pre := a.PreAnalysis; pre != nil {
		fmt.Printf("\nPre-analysis gate: %s\n", pre.Decision)
		fmt.Printf("  %s\n", pre.Reason)
		if pre.TokensSaved > 0 {
			fmt.Printf("  Tokens saved: %d ($%.4f)\n", pre.TokensSaved, pre.SavingsUSD)
		}
	}

	if r := a.Report; r != nil {
		fmt.Printf("\nVision verdict: %s (model confidence %.2f)\n", r.OverallQuality, r.ConfidenceScore)
		if r.Summary != "" {
			fmt.Printf("  %s\n", r.Summary)
		}
		for _, d := range r.Defects {
			fmt.Printf("  [%s] %s: %s", d.Severity, d.Type, d.Description)
			if d.Location != "" {
				fmt.Printf(" (%s)", d.Location)
			}
			fmt.Println()
		}
	}

	if c := a.Confidence; c != nil {
		fmt.Printf("\nCalibrated confidence: %.2f (%s)\n", c.OverallConfidence, c.Level)
		for _, f := range c.Factors {
			fmt.Printf("  %-18s %.2f  %s\n", f.Type, f.Score, f.Rationale)
		}
		if c.RequiresHumanReview() {
			fmt.Println("  NOTE: confidence is low enough to require human review")
		}
	}

	if len(a.Recommendations) > 0 {
		fmt.Printf("\nRecommendations (%d):\n", len(a.Recommendations))
		for _, rec := range a.Recommendations {
			fmt.Printf("  [%s] %s (~%d min)\n", rec.Priority, rec.Title, rec.EstimatedMins)
			for _, step := range rec.Steps {
				fmt.Printf("      %d. %s\n", step.Order, step.Instruction)
			}
		}
	}

	if a.TokenUsage.Total() > 0 {
		fmt.Printf("\nTokens: %d in / %d out — cost $%.4f\n",
			a.TokenUsage.InputTokens, a.TokenUsage.OutputTokens, a.CostUSD)
	}
}

func init() {
	inspectCmd.Flags().StringVar(&inspectPartType, "part-type", "", "part type label for pattern tracking")
	inspectCmd.Flags().StringVar(&inspectComplexity, "complexity", "moderate", "inspection complexity (simple|moderate|complex|extreme)")
	rootCmd.AddCommand(inspectCmd)
}
