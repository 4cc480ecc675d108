package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/partsight/inspect-cli/internal/model"
	"github.com/partsight/inspect-cli/internal/quality"
)

var qualityCmd = &cobra.Command{
	Use:   "quality <image>",
	Short: "Score a single image's capture quality locally (no API calls)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read image %s", args[0])
		}

		analyzer := quality.NewAnalyzer(cfg.Quality)
		metrics, err := analyzer.Analyze(data)
		if err != nil {
			return err
		}

		fmt.Printf("Image: %s (%dx%d)\n\n", args[0], metrics.Width, metrics.Height)
		fmt.Printf("  Sharpness:       %.3f\n", metrics.Sharpness)
		fmt.Printf("  Brightness:      %.3f\n", metrics.Brightness)
		fmt.Printf("  Contrast:        %.3f\n", metrics.Contrast)
		fmt.Printf("  Noise level:     %.3f\n", metrics.NoiseLevel)
		fmt.Printf("  Resolution:      %.3f\n", metrics.Resolution)
		fmt.Printf("  Compression:     %.3f\n", metrics.Compression)
		fmt.Printf("  Object coverage: %.3f\n", metrics.ObjectCoverage)
		fmt.Printf("  Edge clarity:    %.3f\n", metrics.EdgeClarity)
		fmt.Printf("\n  Overall score:   %.3f\n", metrics.OverallScore)

		issues := quality.Issues(metrics)
		if len(issues) == 0 {
			fmt.Println("\nNo quality issues detected.")
			return nil
		}

		fmt.Printf("\nIssues (%d):\n", len(issues))
		for _, issue := range issues {
			marker := "-"
			if issue.Severity == model.SeverityCritical {
				marker = "!"
			}
			fmt.Printf("  %s [%s] %s: %s\n", marker, issue.Severity, issue.Type, issue.Description)
			for _, step := range issue.Remediation {
				fmt.Printf("      * %s\n", step)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(qualityCmd)
}
