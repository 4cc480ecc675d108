package quality

import (
	"fmt"
	"math"

	"github.com/partsight/inspect-cli/internal/model"
)

// Issues derives quality issues from metrics using fixed thresholds. The
// thresholds match the scales produced by Analyze.
func Issues(m model.ImageQualityMetrics) []model.QualityIssue {
	var issues []model.QualityIssue

	if m.Sharpness < 0.5 {
		issues = append(issues, model.QualityIssue{
			Type:        model.IssueBlur,
			Severity:    model.SeverityForScore(m.Sharpness),
			Score:       m.Sharpness,
			Description: fmt.Sprintf("image is blurry (sharpness %.2f)", m.Sharpness),
			Remediation: []string{
				"hold the camera steady or use a tripod",
				"tap to focus on the part before capturing",
				"clean the camera lens",
			},
		})
	}

	if m.Brightness < 0.3 || m.Brightness > 0.8 {
		// Severity scales with distance from the 0.55 midpoint of the
		// acceptable band.
		dist := math.Abs(m.Brightness - 0.55)
		issues = append(issues, model.QualityIssue{
			Type:        model.IssueLighting,
			Severity:    model.SeverityForScore(1 - dist*2),
			Score:       m.Brightness,
			Description: fmt.Sprintf("lighting is outside the usable range (brightness %.2f)", m.Brightness),
			Remediation: []string{
				"move to even, diffuse lighting",
				"avoid direct glare and hard shadows on the part",
			},
		})
	}

	if m.Contrast < 0.3 {
		issues = append(issues, model.QualityIssue{
			Type:        model.IssueContrast,
			Severity:    model.SeverityForScore(m.Contrast + 0.3),
			Score:       m.Contrast,
			Description: fmt.Sprintf("low contrast (%.2f) makes defects hard to distinguish", m.Contrast),
			Remediation: []string{
				"photograph the part against a contrasting background",
				"increase side lighting to bring out surface texture",
			},
		})
	}

	if m.NoiseLevel > 0.6 {
		issues = append(issues, model.QualityIssue{
			Type:        model.IssueNoise,
			Severity:    model.SeverityForScore(1 - m.NoiseLevel),
			Score:       1 - m.NoiseLevel,
			Description: fmt.Sprintf("high sensor noise (%.2f)", m.NoiseLevel),
			Remediation: []string{
				"add light so the camera can use a lower ISO",
				"avoid digital zoom",
			},
		})
	}

	if m.Resolution < 0.5 {
		issues = append(issues, model.QualityIssue{
			Type:        model.IssueResolution,
			Severity:    model.SeverityForScore(m.Resolution + 0.2),
			Score:       m.Resolution,
			Description: fmt.Sprintf("resolution too low for reliable analysis (%dx%d)", m.Width, m.Height),
			Remediation: []string{
				"use the camera's full resolution setting",
				"move closer instead of cropping afterwards",
			},
		})
	}

	if m.ObjectCoverage < 0.3 {
		issues = append(issues, model.QualityIssue{
			Type:        model.IssueObjectSize,
			Severity:    model.SeverityForScore(m.ObjectCoverage + 0.3),
			Score:       m.ObjectCoverage,
			Description: "the part appears to fill too little of the frame",
			Remediation: []string{
				"move closer so the part fills most of the frame",
				"center the part in the viewfinder",
			},
		})
	}

	return issues
}
