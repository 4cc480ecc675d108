package model

// IssueType identifies a category of image quality problem.
type IssueType string

const (
	IssueBlur       IssueType = "blur"
	IssueLighting   IssueType = "lighting"
	IssueContrast   IssueType = "contrast"
	IssueNoise      IssueType = "noise"
	IssueResolution IssueType = "resolution"
	IssueObjectSize IssueType = "object_size"
)

// Severity ranks how badly an issue degrades analysis quality.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// QualityIssue describes one detected problem with an image, with concrete
// remediation steps the operator can take before retrying.
type QualityIssue struct {
	Type        IssueType `json:"type"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	Remediation []string  `json:"remediation"`
	Score       float64   `json:"score"`
}

// SeverityForScore buckets a metric score into a severity: scores at or above
// 0.7 are minor, at or above 0.4 major, anything lower critical.
func SeverityForScore(score float64) Severity {
	switch {
	case score >= 0.7:
		return SeverityMinor
	case score >= 0.4:
		return SeverityMajor
	default:
		return SeverityCritical
	}
}

// CountCritical returns the number of critical issues in the list.
func CountCritical(issues []QualityIssue) int {
	n := 0
	for _, is := range issues {
		if is.Severity == SeverityCritical {
			n++
		}
	}
	return n
}
