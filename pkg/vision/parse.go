package vision

import (
	"encoding/json"
	"strings"

	"github.com/partsight/inspect-cli/internal/model"
)

// parseReport extracts a DefectReport from raw model output. The model is
// instructed to return strict JSON but occasionally wraps it in code fences or
// leading prose, so we locate the outermost object before unmarshaling.
func parseReport(raw string) (*model.DefectReport, error) {
	body := extractJSON(raw)
	if body == "" {
		return nil, &model.RemoteAnalysisError{Reason: "no JSON object in model response"}
	}

	var report model.DefectReport
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return nil, &model.RemoteAnalysisError{Reason: "malformed JSON in model response", Err: err}
	}

	switch report.OverallQuality {
	case model.QualityPass, model.QualityWarning, model.QualityFail:
	default:
		return nil, &model.RemoteAnalysisError{Reason: "unknown overall_quality " + string(report.OverallQuality)}
	}

	// Scores from the model are clamped rather than rejected; only
	// user-supplied inputs get strict validation.
	report.ConfidenceScore = model.Clamp01(report.ConfidenceScore)
	for i := range report.Defects {
		report.Defects[i].Confidence = model.Clamp01(report.Defects[i].Confidence)
		if report.Defects[i].Severity == "" {
			report.Defects[i].Severity = model.SeverityMinor
		}
	}

	return &report, nil
}

// extractJSON returns the first balanced top-level JSON object in s, tolerating
// markdown fences and surrounding text.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if fenced, ok := stripFence(s); ok {
		s = fenced
	}

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func stripFence(s string) (string, bool) {
	if !strings.HasPrefix(s, "```") {
		return s, false
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s), true
}
