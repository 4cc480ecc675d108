package model

import "time"

// FeedbackType classifies user feedback on a completed analysis.
type FeedbackType string

const (
	FeedbackPositive FeedbackType = "positive"
	FeedbackNegative FeedbackType = "negative"
	FeedbackMixed    FeedbackType = "mixed"
)

// CalibrationCategory describes how well the reported confidence matched the
// observed outcome.
type CalibrationCategory string

const (
	CalibrationWell           CalibrationCategory = "well_calibrated"
	CalibrationModerate       CalibrationCategory = "moderately_calibrated"
	CalibrationOverConfident  CalibrationCategory = "overconfident"
	CalibrationUnderConfident CalibrationCategory = "underconfident"
)

// ConfidenceValidation compares reported confidence against the actual
// outcome-derived estimate.
type ConfidenceValidation struct {
	ReportedConfidence float64             `json:"reported_confidence"`
	ActualConfidence   float64             `json:"actual_confidence"`
	Deviation          float64             `json:"deviation"`
	IsAccurate         bool                `json:"is_accurate"`
	Calibration        CalibrationCategory `json:"calibration"`
}

// AnalysisFeedback is a user-supplied accuracy report for one analysis.
type AnalysisFeedback struct {
	ID             string               `json:"id"`
	AnalysisID     string               `json:"analysis_id"`
	Type           FeedbackType         `json:"type"`
	Satisfaction   int                  `json:"satisfaction"`    // 1-5
	AccuracyRating int                  `json:"accuracy_rating"` // 1-6, 6 = completely accurate
	Validation     ConfidenceValidation `json:"validation"`
	LearningWeight float64              `json:"learning_weight"`
	Comments       string               `json:"comments,omitempty"`
	ReportedIssues []string             `json:"reported_issues,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// ModelPerformanceHistory is the rolling aggregate of observed model accuracy.
// It is the one piece of long-lived shared state: mutated only by the feedback
// loop under a single-writer discipline, read by the confidence scorer.
type ModelPerformanceHistory struct {
	TotalAnalyses      int       `json:"total_analyses"`
	SuccessfulAnalyses int       `json:"successful_analyses"`
	RecentAccuracy     float64   `json:"recent_accuracy"`
	LastUpdated        time.Time `json:"last_updated"`
}

// SuccessRate returns the lifetime success fraction, or 0 with no data.
func (h ModelPerformanceHistory) SuccessRate() float64 {
	if h.TotalAnalyses == 0 {
		return 0
	}
	return float64(h.SuccessfulAnalyses) / float64(h.TotalAnalyses)
}

// HasData reports whether any feedback has ever been recorded.
func (h ModelPerformanceHistory) HasData() bool {
	return h.TotalAnalyses > 0
}

// Record returns a new history snapshot with one feedback event applied.
// recentAccuracy is an unbounded-horizon EMA (0.8 old / 0.2 new at weight
// 1.0): old feedback decays geometrically rather than being discarded. The
// learning weight scales the new-sample fraction, never the decay model.
func (h ModelPerformanceHistory) Record(success bool, accuracyScore, learningWeight float64, now time.Time) ModelPerformanceHistory {
	next := h
	next.TotalAnalyses++
	if success {
		next.SuccessfulAnalyses++
	}
	if h.TotalAnalyses == 0 {
		next.RecentAccuracy = accuracyScore
	} else {
		alpha := 0.2 * learningWeight
		next.RecentAccuracy = (1-alpha)*h.RecentAccuracy + alpha*accuracyScore
	}
	next.LastUpdated = now
	return next
}
