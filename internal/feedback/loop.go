// Package feedback ingests user accuracy reports, validates confidence
// calibration, and maintains the rolling model performance history read by
// the confidence scorer.
package feedback

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/partsight/inspect-cli/internal/model"
)

// accuracyScores maps the 6-point accuracy rating (6 = completely accurate)
// to a [0,1] accuracy contribution.
var accuracyScores = map[int]float64{
	6: 1.0, 5: 0.9, 4: 0.75, 3: 0.6, 2: 0.3, 1: 0.1,
}

// Store is the persistence surface the loop needs.
type Store interface {
	SaveFeedback(ctx context.Context, fb model.AnalysisFeedback) error
	GetHistory(ctx context.Context) (model.ModelPerformanceHistory, error)
	SaveHistory(ctx context.Context, h model.ModelPerformanceHistory) error
}

// CollectParams are the boundary inputs for one feedback event. They are
// validated, never silently clamped.
type CollectParams struct {
	AnalysisID         string
	Satisfaction       int     // 1-5
	AccuracyRating     int     // 1-6, 6 = completely accurate
	ReportedConfidence float64 // what the system reported
	ActualConfidence   float64 // outcome-derived estimate
	Comments           string
	ReportedIssues     []string
}

// Loop is the feedback calibration loop. History updates run under a single
// writer: feedback may arrive concurrently with scorer reads from an
// in-flight batch.
type Loop struct {
	store Store

	mu      sync.Mutex
	history model.ModelPerformanceHistory
	loaded  bool
}

// NewLoop creates a Loop backed by the given store.
func NewLoop(store Store) *Loop {
	return &Loop{store: store}
}

// History returns the current performance history snapshot, loading it from
// the store on first use.
func (l *Loop) History(ctx context.Context) (model.ModelPerformanceHistory, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ensureLoaded(ctx); err != nil {
		return model.ModelPerformanceHistory{}, err
	}
	return l.history, nil
}

// Collect validates and records one feedback event, then applies the history
// update. Returns the stored feedback.
func (l *Loop) Collect(ctx context.Context, p CollectParams) (*model.AnalysisFeedback, error) {
	if p.AnalysisID == "" {
		return nil, &model.ValidationError{Field: "analysis_id", Reason: "required"}
	}
	if err := model.ValidateRange("satisfaction", p.Satisfaction, 1, 5); err != nil {
		return nil, err
	}
	if err := model.ValidateRange("accuracy_rating", p.AccuracyRating, 1, 6); err != nil {
		return nil, err
	}
	if err := model.ValidateScore("reported_confidence", p.ReportedConfidence); err != nil {
		return nil, err
	}
	if err := model.ValidateScore("actual_confidence", p.ActualConfidence); err != nil {
		return nil, err
	}

	fbType := classify(p.Satisfaction, p.AccuracyRating)
	validation := validate(fbType, p.ReportedConfidence, p.ActualConfidence)

	fb := model.AnalysisFeedback{
		ID:             uuid.New().String(),
		AnalysisID:     p.AnalysisID,
		Type:           fbType,
		Satisfaction:   p.Satisfaction,
		AccuracyRating: p.AccuracyRating,
		Validation:     validation,
		LearningWeight: learningWeight(fbType),
		Comments:       p.Comments,
		ReportedIssues: p.ReportedIssues,
		CreatedAt:      time.Now().UTC(),
	}

	if err := l.store.SaveFeedback(ctx, fb); err != nil {
		return nil, eris.Wrap(err, "feedback: save")
	}

	if err := l.applyToHistory(ctx, fb); err != nil {
		return nil, err
	}

	zap.L().Info("feedback: collected",
		zap.String("analysis_id", fb.AnalysisID),
		zap.String("type", string(fb.Type)),
		zap.Float64("deviation", validation.Deviation),
		zap.String("calibration", string(validation.Calibration)),
	)

	return &fb, nil
}

// applyToHistory performs the read-modify-write under the loop's mutex and
// persists the new snapshot.
func (l *Loop) applyToHistory(ctx context.Context, fb model.AnalysisFeedback) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureLoaded(ctx); err != nil {
		return err
	}

	l.history = l.history.Record(
		fb.Type == model.FeedbackPositive,
		accuracyScores[fb.AccuracyRating],
		fb.LearningWeight,
		time.Now().UTC(),
	)

	if err := l.store.SaveHistory(ctx, l.history); err != nil {
		return eris.Wrap(err, "feedback: save history")
	}
	return nil
}

func (l *Loop) ensureLoaded(ctx context.Context) error {
	if l.loaded {
		return nil
	}
	h, err := l.store.GetHistory(ctx)
	if err != nil {
		return eris.Wrap(err, "feedback: load history")
	}
	l.history = h
	l.loaded = true
	return nil
}

// classify averages satisfaction (1-5) and accuracy (1-6): at or above 4.0
// is positive, at or below 2.5 negative, anything between mixed.
func classify(satisfaction, accuracy int) model.FeedbackType {
	avg := (float64(satisfaction) + float64(accuracy)) / 2
	switch {
	case avg >= 4.0:
		return model.FeedbackPositive
	case avg <= 2.5:
		return model.FeedbackNegative
	default:
		return model.FeedbackMixed
	}
}

// validate builds the calibration verdict for one feedback event. Negative
// feedback never counts as accurate regardless of deviation.
func validate(fbType model.FeedbackType, reported, actual float64) model.ConfidenceValidation {
	deviation := math.Abs(reported - actual)

	accurate := false
	switch fbType {
	case model.FeedbackPositive:
		accurate = deviation <= 0.15
	case model.FeedbackMixed:
		accurate = deviation <= 0.2
	}

	var calibration model.CalibrationCategory
	switch {
	case deviation <= 0.1:
		calibration = model.CalibrationWell
	case deviation <= 0.2:
		calibration = model.CalibrationModerate
	case reported > actual:
		calibration = model.CalibrationOverConfident
	default:
		calibration = model.CalibrationUnderConfident
	}

	return model.ConfidenceValidation{
		ReportedConfidence: reported,
		ActualConfidence:   actual,
		Deviation:          deviation,
		IsAccurate:         accurate,
		Calibration:        calibration,
	}
}

// learningWeight scales how strongly one event moves the accuracy EMA.
// Mixed feedback is a weaker signal than a clear positive or negative.
func learningWeight(t model.FeedbackType) float64 {
	if t == model.FeedbackMixed {
		return 0.75
	}
	return 1.0
}
