package export

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/partsight/inspect-cli/internal/model"
)

func TestXLSXSink_WritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	sink := NewXLSXSink(dir)

	job := completedJob()
	job.Items = []model.PairItem{{ID: "i-1"}, {ID: "i-2"}}
	job.CompletedPairs = 1
	job.FailedPairs = 1
	job.Results = []model.PairResult{
		{
			ItemID:   "i-1",
			PartType: "bracket",
			Analysis: &model.Analysis{
				Status: model.AnalysisStatusComplete,
				Report: &model.DefectReport{
					OverallQuality: model.QualityWarning,
					Defects:        []model.Defect{{Type: "scratch", Severity: model.SeverityMinor}},
				},
				Confidence: &model.EnhancedConfidenceScore{OverallConfidence: 0.82},
			},
			Attempts: 1,
		},
		{
			ItemID:   "i-2",
			PartType: "bracket",
			Error:    "image decode failed: truncated file",
			Attempts: 1,
		},
	}
	job.Overall = &model.BatchOverallAnalysis{
		Status: model.BatchWarning,
		Trend:  model.TrendStable,
		Statistics: model.BatchStatistics{
			TotalPairs:     2,
			CompletedPairs: 1,
			FailedPairs:    1,
			AvgConfidence:  0.82,
		},
		CriticalIssues: []string{"failure rate 50% exceeds 30% threshold"},
	}

	require.NoError(t, sink.Export(context.Background(), job))

	f, err := xlsx.OpenFile(dir + "/batch_job-1.xlsx")
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)
	assert.Equal(t, "Summary", f.Sheets[0].Name)
	assert.Equal(t, "Items", f.Sheets[1].Name)

	// Header plus one row per result.
	items := f.Sheets[1]
	require.Len(t, items.Rows, 3)
	assert.Equal(t, "i-1", items.Rows[1].Cells[0].String())
	assert.Equal(t, "warning", items.Rows[1].Cells[3].String())
	assert.Equal(t, string(model.AnalysisStatusFailed), items.Rows[2].Cells[2].String())
}

func TestXLSXSink_CreatesOutputDir(t *testing.T) {
	dir := t.TempDir() + "/nested/reports"
	sink := NewXLSXSink(dir)

	require.NoError(t, sink.Export(context.Background(), completedJob()))

	_, err := xlsx.OpenFile(dir + "/batch_job-1.xlsx")
	assert.NoError(t, err)
}
