package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/partsight/inspect-cli/internal/model"
)

// XLSXSink writes a two-sheet workbook per batch: a summary sheet and a
// per-item detail sheet.
type XLSXSink struct {
	dir string
}

// NewXLSXSink creates an XLSX sink writing into dir.
func NewXLSXSink(dir string) *XLSXSink {
	return &XLSXSink{dir: dir}
}

func (s *XLSXSink) Name() string { return "xlsx" }

func (s *XLSXSink) Export(_ context.Context, job *model.BatchJob) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return eris.Wrap(err, "xlsx: create output dir")
	}

	f := xlsx.NewFile()
	if err := s.writeSummary(f, job); err != nil {
		return err
	}
	if err := s.writeItems(f, job); err != nil {
		return err
	}

	path := filepath.Join(s.dir, fmt.Sprintf("batch_%s.xlsx", job.ID))
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

func (s *XLSXSink) writeSummary(f *xlsx.File, job *model.BatchJob) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "xlsx: add summary sheet")
	}

	addKV := func(key string, value any) {
		row := sheet.AddRow()
		row.AddCell().SetString(key)
		switch v := value.(type) {
		case string:
			row.AddCell().SetString(v)
		case int:
			row.AddCell().SetInt(v)
		case int64:
			row.AddCell().SetInt64(v)
		case float64:
			row.AddCell().SetFloat(v)
		default:
			row.AddCell().SetString(fmt.Sprint(v))
		}
	}

	addKV("Job ID", job.ID)
	addKV("Status", string(job.Status))
	addKV("Total pairs", job.TotalPairs())
	addKV("Completed", job.CompletedPairs)
	addKV("Failed", job.FailedPairs)

	if o := job.Overall; o != nil {
		addKV("Batch verdict", string(o.Status))
		addKV("Quality trend", string(o.Trend))
		addKV("Avg confidence", o.Statistics.AvgConfidence)
		addKV("Weighted confidence", o.Statistics.WeightedConfidence)
		addKV("Avg quality score", o.Statistics.AvgQualityScore)
		addKV("Tokens spent", o.Statistics.TokensSpent)
		addKV("Tokens saved", o.Statistics.TokensSaved)
		addKV("Total cost USD", o.Statistics.TotalCostUSD)
		for _, issue := range o.CriticalIssues {
			addKV("Critical issue", issue)
		}
		for _, p := range o.Patterns {
			addKV("Pattern", p.Description)
		}
	}
	return nil
}

func (s *XLSXSink) writeItems(f *xlsx.File, job *model.BatchJob) error {
	sheet, err := f.AddSheet("Items")
	if err != nil {
		return eris.Wrap(err, "xlsx: add items sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Item ID", "Part type", "Status", "Verdict", "Confidence", "Defects", "Attempts", "Error"} {
		header.AddCell().SetString(h)
	}

	for _, res := range job.Results {
		row := sheet.AddRow()
		row.AddCell().SetString(res.ItemID)
		row.AddCell().SetString(res.PartType)

		if a := res.Analysis; a != nil {
			row.AddCell().SetString(string(a.Status))
			if a.Report != nil {
				row.AddCell().SetString(string(a.Report.OverallQuality))
			} else {
				row.AddCell().SetString("")
			}
			if a.Confidence != nil {
				row.AddCell().SetFloat(a.Confidence.OverallConfidence)
			} else {
				row.AddCell().SetFloat(0)
			}
			defects := 0
			if a.Report != nil {
				defects = len(a.Report.Defects)
			}
			row.AddCell().SetInt(defects)
		} else {
			row.AddCell().SetString(string(model.AnalysisStatusFailed))
			row.AddCell().SetString("")
			row.AddCell().SetFloat(0)
			row.AddCell().SetInt(0)
		}

		row.AddCell().SetInt(res.Attempts)
		row.AddCell().SetString(res.Error)
	}
	return nil
}
