package export

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/partsight/inspect-cli/internal/model"
	"github.com/partsight/inspect-cli/pkg/salesforce"
)

// SalesforceSink upserts a batch summary record into the QMS org.
type SalesforceSink struct {
	client salesforce.Client
}

// NewSalesforceSink creates a Salesforce sink.
func NewSalesforceSink(client salesforce.Client) *SalesforceSink {
	return &SalesforceSink{client: client}
}

func (s *SalesforceSink) Name() string { return "salesforce" }

func (s *SalesforceSink) Export(ctx context.Context, job *model.BatchJob) error {
	record := map[string]any{
		"Batch_Id__c":        job.ID,
		"Status__c":          string(job.Status),
		"Total_Pairs__c":     job.TotalPairs(),
		"Completed_Pairs__c": job.CompletedPairs,
		"Failed_Pairs__c":    job.FailedPairs,
	}

	if o := job.Overall; o != nil {
		record["Verdict__c"] = string(o.Status)
		record["Trend__c"] = string(o.Trend)
		record["Avg_Confidence__c"] = o.Statistics.AvgConfidence
		record["Tokens_Spent__c"] = o.Statistics.TokensSpent
		record["Tokens_Saved__c"] = o.Statistics.TokensSaved
		record["Total_Cost__c"] = o.Statistics.TotalCostUSD
		if len(o.CriticalIssues) > 0 {
			record["Critical_Issues__c"] = strings.Join(o.CriticalIssues, "; ")
		}
	}

	if _, err := s.client.UpsertInspection(ctx, record); err != nil {
		return eris.Wrap(err, "export: salesforce upsert")
	}
	return nil
}
