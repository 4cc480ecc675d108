package resilience

import (
	"time"

	"github.com/partsight/inspect-cli/internal/model"
)

// DLQEntry is a pair item whose retries were exhausted. Entries can be
// re-queued later with `batch --retry-failed`.
type DLQEntry struct {
	ID           string         `json:"id"`
	JobID        string         `json:"job_id"`
	Item         model.PairItem `json:"item"`
	Error        string         `json:"error"`
	ErrorType    string         `json:"error_type"` // "transient" or "permanent"
	Attempts     int            `json:"attempts"`
	CreatedAt    time.Time      `json:"created_at"`
	LastFailedAt time.Time      `json:"last_failed_at"`
}

// ClassifyError categorizes an error as "transient" or "permanent".
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
