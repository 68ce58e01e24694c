package report

import (
	"time"

	"site-freezer/pkg/models"
)

// Report is the final structured summary of a freeze run, consumable by the
// CLI (exit-code decisions) or any caller.
type Report struct {
	RunID        string              `json:"run_id"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   time.Time           `json:"finished_at"`
	Duration     time.Duration       `json:"duration_ns"`
	Counts       map[string]int      `json:"counts"`
	PagesWritten int                 `json:"pages_written"`
	BytesWritten int64               `json:"bytes_written"`
	Failures     []Failure           `json:"failures,omitempty"`
	Partial      bool                `json:"partial,omitempty"`
	FatalError   string              `json:"fatal_error,omitempty"`
	Pages        []models.PageRecord `json:"pages,omitempty"`
}

// Success reports whether the run succeeded: no fatal error and a complete
// crawl. Under strict policy any per-page failure fails the run as well.
func (r *Report) Success(strict bool) bool {
	if r.FatalError != "" || r.Partial {
		return false
	}
	if strict && len(r.Failures) > 0 {
		return false
	}
	return true
}

// Count returns the tally for one outcome kind.
func (r *Report) Count(status models.PageStatus) int {
	return r.Counts[string(status)]
}
