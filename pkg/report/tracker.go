package report

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"site-freezer/pkg/models"
	"site-freezer/pkg/utils"
)

// Failure is one per-page error retained for the final summary.
type Failure struct {
	URL      string `json:"url" csv:"URL"`
	Category string `json:"category" csv:"Category"`
	Cause    string `json:"cause" csv:"Cause"`
}

// Tracker aggregates per-URL outcomes during a crawl. It is one of the two
// pieces of shared mutable state (the Frontier is the other); every method
// is a single mutex-guarded critical section.
type Tracker struct {
	mu           sync.Mutex
	counts       map[models.PageStatus]int
	failures     []Failure
	pagesWritten int
	bytesWritten int64
	partial      bool
	fatalErr     error

	runID     string
	startedAt time.Time
}

// NewTracker starts tracking a fresh run, stamping it with a unique ID.
func NewTracker() *Tracker {
	return &Tracker{
		counts:    make(map[models.PageStatus]int),
		runID:     uuid.NewString(),
		startedAt: time.Now(),
	}
}

// RunID returns the run's unique identifier, for log correlation.
func (t *Tracker) RunID() string {
	return t.runID
}

// Record counts one outcome.
func (t *Tracker) Record(status models.PageStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[status]++
}

// RecordFailure counts a failed page and retains its cause.
func (t *Tracker) RecordFailure(url string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[models.PageStatusFailed]++
	t.failures = append(t.failures, Failure{
		URL:      url,
		Category: utils.CategorizeError(err),
		Cause:    err.Error(),
	})
}

// RecordWritten counts one file persisted to disk.
func (t *Tracker) RecordWritten(bytes int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pagesWritten++
	t.bytesWritten += int64(bytes)
}

// MarkPartial flags the run as cut short by the crawl deadline or a cancel
// signal: remaining frontier items were discarded.
func (t *Tracker) MarkPartial() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.partial = true
}

// SetFatal records the systemic error that aborted the run. Only the first
// fatal error is kept.
func (t *Tracker) SetFatal(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fatalErr == nil {
		t.fatalErr = err
	}
}

// FatalErr returns the recorded systemic error, if any.
func (t *Tracker) FatalErr() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fatalErr
}

// Finalize produces the immutable Report. Call after the scheduler has
// signalled completion; the page records snapshot comes from the frontier.
func (t *Tracker) Finalize(pages []models.PageRecord) *Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	finishedAt := time.Now()
	counts := make(map[string]int, len(t.counts))
	for status, n := range t.counts {
		counts[string(status)] = n
	}
	failures := make([]Failure, len(t.failures))
	copy(failures, t.failures)

	report := &Report{
		RunID:        t.runID,
		StartedAt:    t.startedAt,
		FinishedAt:   finishedAt,
		Duration:     finishedAt.Sub(t.startedAt),
		Counts:       counts,
		PagesWritten: t.pagesWritten,
		BytesWritten: t.bytesWritten,
		Failures:     failures,
		Partial:      t.partial,
		Pages:        pages,
	}
	if t.fatalErr != nil {
		report.FatalError = t.fatalErr.Error()
	}
	return report
}
