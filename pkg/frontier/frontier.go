package frontier

import (
	"container/heap"
	"slices"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"site-freezer/pkg/models"
)

// Frontier is the set of discovered URLs: a blocking queue of
// not-yet-fetched work plus the full known set with per-URL records.
// Admission is checked against the known set, not the queue, so a URL
// transitions into in-flight at most once no matter how many pages link to
// it. Every method takes the single mutex once; callers never hold it across
// blocking I/O.
type Frontier struct {
	mu     sync.Mutex
	cond   *sync.Cond // Wakes workers waiting in Take
	queue  itemHeap
	known  map[string]*models.PageRecord // Identity key -> retained record; only grows
	closed bool
	log    *logrus.Entry
}

// New creates an empty Frontier.
func New(log *logrus.Entry) *Frontier {
	f := &Frontier{
		known: make(map[string]*models.PageRecord),
		log:   log,
	}
	f.cond = sync.NewCond(&f.mu)
	heap.Init(&f.queue)
	return f
}

// Offer adds a URL to the frontier if it is not already known.
// via names the page that discovered it and is recorded for diagnostics.
// Idempotent: re-offering a known URL only appends the back-reference.
// Returns true if the URL was newly admitted.
func (f *Frontier) Offer(item *models.WorkItem, via string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if record, exists := f.known[item.URL]; exists {
		if via != "" && !slices.Contains(record.DiscoveredFrom, via) {
			record.DiscoveredFrom = append(record.DiscoveredFrom, via)
		}
		return false
	}
	if f.closed {
		f.log.Warnf("Offer of %s after frontier close, dropping", item.URL)
		return false
	}

	record := &models.PageRecord{
		URL:    item.URL,
		Status: models.PageStatusPending,
		Depth:  item.Depth,
	}
	if via != "" {
		record.DiscoveredFrom = []string{via}
	}
	f.known[item.URL] = record

	heap.Push(&f.queue, &queueItem{workItem: item, priority: item.Depth})
	f.cond.Signal()
	return true
}

// NoteExternal records a URL as external without queueing it. Like Offer it
// is idempotent against the known set.
// Returns true if the URL was newly recorded.
func (f *Frontier) NoteExternal(url, via string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if record, exists := f.known[url]; exists {
		if via != "" && !slices.Contains(record.DiscoveredFrom, via) {
			record.DiscoveredFrom = append(record.DiscoveredFrom, via)
		}
		return false
	}

	record := &models.PageRecord{
		URL:    url,
		Status: models.PageStatusExternal,
	}
	if via != "" {
		record.DiscoveredFrom = []string{via}
	}
	f.known[url] = record
	return true
}

// Take retrieves one unvisited URL, marking its record in-flight. It blocks
// while the queue is empty until an item arrives or the frontier is closed.
// Returns nil and false once the frontier is closed and drained.
func (f *Frontier) Take() (*models.WorkItem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.queue) == 0 {
		if f.closed {
			return nil, false
		}
		f.cond.Wait()
	}

	item := heap.Pop(&f.queue).(*queueItem)
	if record, exists := f.known[item.workItem.URL]; exists {
		record.Status = models.PageStatusInFlight
	}
	return item.workItem, true
}

// MarkDone transitions a URL's record to its final status and applies any
// extra mutation (file path, status code, cause) inside the critical section.
func (f *Frontier) MarkDone(url string, status models.PageStatus, mutate func(*models.PageRecord)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, exists := f.known[url]
	if !exists {
		f.log.Warnf("MarkDone for unknown URL %s", url)
		return
	}
	record.Status = status
	if mutate != nil {
		mutate(record)
	}
}

// Close signals that no more items will be added; blocked Take calls return.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		f.cond.Broadcast()
	}
}

// DiscardQueued drops every queued, not-yet-taken item and returns the number
// discarded. Records stay as they were, so a cancelled run reports them as
// pending. The caller owns releasing any per-item accounting.
func (f *Frontier) DiscardQueued() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.queue)
	f.queue = f.queue[:0]
	return n
}

// Len returns the number of queued, not-yet-taken items.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// KnownCount returns the size of the known set.
func (f *Frontier) KnownCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.known)
}

// Records returns a snapshot of all page records, sorted by URL for
// reproducible reporting. The returned copies are safe to read concurrently
// with an ongoing crawl.
func (f *Frontier) Records() []models.PageRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	records := make([]models.PageRecord, 0, len(f.known))
	for _, record := range f.known {
		records = append(records, *record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].URL < records[j].URL })
	return records
}
