package freezer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"site-freezer/pkg/config"
	"site-freezer/pkg/fetch"
	"site-freezer/pkg/frontier"
	"site-freezer/pkg/models"
	"site-freezer/pkg/report"
	"site-freezer/pkg/state"
	"site-freezer/pkg/urlmap"
	"site-freezer/pkg/utils"
	"site-freezer/pkg/writer"
)

// Freezer orchestrates one freeze run: it drives a bounded pool of workers
// pulling from the shared frontier, dispatching fetches against the handler
// capability, extracting links from responses, and persisting bodies under
// the output root.
type Freezer struct {
	log *logrus.Entry
	cfg *config.AppConfig

	// Core components
	mapper  *urlmap.Mapper
	fetcher *fetch.Fetcher
	out     *writer.Writer
	front   *frontier.Frontier
	tracker *report.Tracker
	store   *state.Store // nil unless state_dir is configured

	// Concurrency control
	globalSemaphore *semaphore.Weighted

	// Tracking and coordination
	wg          sync.WaitGroup     // One count per admitted frontier task
	crawlCtx    context.Context    // Master context for this run
	cancelCrawl context.CancelFunc // Stops all workers on fatal errors
}

// New creates and initializes a Freezer and its components. The invoker is
// the handler capability being frozen; cfg must already be validated.
func New(cfg *config.AppConfig, invoker fetch.Invoker, baseLogger *logrus.Entry) (*Freezer, error) {
	if invoker == nil {
		return nil, fmt.Errorf("%w: no handler capability provided", utils.ErrFetch)
	}

	logger := baseLogger.WithField("output", cfg.Output)

	mapper, err := urlmap.NewMapper(cfg.Prefix, cfg.IndexFilename,
		urlmap.QueryPolicy(cfg.QueryPolicy), cfg.ExcludePrefixes, logger)
	if err != nil {
		return nil, fmt.Errorf("building path mapper: %w", err)
	}

	out, err := writer.New(cfg.Output, logger)
	if err != nil {
		return nil, fmt.Errorf("preparing output root: %w", err)
	}

	return &Freezer{
		log:             logger,
		cfg:             cfg,
		mapper:          mapper,
		fetcher:         fetch.NewFetcher(invoker, logger),
		out:             out,
		front:           frontier.New(logger),
		tracker:         report.NewTracker(),
		globalSemaphore: semaphore.NewWeighted(int64(cfg.MaxRequests)),
	}, nil
}

// Run performs the freeze and blocks until completion, cancellation, or the
// crawl deadline. The returned report is always non-nil; the error reflects
// fatal (systemic) failures only — per-page failures live in the report.
func (f *Freezer) Run(ctx context.Context) (*report.Report, error) {
	runLog := f.log.WithField("run_id", f.tracker.RunID())
	runLog.Infof("Freeze starting with %d worker(s)...", f.cfg.NumWorkers)
	startTime := time.Now()

	if f.cfg.CrawlTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.CrawlTimeout)
		defer cancel()
	}
	f.crawlCtx, f.cancelCrawl = context.WithCancel(ctx)
	defer f.cancelCrawl()

	if f.cfg.CleanOutput {
		if err := f.out.CleanRoot(); err != nil {
			f.tracker.SetFatal(err)
			return f.tracker.Finalize(f.front.Records()), err
		}
	}

	if f.cfg.StateDir != "" {
		store, err := state.Open(f.cfg.StateDir, runLog)
		if err != nil {
			f.tracker.SetFatal(err)
			return f.tracker.Finalize(f.front.Records()), err
		}
		f.store = store
		defer func() {
			if closeErr := f.store.Close(); closeErr != nil {
				runLog.Errorf("Failed to close state store: %v", closeErr)
			}
		}()
	}

	// --- Seed the frontier: site root plus configured extra pages ---
	if err := f.seed(runLog); err != nil {
		f.tracker.SetFatal(err)
		return f.tracker.Finalize(f.front.Records()), err
	}

	// --- Start workers ---
	for i := 1; i <= f.cfg.NumWorkers; i++ {
		workerLog := runLog.WithField("worker_id", i)
		go f.worker(workerLog)
	}

	// --- Waiter: detects completion (all tasks done) or cancellation ---
	waiterDone := make(chan struct{})
	go func() {
		defer close(waiterDone)

		tasksDone := make(chan struct{})
		go func() { f.wg.Wait(); close(tasksDone) }()

		select {
		case <-tasksDone:
			runLog.Debug("Waiter: all frontier tasks accounted for.")
			f.front.Close()
		case <-f.crawlCtx.Done():
			runLog.Warnf("Waiter: crawl context cancelled (%v), draining workers.", f.crawlCtx.Err())
			f.tracker.MarkPartial()
			f.front.Close()
			// Workers exit without taking queued items once the context is
			// cancelled; release their accounting so wg.Wait can finish.
			for i := f.front.DiscardQueued(); i > 0; i-- {
				f.wg.Done()
			}
			<-tasksDone
		}
	}()

	<-waiterDone

	rep := f.tracker.Finalize(f.front.Records())
	runLog.WithFields(logrus.Fields{
		"duration":      time.Since(startTime).Round(time.Millisecond).String(),
		"known_urls":    f.front.KnownCount(),
		"pages_written": rep.PagesWritten,
		"failed":        rep.Count(models.PageStatusFailed),
	}).Info("Freeze finished")

	return rep, f.tracker.FatalErr()
}

// seed validates and admits the start URLs. An unusable seed is a
// configuration-level failure, not a per-page one.
func (f *Freezer) seed(runLog *logrus.Entry) error {
	seeds := append([]string{f.mapper.Prefix().String()}, f.cfg.ExtraPages...)
	admitted := 0
	for _, raw := range seeds {
		seedURL, err := f.mapper.Prefix().Parse(raw)
		if err != nil {
			return fmt.Errorf("%w: seed '%s': %w", utils.ErrInvalidURL, raw, err)
		}
		if _, err := f.mapper.Map(seedURL); err != nil {
			return fmt.Errorf("seed '%s' not freezable: %w", raw, err)
		}
		identity := f.mapper.Identity(seedURL)
		f.wg.Add(1)
		if f.front.Offer(&models.WorkItem{URL: identity, Depth: 0}, "") {
			admitted++
		} else {
			f.wg.Done() // Duplicate seed
		}
	}
	runLog.Infof("Seeded frontier with %d start URL(s).", admitted)
	return nil
}

// worker runs the loop for a single worker goroutine.
func (f *Freezer) worker(workerLog *logrus.Entry) {
	workerLog.Debug("Worker starting")
	defer workerLog.Debug("Worker finished")

	for {
		// Check context before blocking in Take, to allow quick exit
		select {
		case <-f.crawlCtx.Done():
			return
		default:
		}

		item, ok := f.front.Take()
		if !ok { // Frontier closed and drained
			return
		}
		f.processTask(item, workerLog)
	}
}
