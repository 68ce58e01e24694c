package freezer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"site-freezer/pkg/extract"
	"site-freezer/pkg/models"
	"site-freezer/pkg/utils"
)

// processTask runs the pipeline for a single frontier item:
// map -> fetch -> classify -> extract+offer -> write.
func (f *Freezer) processTask(item *models.WorkItem, workerLog *logrus.Entry) {
	if f.crawlCtx.Err() != nil {
		// Cancelled run: discard without recording an outcome
		f.wg.Done()
		return
	}

	taskLog := workerLog.WithFields(logrus.Fields{"url": item.URL, "depth": item.Depth})
	startTime := time.Now()

	taskCtx := f.crawlCtx
	if f.cfg.PerPageTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(f.crawlCtx, f.cfg.PerPageTimeout)
		defer cancel()
	}

	// Populated during the pipeline, read by the deferred epilogue.
	var taskErr error
	finalStatus := models.PageStatusDone
	var relPath string
	var statusCode int
	var contentType string
	var redirectTarget string

	// Deferred epilogue: panic recovery, outcome recording, WaitGroup release.
	defer func() {
		if r := recover(); r != nil {
			taskErr = fmt.Errorf("panic: %v", r)
			taskLog.WithFields(logrus.Fields{
				"panic_info":  r,
				"stack_trace": string(debug.Stack()),
			}).Error("PANIC recovered in processTask")
		}

		logFields := logrus.Fields{"duration": time.Since(startTime).String()}
		if taskErr != nil {
			category := utils.CategorizeError(taskErr)
			logFields["category"] = category
			f.front.MarkDone(item.URL, models.PageStatusFailed, func(rec *models.PageRecord) {
				rec.Cause = category
				rec.StatusCode = statusCode
			})
			f.tracker.RecordFailure(item.URL, taskErr)
			taskLog.WithFields(logFields).Warnf("Task failed: %v", taskErr)

			// A broken output root is systemic: stop the whole crawl.
			if errors.Is(taskErr, utils.ErrFilesystem) {
				f.tracker.SetFatal(taskErr)
				f.cancelCrawl()
			}
		} else {
			f.front.MarkDone(item.URL, finalStatus, func(rec *models.PageRecord) {
				rec.FilePath = relPath
				rec.StatusCode = statusCode
				rec.ContentType = contentType
				rec.RedirectTarget = redirectTarget
			})
			f.tracker.Record(finalStatus)
			logFields["status"] = string(finalStatus)
			if relPath != "" {
				logFields["saved_path"] = relPath
			}
			taskLog.WithFields(logFields).Info("Task completed")
		}
		f.wg.Done()
	}()

	// 1. Parse and map the URL. Frontier items were validated at offer time,
	// so a failure here is a genuine bug worth surfacing as a page failure.
	pageURL, parseErr := url.Parse(item.URL)
	if parseErr != nil {
		taskErr = fmt.Errorf("%w: parsing '%s': %w", utils.ErrInvalidURL, item.URL, parseErr)
		return
	}
	mapped, mapErr := f.mapper.Map(pageURL)
	if mapErr != nil {
		taskErr = mapErr
		return
	}

	// 2. Bound concurrently executing handler calls.
	if acqErr := f.globalSemaphore.Acquire(taskCtx, 1); acqErr != nil {
		taskErr = acqErr
		return
	}
	defer f.globalSemaphore.Release(1)

	// 3. Fetch.
	resp, fetchErr := f.fetcher.Fetch(taskCtx, pageURL)
	if fetchErr != nil {
		taskErr = fetchErr
		return
	}
	statusCode = resp.StatusCode

	// 4. Redirect policy.
	if resp.IsRedirect() {
		switch f.cfg.RedirectPolicy {
		case "error":
			taskErr = fmt.Errorf("%w: %d redirect from '%s' refused by policy", utils.ErrUnexpectedStatus, resp.StatusCode, item.URL)
			return
		case "save":
			redirectTarget, taskErr = f.recordRedirect(pageURL, item, resp, taskLog)
			if taskErr == nil {
				finalStatus = models.PageStatusRedirect
			}
			return
		default: // follow
			resp, redirectTarget, taskErr = f.followChain(taskCtx, pageURL, item, resp, taskLog)
			if taskErr != nil {
				return
			}
			statusCode = resp.StatusCode
		}
	}

	// 5. Status classification: only 2xx bodies are freezable.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		taskErr = fmt.Errorf("%w: %d for '%s'", utils.ErrUnexpectedStatus, resp.StatusCode, item.URL)
		return
	}
	contentType = resp.ContentType(f.cfg.DefaultMimetype)

	// 6. Extract links and offer the newly discovered URLs. References in
	// the body are relative to the page's own URL, redirects notwithstanding.
	f.discoverLinks(resp, pageURL, item, taskLog)

	// 7. Incremental check: identical content already on disk is a skip.
	hash := utils.HashBytes(resp.Body)
	if f.store != nil {
		entry, ok, stateErr := f.store.Get(item.URL)
		if stateErr != nil {
			taskLog.Warnf("State lookup failed, freezing anyway: %v", stateErr)
		} else if ok && entry.ContentHash == hash && f.out.PathExistsWithHash(mapped, hash) {
			relPath = mapped
			finalStatus = models.PageStatusSkipped
			return
		}
	}

	// 8. Persist.
	if _, writeErr := f.out.Write(mapped, resp.Body); writeErr != nil {
		taskErr = writeErr
		return
	}
	relPath = mapped
	f.tracker.RecordWritten(len(resp.Body))

	if f.store != nil {
		entry := &models.PageStateEntry{ContentHash: hash, FilePath: mapped, FrozenAt: time.Now()}
		if stateErr := f.store.Put(item.URL, entry); stateErr != nil {
			taskLog.Warnf("State update failed: %v", stateErr)
		}
	}
}

// recordRedirect implements the "save" policy: the original URL becomes a
// resolved redirect with no file of its own, and the target joins the
// frontier carrying the chain's hop count.
func (f *Freezer) recordRedirect(origin *url.URL, item *models.WorkItem, resp *models.Response, taskLog *logrus.Entry) (string, error) {
	target, err := redirectTarget(origin, resp)
	if err != nil {
		return "", err
	}
	if item.Hops+1 > f.cfg.MaxRedirects {
		return "", fmt.Errorf("%w: %d hops reaching '%s'", utils.ErrRedirectLoop, item.Hops+1, target)
	}

	if _, mapErr := f.mapper.Map(target); mapErr != nil {
		if errors.Is(mapErr, utils.ErrOutsideScope) {
			if f.front.NoteExternal(target.String(), item.URL) {
				f.tracker.Record(models.PageStatusExternal)
			}
			return target.String(), nil
		}
		return "", mapErr
	}

	identity := f.mapper.Identity(target)
	f.wg.Add(1)
	if f.front.Offer(&models.WorkItem{URL: identity, Depth: item.Depth, Hops: item.Hops + 1}, item.URL) {
		taskLog.Debugf("Redirect target queued: %s", identity)
	} else {
		f.wg.Done()
	}
	return identity, nil
}

// followChain implements the "follow" policy: resolve the chain inline and
// return the final response, to be written at the ORIGINAL URL's path.
// Cycles terminate via the hop limit.
func (f *Freezer) followChain(ctx context.Context, origin *url.URL, item *models.WorkItem, resp *models.Response, taskLog *logrus.Entry) (*models.Response, string, error) {
	current := origin
	hops := item.Hops
	for resp.IsRedirect() {
		if hops >= f.cfg.MaxRedirects {
			return nil, "", fmt.Errorf("%w: %d hops from '%s'", utils.ErrRedirectLoop, hops, item.URL)
		}
		target, err := redirectTarget(current, resp)
		if err != nil {
			return nil, "", err
		}
		if _, mapErr := f.mapper.Map(target); mapErr != nil {
			return nil, "", fmt.Errorf("redirect from '%s': %w", current.String(), mapErr)
		}
		taskLog.Debugf("Following redirect %s -> %s", current, target)

		hops++
		current = target
		resp, err = f.fetcher.Fetch(ctx, current)
		if err != nil {
			return nil, "", err
		}
	}
	if current == origin {
		return resp, "", nil
	}
	return resp, f.mapper.Identity(current), nil
}

// discoverLinks extracts reference targets from the response and feeds the
// internal ones back into the frontier; external ones are recorded, never
// fetched.
func (f *Freezer) discoverLinks(resp *models.Response, base *url.URL, item *models.WorkItem, taskLog *logrus.Entry) {
	links := extract.Links(resp, base, f.cfg.DefaultMimetype, taskLog)
	queued := 0
	for _, link := range links {
		parsed, err := url.Parse(link)
		if err != nil {
			continue // Extractor output is already resolved; stay permissive
		}
		if _, mapErr := f.mapper.Map(parsed); mapErr != nil {
			if errors.Is(mapErr, utils.ErrOutsideScope) {
				if f.front.NoteExternal(parsed.String(), item.URL) {
					f.tracker.Record(models.PageStatusExternal)
					taskLog.Debugf("External link recorded: %s", parsed)
				}
			} else {
				taskLog.Debugf("Skipping unfreezable link '%s': %v", link, mapErr)
			}
			continue
		}

		identity := f.mapper.Identity(parsed)
		f.wg.Add(1) // Before the item becomes visible to other workers
		if f.front.Offer(&models.WorkItem{URL: identity, Depth: item.Depth + 1}, item.URL) {
			queued++
		} else {
			f.wg.Done()
		}
	}
	if queued > 0 {
		taskLog.Debugf("Queued %d new link(s).", queued)
	}
}

// redirectTarget resolves the Location header against the redirecting URL.
func redirectTarget(origin *url.URL, resp *models.Response) (*url.URL, error) {
	location := resp.Location()
	if location == "" {
		return nil, fmt.Errorf("%w: %d from '%s'", utils.ErrMissingLocation, resp.StatusCode, origin.String())
	}
	target, err := origin.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("%w: Location '%s': %w", utils.ErrInvalidURL, location, err)
	}
	return target, nil
}
