package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"site-freezer/pkg/models"
	"site-freezer/pkg/utils"
)

const defaultUserAgent = "site-freezer"

// Fetcher executes GET requests against the configured Invoker and
// normalizes every outcome into a models.Response. Handler-level failures
// come back wrapped in utils.ErrFetch rather than propagating, so a single
// page's failure never aborts the crawl.
type Fetcher struct {
	invoker Invoker
	log     *logrus.Entry
}

// NewFetcher creates a Fetcher over the given invoker.
func NewFetcher(invoker Invoker, log *logrus.Entry) *Fetcher {
	return &Fetcher{invoker: invoker, log: log}
}

// Fetch performs a GET for the given URL with minimal headers and no body.
// Any status code, including redirects and errors, is returned as a Response
// for the scheduler to classify; only handler-level failures return an error.
func (f *Fetcher) Fetch(ctx context.Context, u *url.URL) (*models.Response, error) {
	header := http.Header{}
	header.Set("User-Agent", defaultUserAgent)

	resp, err := f.invoker.Invoke(ctx, http.MethodGet, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %w", utils.ErrFetch, u.String(), err)
	}

	f.log.WithFields(logrus.Fields{
		"url":         u.String(),
		"status_code": resp.StatusCode,
		"bytes":       len(resp.Body),
	}).Debug("Fetched")

	return resp, nil
}
