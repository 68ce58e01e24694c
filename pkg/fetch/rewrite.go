package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"site-freezer/pkg/models"
	"site-freezer/pkg/utils"
)

// RewriteInvoker redirects requests for the site's URL space to a different
// scheme/host, so a site published as https://example.com/ can be frozen from
// a dev server on http://localhost:5000/. Paths and queries pass through
// untouched.
type RewriteInvoker struct {
	next   Invoker
	scheme string
	host   string
}

// NewRewriteInvoker wraps next, sending every request to the target's
// scheme and host instead of the one in the request URL.
func NewRewriteInvoker(next Invoker, target string) (*RewriteInvoker, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing target '%s': %w", utils.ErrInvalidURL, target, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: target '%s' must use http or https", utils.ErrInvalidURL, target)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("%w: target '%s' missing host", utils.ErrInvalidURL, target)
	}
	return &RewriteInvoker{next: next, scheme: parsed.Scheme, host: parsed.Host}, nil
}

// Invoke rewrites the request URL's scheme and host and delegates.
func (r *RewriteInvoker) Invoke(ctx context.Context, method, rawURL string, header http.Header) (*models.Response, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing '%s': %w", utils.ErrInvalidURL, rawURL, err)
	}
	parsed.Scheme = r.scheme
	parsed.Host = r.host
	return r.next.Invoke(ctx, method, parsed.String(), header)
}
